package models

// NodeRecord is one storage node on the leaderboard. It lives only for the
// duration of one response.
type NodeRecord struct {
	Identity     string  `json:"identity"`
	Credits      int64   `json:"credits"`
	Rank         int     `json:"rank"`
	NetworkShare float64 `json:"networkShare"` // percent of total credits

	LiveStats    *LiveStats `json:"liveStats,omitempty"`
	Location     *Location  `json:"location,omitempty"`
	ActivityRate *float64   `json:"activityRate,omitempty"` // credits per day of uptime
}

// LiveStats is what a pRPC host reported for the node.
type LiveStats struct {
	IP                        string  `json:"ip"`
	Version                   string  `json:"version"`
	VersionStatus             string  `json:"versionStatus"` // "current", "outdated", "deprecated", "unknown"
	IsUpgradeNeeded           bool    `json:"isUpgradeNeeded"`
	IsPublic                  bool    `json:"isPublic"`
	Uptime                    int64   `json:"uptime"`
	UptimeFormatted           string  `json:"uptimeFormatted"`
	StorageCommitted          int64   `json:"storageCommitted"`
	StorageCommittedFormatted string  `json:"storageCommittedFormatted"`
	StorageUsed               int64   `json:"storageUsed"`
	StorageUsedFormatted      string  `json:"storageUsedFormatted"`
	StorageUsagePercent       float64 `json:"storageUsagePercent"`
	LastSeen                  int64   `json:"lastSeen"` // unix seconds
	LastSeenFormatted         string  `json:"lastSeenFormatted"`
}

// Location is the geolocation of a node's IP.
type Location struct {
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}
