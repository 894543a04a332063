package models

import "time"

// Snapshot is the payload of one leaderboard request. The degraded shape
// (Success=false) keeps Count, Nodes, TotalCredits and Epoch at their zero
// values and omits Network, Source and Stats.
type Snapshot struct {
	Success      bool            `json:"success"`
	Error        string          `json:"error,omitempty"`
	Network      string          `json:"network,omitempty"`
	Source       string          `json:"source,omitempty"`
	Count        int             `json:"count"`
	Nodes        []*NodeRecord   `json:"nodes"`
	TotalCredits int64           `json:"totalCredits"`
	Epoch        uint64          `json:"epoch"`
	Timestamp    time.Time       `json:"timestamp"`
	Stats        *AggregateStats `json:"stats,omitempty"`
}

// AggregateStats is computed once per snapshot.
type AggregateStats struct {
	TotalNodes  int `json:"totalNodes"`
	ActiveNodes int `json:"activeNodes"` // nodes with live stats

	TotalStorageCommitted          int64  `json:"totalStorageCommitted"`
	TotalStorageCommittedFormatted string `json:"totalStorageCommittedFormatted"`
	TotalStorageUsed               int64  `json:"totalStorageUsed"`
	TotalStorageUsedFormatted      string `json:"totalStorageUsedFormatted"`

	AvgUptime          float64 `json:"avgUptime"` // seconds
	AvgUptimeFormatted string  `json:"avgUptimeFormatted"`
	AvgActivityRate    float64 `json:"avgActivityRate"`

	MostCommonVersion      string         `json:"mostCommonVersion"`
	MostCommonVersionCount int            `json:"mostCommonVersionCount"`
	VersionDistribution    []VersionCount `json:"versionDistribution"`
	NodesNeedingUpgrade    int            `json:"nodesNeedingUpgrade"`

	CountryDistribution []CountryCount `json:"countryDistribution"`
}

type VersionCount struct {
	Version string `json:"version"`
	Count   int    `json:"count"`
}

type CountryCount struct {
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	Count       int    `json:"count"`
}

// ErrorResponse is the client-error body.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
