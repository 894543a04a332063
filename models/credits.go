package models

// PodCreditsResponse from the credits API
type PodCreditsResponse struct {
	PodsCredits []PodCreditsEntry `json:"pods_credits"`
	Status      string            `json:"status"`
}

type PodCreditsEntry struct {
	PodID   string `json:"pod_id"`
	Credits int64  `json:"credits"`
}

// RankedCredits is a credits entry after filtering and ranking.
type RankedCredits struct {
	Pubkey       string  `json:"pubkey"`
	Credits      int64   `json:"credits"`
	Rank         int     `json:"rank"`
	NetworkShare float64 `json:"network_share"`
}
