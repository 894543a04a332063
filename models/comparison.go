package models

// NodeComparison is the side-by-side view of up to five nodes.
type NodeComparison struct {
	Network string        `json:"network"`
	Nodes   []*NodeRecord `json:"nodes"`
	Missing []string      `json:"missing"` // requested identities not on the leaderboard

	// Identities holding the best value per metric; empty when nobody has it.
	BestCredits      string `json:"bestCredits"`
	BestUptime       string `json:"bestUptime"`
	BestActivityRate string `json:"bestActivityRate"`
}
