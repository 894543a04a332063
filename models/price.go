package models

// XandPrice is the dashboard price ticker.
type XandPrice struct {
	USD          float64 `json:"usd"`
	USD24hChange float64 `json:"usd_24h_change"`
}

// CoinGeckoPriceResponse is keyed by coin id, e.g. {"xandeum": {...}}.
type CoinGeckoPriceResponse map[string]XandPrice
