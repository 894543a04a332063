package models

import "encoding/json"

// JSON-RPC 2.0 Request
type RPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      int         `json:"id"`
}

// JSON-RPC 2.0 Response
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      int             `json:"id"`
}

// JSON-RPC 2.0 Error
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ============================================
// get-pods-with-stats response
// ============================================

// PodsWithStatsResponse is the body of get-pods-with-stats. Some hosts wrap it
// in a JSON-RPC envelope, others return it bare.
type PodsWithStatsResponse struct {
	Pods       []PodWithStats `json:"pods"`
	TotalCount int            `json:"total_count"`
}

type PodWithStats struct {
	Address             string  `json:"address"` // "ip:port" of the gossip endpoint
	Pubkey              string  `json:"pubkey"`
	RpcPort             int     `json:"rpc_port"`
	IsPublic            bool    `json:"is_public"`
	Version             string  `json:"version"`
	LastSeenTimestamp   int64   `json:"last_seen_timestamp"`
	StorageCommitted    int64   `json:"storage_committed"`
	StorageUsed         int64   `json:"storage_used"`
	StorageUsagePercent float64 `json:"storage_usage_percent"`
	Uptime              int64   `json:"uptime"`
}

// ============================================
// getEpochInfo response
// ============================================
type EpochInfo struct {
	AbsoluteSlot     uint64 `json:"absoluteSlot"`
	BlockHeight      uint64 `json:"blockHeight"`
	Epoch            uint64 `json:"epoch"`
	SlotIndex        uint64 `json:"slotIndex"`
	SlotsInEpoch     uint64 `json:"slotsInEpoch"`
	TransactionCount uint64 `json:"transactionCount,omitempty"`
}
