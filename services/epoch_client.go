package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"xanalytics/config"
	"xanalytics/models"
)

// EpochClient reads the current epoch from a network's JSON-RPC endpoint.
type EpochClient struct {
	httpClient *http.Client
	logger     *zap.Logger
}

func NewEpochClient(cfg *config.Config, logger *zap.Logger) *EpochClient {
	return &EpochClient{
		httpClient: &http.Client{Timeout: cfg.RPCTimeoutDuration()},
		logger:     logger,
	}
}

// FetchEpoch calls getEpochInfo. Callers fall back to 0 on failure.
func (ec *EpochClient) FetchEpoch(ctx context.Context, rpcURL string) Result[uint64] {
	start := time.Now()
	info, err := ec.getEpochInfo(ctx, rpcURL)
	observeUpstream(upstreamRPC, start, err)

	if err != nil {
		ec.logger.Warn("Failed to fetch epoch info", zap.String("url", rpcURL), zap.Error(err))
		return Fail[uint64](err)
	}
	return Ok(info.Epoch)
}

func (ec *EpochClient) getEpochInfo(ctx context.Context, rpcURL string) (*models.EpochInfo, error) {
	body, err := postJSONRPC(ctx, ec.httpClient, rpcURL, "getEpochInfo", nil)
	if err != nil {
		return nil, err
	}

	var rpcResp models.RPCResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode epoch response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if len(rpcResp.Result) == 0 {
		return nil, fmt.Errorf("empty epoch result")
	}

	var info models.EpochInfo
	if err := json.Unmarshal(rpcResp.Result, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal epoch info: %w", err)
	}
	return &info, nil
}
