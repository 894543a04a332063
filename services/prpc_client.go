package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"xanalytics/config"
	"xanalytics/models"
)

const (
	methodPodsWithStats = "get-pods-with-stats"
	hostNotAllowedReply = "Host not allowed"
)

// PRPCClient talks to the public pRPC hosts that know the live state of the
// storage network.
type PRPCClient struct {
	port       int
	minPods    int
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

func NewPRPCClient(cfg *config.Config, logger *zap.Logger) *PRPCClient {
	return &PRPCClient{
		port:    cfg.PRPC.DefaultPort,
		minPods: cfg.PRPC.MinPods,
		timeout: cfg.PRPCTimeoutDuration(),
		httpClient: &http.Client{
			Timeout: cfg.PRPCTimeoutDuration(),
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
			},
		},
		logger: logger,
	}
}

// endpoint appends the default pRPC port unless host already carries one.
func (c *PRPCClient) endpoint(host string) string {
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, strconv.Itoa(c.port))
	}
	return fmt.Sprintf("http://%s/rpc", host)
}

// GetPodsWithStats calls get-pods-with-stats on one host.
func (c *PRPCClient) GetPodsWithStats(ctx context.Context, host string) ([]models.PodWithStats, error) {
	start := time.Now()
	body, err := postJSONRPC(ctx, c.httpClient, c.endpoint(host), methodPodsWithStats, nil)
	if err == nil {
		var pods []models.PodWithStats
		pods, err = parsePodsResponse(body)
		if err == nil {
			observeUpstream(upstreamPRPC, start, nil)
			return pods, nil
		}
	}
	observeUpstream(upstreamPRPC, start, err)
	return nil, err
}

// FetchLiveStats walks the candidate hosts in order and returns the pods of the
// first one whose response qualifies, keyed by pubkey. A failure here is never
// fatal to the caller.
func (c *PRPCClient) FetchLiveStats(ctx context.Context, hosts []string) (Result[map[string]models.PodWithStats], string) {
	res, host := FirstQualifying(ctx, hosts, c.timeout, func(ctx context.Context, host string) ([]models.PodWithStats, error) {
		pods, err := c.GetPodsWithStats(ctx, host)
		if err != nil {
			c.logger.Debug("pRPC host failed", zap.String("host", host), zap.Error(err))
			return nil, err
		}
		if len(pods) <= c.minPods {
			return nil, fmt.Errorf("%w: got %d, need more than %d", ErrTooFewPods, len(pods), c.minPods)
		}
		return pods, nil
	})
	if !res.OK() {
		c.logger.Warn("No pRPC host qualified, continuing without live stats",
			zap.Int("hosts", len(hosts)), zap.Error(res.Err))
		return Fail[map[string]models.PodWithStats](res.Err), ""
	}

	byPubkey := indexPods(res.Value)
	c.logger.Debug("pRPC live stats fetched",
		zap.String("host", host), zap.Int("pods", len(res.Value)), zap.Int("unique", len(byPubkey)))
	return Ok(byPubkey), host
}

// indexPods keys pods by pubkey. When a pubkey appears twice the most recently
// seen entry wins.
func indexPods(pods []models.PodWithStats) map[string]models.PodWithStats {
	out := make(map[string]models.PodWithStats, len(pods))
	for _, p := range pods {
		if p.Pubkey == "" {
			continue
		}
		if existing, ok := out[p.Pubkey]; ok && existing.LastSeenTimestamp >= p.LastSeenTimestamp {
			continue
		}
		out[p.Pubkey] = p
	}
	return out
}

func isHostNotAllowed(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if string(trimmed) == hostNotAllowedReply {
		return true
	}
	var s string
	return json.Unmarshal(trimmed, &s) == nil && s == hostNotAllowedReply
}

// parsePodsResponse accepts the JSON-RPC envelope ({"result": {"pods": [...]}})
// as well as a bare {"pods": [...]} body.
func parsePodsResponse(body []byte) ([]models.PodWithStats, error) {
	if isHostNotAllowed(body) {
		return nil, ErrHostNotAllowed
	}

	var envelope struct {
		Result *models.PodsWithStatsResponse `json:"result"`
		Error  *models.RPCError              `json:"error"`
		Pods   []models.PodWithStats         `json:"pods"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode pods response: %w", err)
	}

	if envelope.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", envelope.Error.Code, envelope.Error.Message)
	}
	if envelope.Result != nil && len(envelope.Result.Pods) > 0 {
		return envelope.Result.Pods, nil
	}
	return envelope.Pods, nil
}
