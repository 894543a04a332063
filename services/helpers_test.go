package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap/zaptest"

	"xanalytics/config"
	"xanalytics/models"
	"xanalytics/utils"
)

// upstream is an httptest server that counts the requests it receives.
type upstream struct {
	*httptest.Server
	calls atomic.Int64
}

func newUpstream(t *testing.T, h http.HandlerFunc) *upstream {
	t.Helper()
	u := &upstream{}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		h(w, r)
	}))
	t.Cleanup(u.Close)
	return u
}

// host is the "ip:port" form the pRPC client expects.
func (u *upstream) host() string {
	return strings.TrimPrefix(u.URL, "http://")
}

func writeJSON(status int, body interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func creditsBody(entries ...models.PodCreditsEntry) models.PodCreditsResponse {
	return models.PodCreditsResponse{PodsCredits: entries, Status: "success"}
}

// podsBody wraps pods in a JSON-RPC envelope the way the pRPC hosts do.
func podsBody(pods ...models.PodWithStats) map[string]interface{} {
	return map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"result":  models.PodsWithStatsResponse{Pods: pods, TotalCount: len(pods)},
	}
}

func pod(pubkey, ip string, uptime int64) models.PodWithStats {
	return models.PodWithStats{
		Address:           ip + ":9001",
		Pubkey:            pubkey,
		Version:           "0.8.0",
		Uptime:            uptime,
		StorageCommitted:  1_000_000_000,
		StorageUsed:       250_000_000,
		LastSeenTimestamp: 1_700_000_000,
	}
}

// filler pods push a response over the qualification threshold.
func fillerPods(n int) []models.PodWithStats {
	out := make([]models.PodWithStats, n)
	for i := range out {
		out[i] = pod(fmt.Sprintf("filler-%d", i), fmt.Sprintf("198.51.100.%d", i+1), 3600)
	}
	return out
}

func epochBody(epoch uint64) map[string]interface{} {
	return map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"result":  models.EpochInfo{Epoch: epoch, SlotsInEpoch: 432000},
	}
}

func geoHandler() http.HandlerFunc {
	return writeJSON(http.StatusOK, map[string]interface{}{
		"status":      "success",
		"country":     "Germany",
		"countryCode": "DE",
		"city":        "Nuremberg",
		"lat":         49.45,
		"lon":         11.07,
	})
}

func testConfig(creditsURL, rpcURL string, hosts []string, geoURL string) *config.Config {
	cfg := config.Default()
	cfg.Networks[config.NetworkDevnet] = config.NetworkConfig{
		CreditsURL: creditsURL,
		RPCURL:     rpcURL,
		PRPCHosts:  hosts,
	}
	cfg.PRPC.MinPods = 2
	cfg.PRPC.TimeoutMS = 500
	cfg.RPC.TimeoutMS = 500
	cfg.Credits.TimeoutMS = 500
	cfg.Geo.APIURL = geoURL
	cfg.Geo.TimeoutMS = 500
	return cfg
}

func newTestAggregator(t *testing.T, cfg *config.Config, cache GeoCache) *DataAggregator {
	t.Helper()
	logger := zaptest.NewLogger(t)
	if cache == nil {
		cache = NewMemoryGeoCache(cfg.Geo.CacheSize, 0)
	}
	geo := utils.NewGeoResolver("", cfg.Geo.APIURL, cfg.GeoTimeoutDuration(), logger)
	return NewDataAggregator(cfg,
		NewCreditsService(cfg, logger),
		NewPRPCClient(cfg, logger),
		NewEpochClient(cfg, logger),
		geo, cache, logger)
}
