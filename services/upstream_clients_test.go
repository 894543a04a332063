package services

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"xanalytics/config"
	"xanalytics/models"
)

func decodeBody(r *http.Request, out interface{}) error {
	return json.NewDecoder(r.Body).Decode(out)
}

func TestFetchEpoch(t *testing.T) {
	ec := NewEpochClient(config.Default(), zaptest.NewLogger(t))

	t.Run("Success", func(t *testing.T) {
		srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
			var req models.RPCRequest
			assert.NoError(t, decodeBody(r, &req))
			assert.Equal(t, "getEpochInfo", req.Method)
			assert.Equal(t, 1, req.ID)
			writeJSON(http.StatusOK, epochBody(812))(w, r)
		})

		res := ec.FetchEpoch(context.Background(), srv.URL)
		require.True(t, res.OK())
		assert.Equal(t, uint64(812), res.Value)
	})

	t.Run("RPCError", func(t *testing.T) {
		srv := newUpstream(t, writeJSON(http.StatusOK, map[string]interface{}{
			"jsonrpc": "2.0", "id": 1, "error": map[string]interface{}{"code": -32000, "message": "unavailable"},
		}))
		res := ec.FetchEpoch(context.Background(), srv.URL)
		assert.False(t, res.OK())
		assert.Equal(t, uint64(0), res.ValueOr(0))
	})

	t.Run("BadStatus", func(t *testing.T) {
		srv := newUpstream(t, writeJSON(http.StatusServiceUnavailable, nil))
		res := ec.FetchEpoch(context.Background(), srv.URL)
		assert.ErrorIs(t, res.Err, ErrUpstreamStatus)
	})
}

func TestFetchPrice(t *testing.T) {
	cfg := config.Default()

	t.Run("Success", func(t *testing.T) {
		srv := newUpstream(t, writeJSON(http.StatusOK, map[string]interface{}{
			"xandeum": map[string]float64{"usd": 0.0123, "usd_24h_change": -4.5},
		}))
		cfg.Price.URL = srv.URL
		ps := NewPriceService(cfg, zaptest.NewLogger(t))

		res := ps.FetchPrice(context.Background())
		require.True(t, res.OK())
		assert.InDelta(t, 0.0123, res.Value.USD, 1e-12)
		assert.InDelta(t, -4.5, res.Value.USD24hChange, 1e-12)
	})

	t.Run("RateLimited", func(t *testing.T) {
		srv := newUpstream(t, writeJSON(http.StatusTooManyRequests, nil))
		cfg.Price.URL = srv.URL
		ps := NewPriceService(cfg, zaptest.NewLogger(t))

		res := ps.FetchPrice(context.Background())
		assert.False(t, res.OK())
		assert.Equal(t, models.XandPrice{}, res.ValueOr(models.XandPrice{}))
	})
}

func TestResult(t *testing.T) {
	ok := Ok("v")
	assert.True(t, ok.OK())
	assert.Equal(t, "v", ok.ValueOr("d"))

	failed := Fail[string](ErrTooFewPods)
	assert.False(t, failed.OK())
	assert.Equal(t, "d", failed.ValueOr("d"))
}
