package services

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upstream labels.
const (
	upstreamCredits = "credits"
	upstreamPRPC    = "prpc"
	upstreamRPC     = "rpc"
	upstreamGeo     = "geo"
	upstreamPrice   = "price"
)

var (
	upstreamCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xanalytics_upstream_calls_total",
		Help: "Outbound calls by upstream and outcome.",
	}, []string{"upstream", "outcome"})

	upstreamCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "xanalytics_upstream_call_duration_seconds",
		Help:    "Latency of outbound calls.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"upstream"})

	geoMemoLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xanalytics_geo_memo_lookups_total",
		Help: "Geolocation memo lookups by result (hit, miss).",
	}, []string{"result"})

	snapshotsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xanalytics_snapshots_total",
		Help: "Leaderboard snapshots by network and outcome.",
	}, []string{"network", "outcome"})
)

func observeUpstream(upstream string, start time.Time, err error) {
	upstreamCallDuration.WithLabelValues(upstream).Observe(time.Since(start).Seconds())
	upstreamCallsTotal.WithLabelValues(upstream, outcomeOf(err)).Inc()
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrHostNotAllowed):
		return "rejected"
	case errors.Is(err, ErrTooFewPods):
		return "unqualified"
	case errors.Is(err, ErrUpstreamStatus):
		return "bad_status"
	default:
		return "error"
	}
}
