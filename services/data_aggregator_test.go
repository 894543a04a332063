package services

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xanalytics/config"
	"xanalytics/models"
)

func abcCredits() models.PodCreditsResponse {
	return creditsBody(
		models.PodCreditsEntry{PodID: "A", Credits: 100},
		models.PodCreditsEntry{PodID: "B", Credits: 300},
		models.PodCreditsEntry{PodID: "C", Credits: 0},
	)
}

func TestGetNetworkSnapshot(t *testing.T) {
	credits := newUpstream(t, writeJSON(http.StatusOK, abcCredits()))
	pods := append(fillerPods(3), pod("A", "203.0.113.10", 2*86400), pod("B", "203.0.113.11", 86400))
	prpc := newUpstream(t, writeJSON(http.StatusOK, podsBody(pods...)))
	rpc := newUpstream(t, writeJSON(http.StatusOK, epochBody(321)))
	geo := newUpstream(t, geoHandler())

	cfg := testConfig(credits.URL, rpc.URL, []string{prpc.host()}, geo.URL)
	agg := newTestAggregator(t, cfg, nil)

	snap, err := agg.GetNetworkSnapshot(context.Background(), config.NetworkDevnet)
	require.NoError(t, err)

	assert.True(t, snap.Success)
	assert.Equal(t, config.NetworkDevnet, snap.Network)
	assert.Equal(t, SourceCreditsAndPRPC, snap.Source)
	assert.Equal(t, uint64(321), snap.Epoch)

	t.Run("RankingExcludesZeroCredits", func(t *testing.T) {
		require.Len(t, snap.Nodes, 2)
		assert.Equal(t, 2, snap.Count)
		assert.Equal(t, int64(400), snap.TotalCredits)

		assert.Equal(t, "B", snap.Nodes[0].Identity)
		assert.Equal(t, 1, snap.Nodes[0].Rank)
		assert.Equal(t, "A", snap.Nodes[1].Identity)
		assert.Equal(t, 2, snap.Nodes[1].Rank)

		assert.InDelta(t, 75.0, snap.Nodes[0].NetworkShare, 1e-9)
		assert.InDelta(t, 25.0, snap.Nodes[1].NetworkShare, 1e-9)
	})

	t.Run("LiveStatsMerged", func(t *testing.T) {
		b := snap.Nodes[0]
		require.NotNil(t, b.LiveStats)
		assert.Equal(t, "203.0.113.11", b.LiveStats.IP)
		assert.Equal(t, "1d 0h", b.LiveStats.UptimeFormatted)
		assert.Equal(t, "1.00 GB", b.LiveStats.StorageCommittedFormatted)
		assert.Equal(t, "current", b.LiveStats.VersionStatus)
		assert.NotEmpty(t, b.LiveStats.LastSeenFormatted)

		require.NotNil(t, b.ActivityRate)
		assert.InDelta(t, 300.0, *b.ActivityRate, 1e-9)
		require.NotNil(t, snap.Nodes[1].ActivityRate)
		assert.InDelta(t, 50.0, *snap.Nodes[1].ActivityRate, 1e-9)
	})

	t.Run("LocationsAttached", func(t *testing.T) {
		for _, n := range snap.Nodes {
			require.NotNil(t, n.Location, n.Identity)
			assert.Equal(t, "DE", n.Location.CountryCode)
		}
		// Only the two ranked IPs are looked up, not the filler pods.
		assert.Equal(t, int64(2), geo.calls.Load())
	})

	t.Run("AggregateStats", func(t *testing.T) {
		require.NotNil(t, snap.Stats)
		assert.Equal(t, 2, snap.Stats.TotalNodes)
		assert.Equal(t, 2, snap.Stats.ActiveNodes)
		assert.Equal(t, "0.8.0", snap.Stats.MostCommonVersion)
		assert.Equal(t, 2, snap.Stats.MostCommonVersionCount)
		require.Len(t, snap.Stats.CountryDistribution, 1)
		assert.Equal(t, 2, snap.Stats.CountryDistribution[0].Count)
		assert.InDelta(t, 175.0, snap.Stats.AvgActivityRate, 1e-9)
	})

	t.Run("ResponseShape", func(t *testing.T) {
		data, err := json.Marshal(snap)
		require.NoError(t, err)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &body))
		for _, key := range []string{"success", "network", "source", "count", "nodes", "totalCredits", "epoch", "timestamp", "stats"} {
			assert.Contains(t, body, key)
		}
		assert.NotContains(t, body, "error")
	})
}

func TestGetNetworkSnapshotInvalidNetwork(t *testing.T) {
	credits := newUpstream(t, writeJSON(http.StatusOK, abcCredits()))
	prpc := newUpstream(t, writeJSON(http.StatusOK, podsBody(fillerPods(5)...)))
	rpc := newUpstream(t, writeJSON(http.StatusOK, epochBody(1)))
	geo := newUpstream(t, geoHandler())

	cfg := testConfig(credits.URL, rpc.URL, []string{prpc.host()}, geo.URL)
	agg := newTestAggregator(t, cfg, nil)

	for _, network := range []string{"", "Mainnet", "localnet", "http://169.254.169.254/latest", "../devnet"} {
		snap, err := agg.GetNetworkSnapshot(context.Background(), network)
		assert.ErrorIs(t, err, ErrInvalidNetwork, network)
		assert.Nil(t, snap)
	}

	for _, u := range []*upstream{credits, prpc, rpc, geo} {
		assert.Zero(t, u.calls.Load())
	}
}

func TestGetNetworkSnapshotCreditsFailure(t *testing.T) {
	credits := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	prpc := newUpstream(t, writeJSON(http.StatusOK, podsBody(fillerPods(5)...)))
	rpc := newUpstream(t, writeJSON(http.StatusOK, epochBody(9)))

	cfg := testConfig(credits.URL, rpc.URL, []string{prpc.host()}, "")
	agg := newTestAggregator(t, cfg, nil)

	snap, err := agg.GetNetworkSnapshot(context.Background(), config.NetworkDevnet)
	require.NoError(t, err)

	assert.False(t, snap.Success)
	assert.Equal(t, DegradedMessage, snap.Error)
	assert.Zero(t, snap.Count)
	assert.NotNil(t, snap.Nodes)
	assert.Empty(t, snap.Nodes)
	assert.Zero(t, snap.TotalCredits)
	assert.Zero(t, snap.Epoch)
	assert.False(t, snap.Timestamp.IsZero())

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"nodes":[]`)
	assert.NotContains(t, string(data), `"stats"`)
}

func TestGetNetworkSnapshotCreditsNonSuccessStatus(t *testing.T) {
	credits := newUpstream(t, writeJSON(http.StatusOK, models.PodCreditsResponse{Status: "error"}))
	cfg := testConfig(credits.URL, "", nil, "")
	agg := newTestAggregator(t, cfg, nil)

	snap, err := agg.GetNetworkSnapshot(context.Background(), config.NetworkDevnet)
	require.NoError(t, err)
	assert.False(t, snap.Success)
}

func TestGetNetworkSnapshotAllPRPCHostsFail(t *testing.T) {
	credits := newUpstream(t, writeJSON(http.StatusOK, abcCredits()))
	rejected := newUpstream(t, writeJSON(http.StatusForbidden, "Host not allowed"))
	tooFew := newUpstream(t, writeJSON(http.StatusOK, podsBody(pod("A", "203.0.113.10", 10))))
	broken := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	})
	geo := newUpstream(t, geoHandler())

	cfg := testConfig(credits.URL, "", []string{rejected.host(), tooFew.host(), broken.host()}, geo.URL)
	agg := newTestAggregator(t, cfg, nil)

	snap, err := agg.GetNetworkSnapshot(context.Background(), config.NetworkDevnet)
	require.NoError(t, err)

	assert.True(t, snap.Success)
	assert.Equal(t, SourceCreditsOnly, snap.Source)
	assert.Zero(t, snap.Epoch)
	require.Len(t, snap.Nodes, 2)
	for _, n := range snap.Nodes {
		assert.Nil(t, n.LiveStats)
		assert.Nil(t, n.Location)
		assert.Nil(t, n.ActivityRate)
	}
	assert.Equal(t, 0, snap.Stats.ActiveNodes)

	for _, u := range []*upstream{rejected, tooFew, broken} {
		assert.Equal(t, int64(1), u.calls.Load())
	}
	assert.Zero(t, geo.calls.Load())
}

func TestGetNetworkSnapshotStopsAtFirstQualifyingHost(t *testing.T) {
	credits := newUpstream(t, writeJSON(http.StatusOK, abcCredits()))
	rejected := newUpstream(t, writeJSON(http.StatusOK, "Host not allowed"))
	good := newUpstream(t, writeJSON(http.StatusOK, podsBody(append(fillerPods(3), pod("B", "203.0.113.11", 100))...)))
	never := newUpstream(t, writeJSON(http.StatusOK, podsBody(fillerPods(5)...)))

	cfg := testConfig(credits.URL, "", []string{rejected.host(), good.host(), never.host()}, "")
	agg := newTestAggregator(t, cfg, nil)

	snap, err := agg.GetNetworkSnapshot(context.Background(), config.NetworkDevnet)
	require.NoError(t, err)

	assert.Equal(t, SourceCreditsAndPRPC, snap.Source)
	require.NotNil(t, snap.Nodes[0].LiveStats)
	assert.Nil(t, snap.Nodes[1].LiveStats, "A is not reported by the winning host")
	assert.Equal(t, int64(1), rejected.calls.Load())
	assert.Equal(t, int64(1), good.calls.Load())
	assert.Zero(t, never.calls.Load())
}

func TestGetNetworkSnapshotHangingHostIsBounded(t *testing.T) {
	credits := newUpstream(t, writeJSON(http.StatusOK, abcCredits()))
	release := make(chan struct{})
	hanging := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	t.Cleanup(func() { close(release) })
	good := newUpstream(t, writeJSON(http.StatusOK, podsBody(fillerPods(3)...)))

	cfg := testConfig(credits.URL, "", []string{hanging.host(), good.host()}, "")
	cfg.PRPC.TimeoutMS = 100
	agg := newTestAggregator(t, cfg, nil)

	start := time.Now()
	snap, err := agg.GetNetworkSnapshot(context.Background(), config.NetworkDevnet)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, snap.Success)
	assert.Equal(t, SourceCreditsAndPRPC, snap.Source)
	assert.Equal(t, int64(1), good.calls.Load())
}

func TestGetNetworkSnapshotIdempotent(t *testing.T) {
	credits := newUpstream(t, writeJSON(http.StatusOK, creditsBody(
		models.PodCreditsEntry{PodID: "A", Credits: 50},
		models.PodCreditsEntry{PodID: "B", Credits: 50},
		models.PodCreditsEntry{PodID: "C", Credits: 70},
		models.PodCreditsEntry{PodID: "D", Credits: 50},
	)))
	prpc := newUpstream(t, writeJSON(http.StatusOK, podsBody(fillerPods(3)...)))

	cfg := testConfig(credits.URL, "", []string{prpc.host()}, "")
	agg := newTestAggregator(t, cfg, nil)

	first, err := agg.GetNetworkSnapshot(context.Background(), config.NetworkDevnet)
	require.NoError(t, err)
	second, err := agg.GetNetworkSnapshot(context.Background(), config.NetworkDevnet)
	require.NoError(t, err)

	first.Timestamp, second.Timestamp = time.Time{}, time.Time{}
	assert.Equal(t, first, second)

	var order []string
	for _, n := range first.Nodes {
		order = append(order, n.Identity)
	}
	// equal credits keep the upstream order
	assert.Equal(t, []string{"C", "A", "B", "D"}, order)
	assert.Equal(t, []int{1, 2, 3, 4}, []int{first.Nodes[0].Rank, first.Nodes[1].Rank, first.Nodes[2].Rank, first.Nodes[3].Rank})
}

func TestGeoMemoAcrossSnapshots(t *testing.T) {
	credits := newUpstream(t, writeJSON(http.StatusOK, abcCredits()))
	// A and B share an IP; the lookup for it fails.
	pods := append(fillerPods(3), pod("A", "203.0.113.50", 100), pod("B", "203.0.113.50", 100))
	prpc := newUpstream(t, writeJSON(http.StatusOK, podsBody(pods...)))
	geo := newUpstream(t, writeJSON(http.StatusOK, map[string]string{"status": "fail", "message": "reserved range"}))

	cfg := testConfig(credits.URL, "", []string{prpc.host()}, geo.URL)
	cache := NewMemoryGeoCache(10, 0)
	agg := newTestAggregator(t, cfg, cache)

	for i := 0; i < 2; i++ {
		snap, err := agg.GetNetworkSnapshot(context.Background(), config.NetworkDevnet)
		require.NoError(t, err)
		for _, n := range snap.Nodes {
			assert.Nil(t, n.Location)
		}
	}

	assert.Equal(t, int64(1), geo.calls.Load())
	loc, found := cache.Get(context.Background(), "203.0.113.50")
	assert.True(t, found)
	assert.Nil(t, loc)
}

func TestGeoLookupsAreCapped(t *testing.T) {
	var entries []models.PodCreditsEntry
	var pods []models.PodWithStats
	for i, id := range []string{"n1", "n2", "n3", "n4"} {
		entries = append(entries, models.PodCreditsEntry{PodID: id, Credits: int64(100 - i)})
		pods = append(pods, pod(id, "203.0.113."+string(rune('1'+i)), 100))
	}
	credits := newUpstream(t, writeJSON(http.StatusOK, creditsBody(entries...)))
	prpc := newUpstream(t, writeJSON(http.StatusOK, podsBody(pods...)))
	geo := newUpstream(t, geoHandler())

	cfg := testConfig(credits.URL, "", []string{prpc.host()}, geo.URL)
	cfg.Geo.MaxLookups = 2
	agg := newTestAggregator(t, cfg, nil)

	snap, err := agg.GetNetworkSnapshot(context.Background(), config.NetworkDevnet)
	require.NoError(t, err)

	assert.Equal(t, int64(2), geo.calls.Load())
	// the highest ranked IPs go first
	assert.NotNil(t, snap.Nodes[0].Location)
	assert.NotNil(t, snap.Nodes[1].Location)
	assert.Nil(t, snap.Nodes[2].Location)
	assert.Nil(t, snap.Nodes[3].Location)

	// the next call resolves the remainder
	_, err = agg.GetNetworkSnapshot(context.Background(), config.NetworkDevnet)
	require.NoError(t, err)
	assert.Equal(t, int64(4), geo.calls.Load())
}

func TestGetNode(t *testing.T) {
	credits := newUpstream(t, writeJSON(http.StatusOK, abcCredits()))
	cfg := testConfig(credits.URL, "", nil, "")
	agg := newTestAggregator(t, cfg, nil)

	node, snap, err := agg.GetNode(context.Background(), config.NetworkDevnet, "A")
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, 2, node.Rank)
	assert.True(t, snap.Success)

	node, _, err = agg.GetNode(context.Background(), config.NetworkDevnet, "C")
	require.NoError(t, err)
	assert.Nil(t, node, "zero credit nodes are not on the leaderboard")
}

func TestGetTopCredits(t *testing.T) {
	credits := newUpstream(t, writeJSON(http.StatusOK, abcCredits()))
	cfg := testConfig(credits.URL, "", nil, "")
	agg := newTestAggregator(t, cfg, nil)

	top, total, err := agg.GetTopCredits(context.Background(), config.NetworkDevnet, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(400), total)
	require.Len(t, top, 1)
	assert.Equal(t, "B", top[0].Pubkey)

	_, _, err = agg.GetTopCredits(context.Background(), "nope", 1)
	assert.ErrorIs(t, err, ErrInvalidNetwork)
}
