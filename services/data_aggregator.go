package services

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"xanalytics/config"
	"xanalytics/models"
	"xanalytics/utils"
)

// Snapshot sources.
const (
	SourceCreditsAndPRPC = "credits+prpc"
	SourceCreditsOnly    = "credits-only"
)

// DegradedMessage is the error text of a snapshot whose credits fetch failed.
const DegradedMessage = "Failed to fetch pNode credits"

// GeoLocator resolves one IP. utils.GeoResolver is the production implementation.
type GeoLocator interface {
	Lookup(ctx context.Context, ip string) (*models.Location, error)
}

// DataAggregator builds leaderboard snapshots on demand. It keeps no state
// between requests except the injected geo memo.
type DataAggregator struct {
	cfg      *config.Config
	credits  *CreditsService
	prpc     *PRPCClient
	epoch    *EpochClient
	geo      GeoLocator
	geoCache GeoCache
	logger   *zap.Logger

	now func() time.Time
}

func NewDataAggregator(cfg *config.Config, credits *CreditsService, prpc *PRPCClient, epoch *EpochClient,
	geo GeoLocator, geoCache GeoCache, logger *zap.Logger) *DataAggregator {
	return &DataAggregator{
		cfg:      cfg,
		credits:  credits,
		prpc:     prpc,
		epoch:    epoch,
		geo:      geo,
		geoCache: geoCache,
		logger:   logger,
		now:      time.Now,
	}
}

// ResolveNetwork maps a network name to its endpoints. Anything outside the
// allow-list yields ErrInvalidNetwork.
func (da *DataAggregator) ResolveNetwork(network string) (config.NetworkConfig, error) {
	if !config.IsSupportedNetwork(network) {
		return config.NetworkConfig{}, ErrInvalidNetwork
	}
	nc, ok := da.cfg.Networks[network]
	if !ok || nc.CreditsURL == "" {
		return config.NetworkConfig{}, ErrInvalidNetwork
	}
	return nc, nil
}

// GetNetworkSnapshot builds the leaderboard for network. The only error it
// returns is ErrInvalidNetwork, in which case nothing was fetched. A credits
// failure produces a degraded snapshot (Success=false) rather than an error.
func (da *DataAggregator) GetNetworkSnapshot(ctx context.Context, network string) (*models.Snapshot, error) {
	nc, err := da.ResolveNetwork(network)
	if err != nil {
		return nil, err
	}

	start := da.now()

	var (
		wg         sync.WaitGroup
		creditsRes Result[[]models.PodCreditsEntry]
		liveRes    Result[map[string]models.PodWithStats]
		liveHost   string
		epochRes   Result[uint64]
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		creditsRes = da.credits.FetchCredits(ctx, nc.CreditsURL)
	}()
	go func() {
		defer wg.Done()
		liveRes, liveHost = da.prpc.FetchLiveStats(ctx, nc.PRPCHosts)
	}()
	go func() {
		defer wg.Done()
		if nc.RPCURL == "" {
			epochRes = Fail[uint64](errors.New("no rpc url configured"))
			return
		}
		epochRes = da.epoch.FetchEpoch(ctx, nc.RPCURL)
	}()
	wg.Wait()

	if !creditsRes.OK() {
		snapshotsTotal.WithLabelValues(network, "degraded").Inc()
		da.logger.Error("Credits unavailable, returning degraded snapshot",
			zap.String("network", network), zap.Error(creditsRes.Err))
		return degradedSnapshot(da.now()), nil
	}

	live := liveRes.ValueOr(nil)
	ranked, total := RankCredits(creditsRes.Value)
	nodes := mergeNodes(ranked, live, da.now().Unix())

	da.enrichLocations(ctx, nodes)

	source := SourceCreditsOnly
	if len(live) > 0 {
		source = SourceCreditsAndPRPC
	}

	snapshot := &models.Snapshot{
		Success:      true,
		Network:      network,
		Source:       source,
		Count:        len(nodes),
		Nodes:        nodes,
		TotalCredits: total,
		Epoch:        epochRes.ValueOr(0),
		Timestamp:    da.now().UTC(),
		Stats:        ComputeAggregateStats(nodes),
	}

	snapshotsTotal.WithLabelValues(network, "success").Inc()
	da.logger.Info("Snapshot built",
		zap.String("network", network),
		zap.String("source", source),
		zap.String("prpc_host", liveHost),
		zap.Int("nodes", len(nodes)),
		zap.Int64("total_credits", total),
		zap.Uint64("epoch", snapshot.Epoch),
		zap.Duration("elapsed", da.now().Sub(start)))

	return snapshot, nil
}

// GetNode returns one node from a fresh snapshot. found is false when the
// identity is not on the leaderboard or the snapshot is degraded.
func (da *DataAggregator) GetNode(ctx context.Context, network, identity string) (*models.NodeRecord, *models.Snapshot, error) {
	snapshot, err := da.GetNetworkSnapshot(ctx, network)
	if err != nil {
		return nil, nil, err
	}
	for _, n := range snapshot.Nodes {
		if n.Identity == identity {
			return n, snapshot, nil
		}
	}
	return nil, snapshot, nil
}

// GetTopCredits ranks the credits list without touching pRPC or geolocation.
func (da *DataAggregator) GetTopCredits(ctx context.Context, network string, limit int) ([]models.RankedCredits, int64, error) {
	nc, err := da.ResolveNetwork(network)
	if err != nil {
		return nil, 0, err
	}
	res := da.credits.FetchCredits(ctx, nc.CreditsURL)
	if !res.OK() {
		return nil, 0, res.Err
	}
	ranked, total := RankCredits(res.Value)
	return TopCredits(ranked, limit), total, nil
}

func degradedSnapshot(now time.Time) *models.Snapshot {
	return &models.Snapshot{
		Success:   false,
		Error:     DegradedMessage,
		Nodes:     []*models.NodeRecord{},
		Timestamp: now.UTC(),
	}
}

// mergeNodes turns ranked credits into records, attaching live stats where
// the pRPC host reported the same pubkey.
func mergeNodes(ranked []models.RankedCredits, live map[string]models.PodWithStats, now int64) []*models.NodeRecord {
	nodes := make([]*models.NodeRecord, 0, len(ranked))

	for _, r := range ranked {
		node := &models.NodeRecord{
			Identity:     r.Pubkey,
			Credits:      r.Credits,
			Rank:         r.Rank,
			NetworkShare: r.NetworkShare,
		}

		if pod, ok := live[r.Pubkey]; ok {
			node.LiveStats = buildLiveStats(pod, now)
			if rate, ok := utils.ActivityRate(r.Credits, pod.Uptime); ok {
				node.ActivityRate = &rate
			}
		}

		nodes = append(nodes, node)
	}
	return nodes
}

func buildLiveStats(pod models.PodWithStats, now int64) *models.LiveStats {
	status, needsUpgrade, _ := utils.CheckVersionStatus(pod.Version, nil)

	return &models.LiveStats{
		IP:                        hostOf(pod.Address),
		Version:                   pod.Version,
		VersionStatus:             status,
		IsUpgradeNeeded:           needsUpgrade,
		IsPublic:                  pod.IsPublic,
		Uptime:                    pod.Uptime,
		UptimeFormatted:           utils.FormatUptime(pod.Uptime),
		StorageCommitted:          pod.StorageCommitted,
		StorageCommittedFormatted: utils.FormatBytes(pod.StorageCommitted),
		StorageUsed:               pod.StorageUsed,
		StorageUsedFormatted:      utils.FormatBytes(pod.StorageUsed),
		StorageUsagePercent:       pod.StorageUsagePercent,
		LastSeen:                  pod.LastSeenTimestamp,
		LastSeenFormatted:         utils.FormatLastSeen(pod.LastSeenTimestamp, now),
	}
}

// hostOf strips the port from an "ip:port" address.
func hostOf(address string) string {
	if host, _, err := net.SplitHostPort(address); err == nil {
		return host
	}
	return address
}

// enrichLocations attaches geolocation to nodes with live stats. IPs are
// considered in rank order; memo hits cost nothing, and at most MaxLookups new
// IPs are resolved per call. Failed lookups are remembered as nil.
func (da *DataAggregator) enrichLocations(ctx context.Context, nodes []*models.NodeRecord) {
	if da.geo == nil || da.geoCache == nil {
		return
	}

	seen := make(map[string]bool)
	var pending []string
	for _, n := range nodes {
		if n.LiveStats == nil || n.LiveStats.IP == "" {
			continue
		}
		ip := n.LiveStats.IP
		if seen[ip] {
			continue
		}
		seen[ip] = true

		if _, found := da.geoCache.Get(ctx, ip); found {
			geoMemoLookupsTotal.WithLabelValues("hit").Inc()
			continue
		}
		geoMemoLookupsTotal.WithLabelValues("miss").Inc()
		pending = append(pending, ip)
	}

	if limit := da.cfg.Geo.MaxLookups; len(pending) > limit {
		da.logger.Debug("Geo lookups capped", zap.Int("pending", len(pending)), zap.Int("max", limit))
		pending = pending[:limit]
	}

	if len(pending) > 0 {
		da.resolveIPs(ctx, pending)
	}

	for _, n := range nodes {
		if n.LiveStats == nil || n.LiveStats.IP == "" {
			continue
		}
		if loc, found := da.geoCache.Get(ctx, n.LiveStats.IP); found && loc != nil {
			cp := *loc
			n.Location = &cp
		}
	}
}

func (da *DataAggregator) resolveIPs(ctx context.Context, ips []string) {
	timeout := da.cfg.GeoTimeoutDuration()

	var g errgroup.Group
	if limit := da.cfg.Geo.Concurrency; limit > 0 {
		g.SetLimit(limit)
	}

	for _, ip := range ips {
		g.Go(func() error {
			lookupCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			loc, err := da.geo.Lookup(lookupCtx, ip)
			observeUpstream(upstreamGeo, start, err)

			if err != nil {
				// An aborted request says nothing about the IP; don't remember it.
				if ctx.Err() != nil {
					return nil
				}
				da.logger.Debug("Geo lookup failed", zap.String("ip", ip), zap.Error(err))
				da.geoCache.Set(ctx, ip, nil)
				return nil
			}
			da.geoCache.Set(ctx, ip, loc)
			return nil
		})
	}
	_ = g.Wait()
}
