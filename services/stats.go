package services

import (
	"sort"

	"xanalytics/models"
	"xanalytics/utils"
)

// ComputeAggregateStats summarizes a ranked node list. Averages only cover
// nodes that carry the underlying value.
func ComputeAggregateStats(nodes []*models.NodeRecord) *models.AggregateStats {
	stats := &models.AggregateStats{
		TotalNodes:          len(nodes),
		VersionDistribution: []models.VersionCount{},
		CountryDistribution: []models.CountryCount{},
	}

	versions := make(map[string]int)
	countries := make(map[string]*models.CountryCount)

	var uptimeSum int64
	var rateSum float64
	var rateCount int

	for _, n := range nodes {
		if n.ActivityRate != nil {
			rateSum += *n.ActivityRate
			rateCount++
		}

		if n.Location != nil && n.Location.Country != "" {
			cc, ok := countries[n.Location.Country]
			if !ok {
				cc = &models.CountryCount{Country: n.Location.Country, CountryCode: n.Location.CountryCode}
				countries[n.Location.Country] = cc
			}
			cc.Count++
		}

		ls := n.LiveStats
		if ls == nil {
			continue
		}
		stats.ActiveNodes++
		stats.TotalStorageCommitted += ls.StorageCommitted
		stats.TotalStorageUsed += ls.StorageUsed
		uptimeSum += ls.Uptime

		if ls.IsUpgradeNeeded {
			stats.NodesNeedingUpgrade++
		}
		if v := utils.NormalizeVersion(ls.Version); v != "" {
			versions[v]++
		}
	}

	stats.TotalStorageCommittedFormatted = utils.FormatBytes(stats.TotalStorageCommitted)
	stats.TotalStorageUsedFormatted = utils.FormatBytes(stats.TotalStorageUsed)

	if stats.ActiveNodes > 0 {
		stats.AvgUptime = float64(uptimeSum) / float64(stats.ActiveNodes)
	}
	stats.AvgUptimeFormatted = utils.FormatUptime(int64(stats.AvgUptime))

	if rateCount > 0 {
		stats.AvgActivityRate = rateSum / float64(rateCount)
	}

	for v, c := range versions {
		stats.VersionDistribution = append(stats.VersionDistribution, models.VersionCount{Version: v, Count: c})
	}
	// Ties go to the newer version so the mode is deterministic.
	sort.Slice(stats.VersionDistribution, func(i, j int) bool {
		a, b := stats.VersionDistribution[i], stats.VersionDistribution[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return utils.NewerVersion(a.Version, b.Version)
	})
	if len(stats.VersionDistribution) > 0 {
		stats.MostCommonVersion = stats.VersionDistribution[0].Version
		stats.MostCommonVersionCount = stats.VersionDistribution[0].Count
	}

	for _, cc := range countries {
		stats.CountryDistribution = append(stats.CountryDistribution, *cc)
	}
	sort.Slice(stats.CountryDistribution, func(i, j int) bool {
		a, b := stats.CountryDistribution[i], stats.CountryDistribution[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Country < b.Country
	})

	return stats
}
