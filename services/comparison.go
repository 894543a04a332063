package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"xanalytics/models"
)

// MaxCompareNodes is the most identities one comparison accepts.
const MaxCompareNodes = 5

var (
	ErrNoIdentities      = errors.New("no node identities given")
	ErrTooManyIdentities = fmt.Errorf("at most %d nodes can be compared", MaxCompareNodes)
)

// ParseIdentities splits a comma separated id list, trimming blanks and
// duplicates while keeping the caller's order.
func ParseIdentities(raw string) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		id := strings.TrimSpace(part)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return nil, ErrNoIdentities
	}
	if len(ids) > MaxCompareNodes {
		return nil, ErrTooManyIdentities
	}
	return ids, nil
}

// CompareNodes builds a side-by-side comparison from a fresh snapshot. The
// returned snapshot is the one the comparison was cut from, so callers can
// report a degraded upstream.
func (da *DataAggregator) CompareNodes(ctx context.Context, network string, ids []string) (*models.NodeComparison, *models.Snapshot, error) {
	snapshot, err := da.GetNetworkSnapshot(ctx, network)
	if err != nil {
		return nil, nil, err
	}
	return BuildComparison(snapshot, ids), snapshot, nil
}

// BuildComparison picks ids out of snapshot, in rank order, and marks the best
// node per metric. Ties keep the better-ranked node.
func BuildComparison(snapshot *models.Snapshot, ids []string) *models.NodeComparison {
	cmp := &models.NodeComparison{
		Network: snapshot.Network,
		Nodes:   []*models.NodeRecord{},
		Missing: []string{},
	}

	byID := make(map[string]*models.NodeRecord, len(snapshot.Nodes))
	for _, n := range snapshot.Nodes {
		byID[n.Identity] = n
	}

	for _, id := range ids {
		if n, ok := byID[id]; ok {
			cmp.Nodes = append(cmp.Nodes, n)
		} else {
			cmp.Missing = append(cmp.Missing, id)
		}
	}

	sort.SliceStable(cmp.Nodes, func(i, j int) bool {
		return cmp.Nodes[i].Rank < cmp.Nodes[j].Rank
	})

	var bestCredits, bestUptime int64
	var bestRate float64
	for _, n := range cmp.Nodes {
		if n.Credits > bestCredits {
			bestCredits = n.Credits
			cmp.BestCredits = n.Identity
		}
		if n.LiveStats != nil && n.LiveStats.Uptime > bestUptime {
			bestUptime = n.LiveStats.Uptime
			cmp.BestUptime = n.Identity
		}
		if n.ActivityRate != nil && *n.ActivityRate > bestRate {
			bestRate = *n.ActivityRate
			cmp.BestActivityRate = n.Identity
		}
	}

	return cmp
}
