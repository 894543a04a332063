package services

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"

	"xanalytics/config"
	"xanalytics/models"
)

// CreditsService fetches the per-pod credits list. It is the authoritative
// roster of the leaderboard.
type CreditsService struct {
	httpClient *http.Client
	logger     *zap.Logger
}

func NewCreditsService(cfg *config.Config, logger *zap.Logger) *CreditsService {
	return &CreditsService{
		httpClient: &http.Client{
			Timeout: cfg.CreditsTimeoutDuration(),
		},
		logger: logger,
	}
}

// FetchCredits downloads the raw credits list from url.
func (cs *CreditsService) FetchCredits(ctx context.Context, url string) Result[[]models.PodCreditsEntry] {
	start := time.Now()

	var creditsResp models.PodCreditsResponse
	err := getJSON(ctx, cs.httpClient, url, &creditsResp)
	if err == nil && creditsResp.Status != "" && creditsResp.Status != "success" {
		err = fmt.Errorf("%w: credits status %q", ErrUpstreamStatus, creditsResp.Status)
	}
	observeUpstream(upstreamCredits, start, err)

	if err != nil {
		cs.logger.Error("Error fetching pod credits", zap.String("url", url), zap.Error(err))
		return Fail[[]models.PodCreditsEntry](fmt.Errorf("fetch credits: %w", err))
	}

	cs.logger.Debug("Fetched pod credits", zap.Int("entries", len(creditsResp.PodsCredits)))
	return Ok(creditsResp.PodsCredits)
}

// RankCredits drops entries without positive credits, orders the rest by
// credits descending (stable, so equal credits keep upstream order) and assigns
// 1-based ranks. Duplicate pod ids keep their highest value. The returned total
// is the sum over the ranked entries.
func RankCredits(entries []models.PodCreditsEntry) ([]models.RankedCredits, int64) {
	index := make(map[string]int, len(entries))
	ranked := make([]models.RankedCredits, 0, len(entries))

	for _, e := range entries {
		if e.Credits <= 0 || e.PodID == "" {
			continue
		}
		if i, ok := index[e.PodID]; ok {
			if e.Credits > ranked[i].Credits {
				ranked[i].Credits = e.Credits
			}
			continue
		}
		index[e.PodID] = len(ranked)
		ranked = append(ranked, models.RankedCredits{Pubkey: e.PodID, Credits: e.Credits})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Credits > ranked[j].Credits
	})

	var total int64
	for _, r := range ranked {
		total += r.Credits
	}

	for i := range ranked {
		ranked[i].Rank = i + 1
		if total > 0 {
			ranked[i].NetworkShare = float64(ranked[i].Credits) / float64(total) * 100
		}
	}

	return ranked, total
}

// TopCredits returns the first limit ranked entries. A non-positive limit
// returns everything.
func TopCredits(ranked []models.RankedCredits, limit int) []models.RankedCredits {
	if limit <= 0 || limit > len(ranked) {
		return ranked
	}
	return ranked[:limit]
}
