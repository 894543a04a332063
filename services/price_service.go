package services

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"xanalytics/config"
	"xanalytics/models"
)

const coinGeckoID = "xandeum"

// PriceService reads the token price from CoinGecko.
type PriceService struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewPriceService(cfg *config.Config, logger *zap.Logger) *PriceService {
	return &PriceService{
		url:        cfg.Price.URL,
		httpClient: &http.Client{Timeout: cfg.PriceTimeoutDuration()},
		logger:     logger,
	}
}

// FetchPrice returns the USD price and 24h change. On failure the result
// carries the error and a zero price.
func (ps *PriceService) FetchPrice(ctx context.Context) Result[models.XandPrice] {
	start := time.Now()

	var resp models.CoinGeckoPriceResponse
	err := getJSON(ctx, ps.httpClient, ps.url, &resp)
	observeUpstream(upstreamPrice, start, err)
	if err != nil {
		ps.logger.Warn("Failed to fetch price", zap.Error(err))
		return Result[models.XandPrice]{Err: err}
	}

	return Ok(resp[coinGeckoID])
}
