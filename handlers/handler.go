package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"xanalytics/config"
	"xanalytics/models"
	"xanalytics/services"
)

const (
	invalidNetworkMessage = "Invalid network parameter"
	degradedHeader        = "X-Data-Degraded"
)

type Handler struct {
	Cfg        *config.Config
	Aggregator *services.DataAggregator
	Price      *services.PriceService
	Logger     *zap.Logger

	startTime time.Time
}

func NewHandler(cfg *config.Config, aggregator *services.DataAggregator, price *services.PriceService, logger *zap.Logger) *Handler {
	return &Handler{
		Cfg:        cfg,
		Aggregator: aggregator,
		Price:      price,
		Logger:     logger,
		startTime:  time.Now(),
	}
}

// network reads ?network=, defaulting to mainnet. Validation happens in the
// aggregator so every route shares one allow-list.
func network(c echo.Context) string {
	if n := c.QueryParam("network"); n != "" {
		return n
	}
	return config.DefaultNetwork
}

// requestContext bounds the whole upstream fan-out of one request.
func (h *Handler) requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), h.Cfg.RequestTimeoutDuration())
}

func errorJSON(c echo.Context, status int, message string) error {
	return c.JSON(status, models.ErrorResponse{Success: false, Error: message})
}

// serviceError maps aggregator errors onto responses.
func (h *Handler) serviceError(c echo.Context, err error) error {
	if errors.Is(err, services.ErrInvalidNetwork) {
		return errorJSON(c, http.StatusBadRequest, invalidNetworkMessage)
	}
	h.Logger.Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
	return errorJSON(c, http.StatusInternalServerError, "Internal server error")
}

// degraded writes a degraded snapshot. It is still a 200 so the dashboard can
// render an empty leaderboard with the explanation.
func degraded(c echo.Context, snapshot *models.Snapshot) error {
	c.Response().Header().Set(degradedHeader, "true")
	return c.JSON(http.StatusOK, snapshot)
}
