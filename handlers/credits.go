package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"xanalytics/services"
)

const (
	defaultTopLimit = 10
	maxTopLimit     = 500
)

// GetTopCredits returns the ranked credits list only; no pRPC or geolocation
// calls are made.
func (h *Handler) GetTopCredits(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = defaultTopLimit
	}
	if limit > maxTopLimit {
		limit = maxTopLimit
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	name := network(c)
	top, total, err := h.Aggregator.GetTopCredits(ctx, name, limit)
	if err != nil {
		if errors.Is(err, services.ErrInvalidNetwork) {
			return h.serviceError(c, err)
		}
		h.Logger.Warn("Top credits unavailable", zap.String("network", name), zap.Error(err))
		return errorJSON(c, http.StatusBadGateway, services.DegradedMessage)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":      true,
		"network":      name,
		"count":        len(top),
		"totalCredits": total,
		"credits":      top,
		"timestamp":    time.Now().UTC(),
	})
}
