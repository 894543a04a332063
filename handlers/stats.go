package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetStats returns the aggregate statistics of a snapshot without the node list.
func (h *Handler) GetStats(c echo.Context) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	snapshot, err := h.Aggregator.GetNetworkSnapshot(ctx, network(c))
	if err != nil {
		return h.serviceError(c, err)
	}
	if !snapshot.Success {
		return degraded(c, snapshot)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":      true,
		"network":      snapshot.Network,
		"source":       snapshot.Source,
		"epoch":        snapshot.Epoch,
		"totalCredits": snapshot.TotalCredits,
		"stats":        snapshot.Stats,
		"timestamp":    snapshot.Timestamp,
	})
}
