package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"xanalytics/config"
	"xanalytics/utils"
)

// GetHealth returns OK
func (h *Handler) GetHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// GetStatus returns backend status
func (h *Handler) GetStatus(c echo.Context) error {
	uptime := time.Since(h.startTime)

	status := map[string]interface{}{
		"status":          "running",
		"uptime":          int64(uptime.Seconds()),
		"uptimeFormatted": utils.FormatUptime(int64(uptime.Seconds())),
		"networks":        config.SupportedNetworks,
		"defaultNetwork":  config.DefaultNetwork,
		"minPods":         h.Cfg.PRPC.MinPods,
		"maxGeoLookups":   h.Cfg.Geo.MaxLookups,
		"timestamp":       time.Now().UTC(),
	}
	return c.JSON(http.StatusOK, status)
}
