package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"xanalytics/services"
)

type CacheHandlers struct {
	cache  services.GeoCacheAdmin
	logger *zap.Logger
}

func NewCacheHandlers(cache services.GeoCacheAdmin, logger *zap.Logger) *CacheHandlers {
	return &CacheHandlers{
		cache:  cache,
		logger: logger,
	}
}

// GetCacheStatus returns geolocation memo mode and size
func (h *CacheHandlers) GetCacheStatus(c echo.Context) error {
	stats := h.cache.Stats(c.Request().Context())

	response := map[string]interface{}{
		"mode":   stats["mode"],
		"shared": stats["mode"] == services.CacheModeRedis,
		"stats":  stats,
	}

	return c.JSON(http.StatusOK, response)
}

// ClearCache drops every memoized location, including remembered failures.
func (h *CacheHandlers) ClearCache(c echo.Context) error {
	if err := h.cache.Clear(c.Request().Context()); err != nil {
		h.logger.Error("Failed to clear geo memo", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
	}

	h.logger.Info("Geo memo cleared")
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Cache cleared successfully",
	})
}
