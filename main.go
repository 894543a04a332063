package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"xanalytics/config"
	"xanalytics/handlers"
	"xanalytics/middleware"
	"xanalytics/services"
	"xanalytics/utils"
)

func main() {
	// 1. Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)),
		zap.Int("prpc_min_pods", cfg.PRPC.MinPods),
		zap.Int("geo_max_lookups", cfg.Geo.MaxLookups),
		zap.Bool("redis", cfg.Redis.Enabled))

	// 2. Geolocation
	geo := utils.NewGeoResolver(cfg.Geo.DBPath, cfg.Geo.APIURL, cfg.GeoTimeoutDuration(), logger)
	defer geo.Close()
	if geo.HasDatabase() {
		logger.Info("GeoIP database loaded", zap.String("path", cfg.Geo.DBPath))
	}

	// Geo memo (Redis when enabled, in-memory otherwise)
	var geoCache interface {
		services.GeoCache
		services.GeoCacheAdmin
	}
	if cfg.Redis.Enabled {
		redisCache := services.NewRedisGeoCache(cfg, logger)
		redisCache.StartHealthCheck(30 * time.Second)
		defer redisCache.Close()
		geoCache = redisCache
	} else {
		geoCache = services.NewMemoryGeoCache(cfg.Geo.CacheSize, cfg.GeoCacheTTLDuration())
	}

	// 3. Upstream clients and aggregator
	aggregator := services.NewDataAggregator(cfg,
		services.NewCreditsService(cfg, logger),
		services.NewPRPCClient(cfg, logger),
		services.NewEpochClient(cfg, logger),
		geo, geoCache, logger)
	price := services.NewPriceService(cfg, logger)

	// 4. Web server
	h := handlers.NewHandler(cfg, aggregator, price, logger)
	cacheHandlers := handlers.NewCacheHandlers(geoCache, logger)
	e := newServer(cfg, logger, h, cacheHandlers)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		logger.Info("Server running", zap.String("addr", "http://"+serverAddr))
		if err := e.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	// 5. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("Graceful shutdown initiated")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	logger.Info("Server exited cleanly")
}

// newServer wires middleware and routes.
func newServer(cfg *config.Config, logger *zap.Logger, h *handlers.Handler, cacheHandlers *handlers.CacheHandlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("Recovered from panic", zap.Error(err), zap.ByteString("stack", stack))
			return err
		},
	}))
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(middleware.LoggerMiddleware(logger))
	e.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	e.Use(middleware.MetricsMiddleware())

	// System
	e.GET("/health", h.GetHealth)
	e.GET("/kaithhealthcheck", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/cache/status", cacheHandlers.GetCacheStatus)
	e.POST("/cache/clear", cacheHandlers.ClearCache)

	api := e.Group("/api", middleware.RateLimitMiddleware(cfg.RateLimit.RequestsPerMinute))

	api.GET("/status", h.GetStatus)
	api.GET("/pnodes", h.GetPNodes)
	api.GET("/pnodes/:identity", h.GetPNode)
	api.GET("/compare", h.CompareNodes)
	api.GET("/stats", h.GetStats)
	api.GET("/credits/top", h.GetTopCredits)
	api.GET("/price", h.GetPrice)

	return e
}
