package services

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"xanalytics/config"
	"xanalytics/models"
)

// GeoCache memoizes IP geolocation across requests. A stored nil location is a
// remembered failure: found is true and the IP is not looked up again.
type GeoCache interface {
	Get(ctx context.Context, ip string) (loc *models.Location, found bool)
	Set(ctx context.Context, ip string, loc *models.Location)
}

// GeoCacheAdmin is the operator view of a memo.
type GeoCacheAdmin interface {
	Stats(ctx context.Context) map[string]interface{}
	Clear(ctx context.Context) error
}

// CacheMode indicates which backend is serving the memo.
type CacheMode string

const (
	CacheModeRedis    CacheMode = "redis"
	CacheModeInMemory CacheMode = "in-memory"
)

// ============================================
// In-memory memo
// ============================================

// MemoryGeoCache is a size-bounded LRU with optional expiry, safe for
// concurrent use.
type MemoryGeoCache struct {
	lru *expirable.LRU[string, *models.Location]
	ttl time.Duration
}

// NewMemoryGeoCache keeps at most size entries. A zero ttl never expires.
func NewMemoryGeoCache(size int, ttl time.Duration) *MemoryGeoCache {
	if size <= 0 {
		size = 1
	}
	return &MemoryGeoCache{
		lru: expirable.NewLRU[string, *models.Location](size, nil, ttl),
		ttl: ttl,
	}
}

func (m *MemoryGeoCache) Get(_ context.Context, ip string) (*models.Location, bool) {
	return m.lru.Get(ip)
}

func (m *MemoryGeoCache) Set(_ context.Context, ip string, loc *models.Location) {
	m.lru.Add(ip, loc)
}

func (m *MemoryGeoCache) Len() int {
	return m.lru.Len()
}

func (m *MemoryGeoCache) Stats(_ context.Context) map[string]interface{} {
	return map[string]interface{}{
		"mode":        CacheModeInMemory,
		"entries":     m.lru.Len(),
		"ttl_seconds": int(m.ttl.Seconds()),
	}
}

func (m *MemoryGeoCache) Clear(_ context.Context) error {
	m.lru.Purge()
	return nil
}

// ============================================
// Redis memo with in-memory fallback
// ============================================

const (
	geoKeyPrefix     = "geo:"
	redisOpTimeout   = 2 * time.Second
	negativeGeoEntry = "null"
)

// RedisGeoCache shares the memo between replicas through Redis and drops to
// the in-memory memo whenever Redis misbehaves. A health check loop switches
// back once Redis answers again.
type RedisGeoCache struct {
	redis    *redis.Client
	ttl      time.Duration
	fallback *MemoryGeoCache
	logger   *zap.Logger

	mode      CacheMode
	modeMutex sync.RWMutex

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewRedisGeoCache connects to the configured Redis. If the first ping fails
// the cache starts in in-memory mode.
func NewRedisGeoCache(cfg *config.Config, logger *zap.Logger) *RedisGeoCache {
	options := &redis.Options{
		Addr:         cfg.Redis.Address,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  redisOpTimeout,
		WriteTimeout: redisOpTimeout,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   1,
	}
	if cfg.Redis.UseTLS {
		options.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	return newRedisGeoCache(redis.NewClient(options), cfg, logger)
}

func newRedisGeoCache(client *redis.Client, cfg *config.Config, logger *zap.Logger) *RedisGeoCache {
	rc := &RedisGeoCache{
		redis:    client,
		ttl:      cfg.GeoCacheTTLDuration(),
		fallback: NewMemoryGeoCache(cfg.Geo.CacheSize, cfg.GeoCacheTTLDuration()),
		logger:   logger,
		mode:     CacheModeInMemory,
		stopChan: make(chan struct{}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rc.redis.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis connection failed, geo memo running in memory", zap.String("address", client.Options().Addr), zap.Error(err))
		return rc
	}

	logger.Info("Redis connected, geo memo shared", zap.String("address", client.Options().Addr))
	rc.setMode(CacheModeRedis)
	return rc
}

func (rc *RedisGeoCache) setMode(mode CacheMode) {
	rc.modeMutex.Lock()
	defer rc.modeMutex.Unlock()

	if rc.mode != mode {
		rc.mode = mode
		rc.logger.Info("Geo memo mode changed", zap.String("mode", string(mode)))
	}
}

func (rc *RedisGeoCache) Mode() CacheMode {
	rc.modeMutex.RLock()
	defer rc.modeMutex.RUnlock()
	return rc.mode
}

// StartHealthCheck pings Redis every interval and flips the mode accordingly.
func (rc *RedisGeoCache) StartHealthCheck(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rc.checkHealth()
			case <-rc.stopChan:
				return
			}
		}
	}()
}

func (rc *RedisGeoCache) checkHealth() {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := rc.redis.Ping(ctx).Err(); err != nil {
		if rc.Mode() == CacheModeRedis {
			rc.logger.Warn("Redis health check failed", zap.Error(err))
		}
		rc.setMode(CacheModeInMemory)
		return
	}
	rc.setMode(CacheModeRedis)
}

func (rc *RedisGeoCache) Close() error {
	rc.stopOnce.Do(func() { close(rc.stopChan) })
	return rc.redis.Close()
}

func (rc *RedisGeoCache) Get(ctx context.Context, ip string) (*models.Location, bool) {
	if rc.Mode() != CacheModeRedis {
		return rc.fallback.Get(ctx, ip)
	}

	loc, found, err := rc.getRedis(ctx, ip)
	if err != nil {
		rc.logger.Warn("Redis GET failed, checking in-memory", zap.String("ip", ip), zap.Error(err))
		rc.setMode(CacheModeInMemory)
		return rc.fallback.Get(ctx, ip)
	}
	return loc, found
}

func (rc *RedisGeoCache) Set(ctx context.Context, ip string, loc *models.Location) {
	// The local copy keeps the memo warm if Redis drops out later.
	rc.fallback.Set(ctx, ip, loc)

	if rc.Mode() != CacheModeRedis {
		return
	}
	if err := rc.setRedis(ctx, ip, loc); err != nil {
		rc.logger.Warn("Redis SET failed, kept in-memory", zap.String("ip", ip), zap.Error(err))
		rc.setMode(CacheModeInMemory)
	}
}

func (rc *RedisGeoCache) getRedis(ctx context.Context, ip string) (*models.Location, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	raw, err := rc.redis.Get(ctx, geoKeyPrefix+ip).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if raw == negativeGeoEntry {
		return nil, true, nil
	}

	var loc models.Location
	if err := json.Unmarshal([]byte(raw), &loc); err != nil {
		return nil, false, fmt.Errorf("corrupt geo entry for %s: %w", ip, err)
	}
	return &loc, true, nil
}

func (rc *RedisGeoCache) setRedis(ctx context.Context, ip string, loc *models.Location) error {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	value := negativeGeoEntry
	if loc != nil {
		data, err := json.Marshal(loc)
		if err != nil {
			return fmt.Errorf("failed to marshal location: %w", err)
		}
		value = string(data)
	}
	return rc.redis.Set(ctx, geoKeyPrefix+ip, value, rc.ttl).Err()
}

func (rc *RedisGeoCache) Stats(ctx context.Context) map[string]interface{} {
	stats := map[string]interface{}{
		"mode":              rc.Mode(),
		"in_memory_entries": rc.fallback.Len(),
		"ttl_seconds":       int(rc.ttl.Seconds()),
	}

	if rc.Mode() == CacheModeRedis {
		ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
		defer cancel()
		if n, err := rc.countRedisKeys(ctx); err == nil {
			stats["redis_entries"] = n
		} else {
			stats["redis_error"] = err.Error()
		}
	}
	return stats
}

func (rc *RedisGeoCache) countRedisKeys(ctx context.Context) (int, error) {
	n := 0
	iter := rc.redis.Scan(ctx, 0, geoKeyPrefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		n++
	}
	return n, iter.Err()
}

// Clear drops the local memo and every geo key in Redis.
func (rc *RedisGeoCache) Clear(ctx context.Context) error {
	rc.fallback.Clear(ctx)

	if rc.Mode() != CacheModeRedis {
		return nil
	}

	iter := rc.redis.Scan(ctx, 0, geoKeyPrefix+"*", 500).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan geo keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := rc.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete geo keys: %w", err)
	}
	rc.logger.Info("Cleared geo memo", zap.Int("redis_keys", len(keys)))
	return nil
}
