package cachestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linkmint/linkmint/internal/config"
)

// cacheConnectTimeout is the timeout for establishing redis connection.
const cacheConnectTimeout = 15 * time.Second

// Entry is the cached view of a resolved link. The expiry stamp travels with
// the destination so a hit can be validated without touching the database.
type Entry struct {
	OriginalURL string    `json:"url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Cache is a derived, disposable view over the link store. Entries are keyed
// by short code and never outlive the record's expiry.
type Cache struct {
	rdb     *redis.Client
	metrics Metrics
	logger  *slog.Logger
	cfg     config.Redis
}

func NewCache(ctx context.Context, logger *slog.Logger, cfg config.Redis) (*Cache, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	ctx, cancel := context.WithTimeout(ctx, cacheConnectTimeout)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		PoolSize: cfg.PoolSize,
	})

	c := &Cache{
		rdb:     rdb,
		logger:  logger,
		metrics: NewMetrics(),
		cfg:     cfg,
	}

	if err := c.Ping(ctx); err != nil {
		return nil, fmt.Errorf("cache: failed to ping redis: %w", err)
	}

	// Set LFU eviction policy. This is best-effort. If it fails (e.g., permissions, old Redis version),
	// log a warning but continue. For this to have an effect, `maxmemory` must be set on the Redis server.
	// Popular short links should survive memory pressure longest, which is exactly what
	// least-frequently-used eviction gives us.
	err := rdb.ConfigSet(ctx, "maxmemory-policy", "allkeys-lfu").Err()
	if err != nil {
		logger.Warn("could not set redis maxmemory-policy to allkeys-lfu, ensure it is configured on the server", "error", err)
	}

	return c, nil
}

// Ping loops until the connection is confirmed or the context ends.
func (c *Cache) Ping(ctx context.Context) error {
	ticker := time.NewTicker(time.Second * 1)
	defer ticker.Stop()

	for {
		_, err := c.rdb.Ping(ctx).Result()
		if err == nil {
			break // Ping successful.
		}

		c.logger.Warn("unable to establish connection, retrying...", "error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("redis connection timed out or was cancelled: %w (last error: %v)", ctx.Err(), err)
		case <-ticker.C:
		}
	}
	return nil
}

// GetLink retrieves a cached entry. It returns redis.Nil if the key does not exist.
func (c *Cache) GetLink(ctx context.Context, shortCode string) (Entry, error) {
	raw, err := c.rdb.Get(ctx, c.toInternalKey(shortCode)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.metrics.Misses.WithLabelValues(c.cfg.URLPrefix).Inc()
		}
		return Entry{}, err
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// A corrupt entry behaves like a miss; the resolver will repopulate it.
		c.metrics.Misses.WithLabelValues(c.cfg.URLPrefix).Inc()
		return Entry{}, redis.Nil
	}

	c.metrics.Hits.WithLabelValues(c.cfg.URLPrefix).Inc()
	return entry, nil
}

// SetLink caches a resolved link. The key TTL is the configured cache TTL
// capped by the record's remaining lifetime, so stale entries self-evict no
// later than the link expires.
func (c *Cache) SetLink(ctx context.Context, shortCode, originalURL string, expiresAt, now time.Time) error {
	ttl := c.cfg.URLTTL
	if until := expiresAt.Sub(now); until < ttl {
		ttl = until
	}
	if ttl <= 0 {
		return nil // Already expired; nothing worth caching.
	}

	raw, err := json.Marshal(Entry{OriginalURL: originalURL, ExpiresAt: expiresAt})
	if err != nil {
		return fmt.Errorf("cache: marshal entry: %w", err)
	}
	return c.rdb.Set(ctx, c.toInternalKey(shortCode), raw, ttl).Err()
}

// Invalidate drops the entries for the given short codes. Used on delete and
// by the reaper.
func (c *Cache) Invalidate(ctx context.Context, shortCodes ...string) error {
	if len(shortCodes) == 0 {
		return nil
	}
	keys := make([]string, len(shortCodes))
	for i, code := range shortCodes {
		keys[i] = c.toInternalKey(code)
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *Cache) toInternalKey(s string) string {
	return fmt.Sprintf("%s:%s", c.cfg.URLPrefix, s)
}

func (c *Cache) Close() {
	_ = c.rdb.Close()
}
