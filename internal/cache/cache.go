/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based caching layer for the delivery
// surface: current segments per station/bitrate and now-playing state.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Default TTL values for different cache types
const (
	DefaultSegmentTTL    = 2 * time.Minute
	DefaultNowPlayingTTL = 30 * time.Second
	DefaultStationTTL    = 5 * time.Minute
)

// Key prefixes for Redis cache
const (
	KeySegment    = "skald:cache:segment:"     // + station_id:bitrate:sequence
	KeyNowPlaying = "skald:cache:now_playing:" // + station_id
	KeyStations   = "skald:cache:stations"
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SegmentTTL    time.Duration
	NowPlayingTTL time.Duration
	StationTTL    time.Duration

	// DisableOnError trips a circuit breaker on Redis errors.
	DisableOnError bool
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		SegmentTTL:     DefaultSegmentTTL,
		NowPlayingTTL:  DefaultNowPlayingTTL,
		StationTTL:     DefaultStationTTL,
		DisableOnError: true,
	}
}

// CachedNowPlaying is the delivery-facing now-playing snapshot.
type CachedNowPlaying struct {
	StationID string    `json:"station_id"`
	SceneID   string    `json:"scene_id"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	StartedAt time.Time `json:"started_at"`
}

// Cache provides Redis-backed caching with graceful fallback.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool
}

// New creates a new cache instance. Redis being unreachable is not fatal:
// the cache runs disabled and every lookup misses.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis cache unavailable, running without caching")
		return &Cache{
			logger:   logger.With().Str("component", "cache").Logger(),
			config:   cfg,
			disabled: true,
		}, nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")

	return &Cache{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
		config: cfg,
	}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

// SetSegment caches a delivery-ready segment's bytes under its address.
func (c *Cache) SetSegment(ctx context.Context, stationID string, bitrate int, sequence int64, data []byte) error {
	if !c.IsAvailable() {
		return nil
	}
	key := segmentKey(stationID, bitrate, sequence)
	if err := c.client.Set(ctx, key, data, c.config.SegmentTTL).Err(); err != nil {
		c.handleError(err, "set_segment")
		return err
	}
	return nil
}

// GetSegment returns cached segment bytes, or ok=false on a miss.
func (c *Cache) GetSegment(ctx context.Context, stationID string, bitrate int, sequence int64) ([]byte, bool) {
	if !c.IsAvailable() {
		return nil, false
	}
	data, err := c.client.Get(ctx, segmentKey(stationID, bitrate, sequence)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.handleError(err, "get_segment")
		return nil, false
	}
	return data, true
}

// SetNowPlaying caches the station's now-playing snapshot.
func (c *Cache) SetNowPlaying(ctx context.Context, np CachedNowPlaying) error {
	return c.set(ctx, KeyNowPlaying+np.StationID, np, c.config.NowPlayingTTL)
}

// GetNowPlaying returns the cached snapshot, or ok=false on a miss.
func (c *Cache) GetNowPlaying(ctx context.Context, stationID string) (CachedNowPlaying, bool) {
	var np CachedNowPlaying
	ok, err := c.get(ctx, KeyNowPlaying+stationID, &np)
	if err != nil || !ok {
		return CachedNowPlaying{}, false
	}
	return np, true
}

// SetStationIDs caches the enabled station list.
func (c *Cache) SetStationIDs(ctx context.Context, ids []string) error {
	return c.set(ctx, KeyStations, ids, c.config.StationTTL)
}

// GetStationIDs returns the cached station list, or ok=false on a miss.
func (c *Cache) GetStationIDs(ctx context.Context) ([]string, bool) {
	var ids []string
	ok, err := c.get(ctx, KeyStations, &ids)
	if err != nil || !ok {
		return nil, false
	}
	return ids, true
}

// InvalidateStations drops the cached station list.
func (c *Cache) InvalidateStations(ctx context.Context) {
	if !c.IsAvailable() {
		return
	}
	if err := c.client.Del(ctx, KeyStations).Err(); err != nil {
		c.handleError(err, "invalidate_stations")
	}
}

func segmentKey(stationID string, bitrate int, sequence int64) string {
	return KeySegment + stationID + ":" + strconv.Itoa(bitrate) + ":" + strconv.FormatInt(sequence, 10)
}

// handleError handles Redis errors with circuit breaker logic.
func (c *Cache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

func (c *Cache) get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.IsAvailable() {
		return false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		c.handleError(err, "get")
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false, nil
	}

	return true, nil
}

func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}

	return nil
}
