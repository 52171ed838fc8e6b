package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/salescast/backend-go/internal/config"
	"github.com/salescast/backend-go/internal/domain"
)

const (
	seriesKeyPrefix     = "series"
	seriesScanBatchSize = 100
)

// SeriesCache stores filtered, gap-filled daily series keyed by dataset
// fingerprint and filter selection. Re-filtering a large upload for the
// same selection is the hot path behind every forecast request.
type SeriesCache interface {
	GetSeries(ctx context.Context, fingerprint string, sel domain.FilterSelection) (domain.DailySeries, bool, error)
	SetSeries(ctx context.Context, fingerprint string, sel domain.FilterSelection, s domain.DailySeries) error
	InvalidateDataset(ctx context.Context, fingerprint string) error
}

type redisSeriesCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopSeriesCache struct{}

func NewSeriesCache(cfg config.CacheConfig) (SeriesCache, error) {
	if !cfg.Enabled {
		return &noopSeriesCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisSeriesCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopSeriesCache() SeriesCache {
	return &noopSeriesCache{}
}

func (c *redisSeriesCache) GetSeries(ctx context.Context, fingerprint string, sel domain.FilterSelection) (domain.DailySeries, bool, error) {
	key := buildSeriesKey(fingerprint, sel)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var s domain.DailySeries
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, false, fmt.Errorf("decode series cache: %w", err)
	}

	return s, true, nil
}

func (c *redisSeriesCache) SetSeries(ctx context.Context, fingerprint string, sel domain.FilterSelection, s domain.DailySeries) error {
	key := buildSeriesKey(fingerprint, sel)
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode series cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisSeriesCache) InvalidateDataset(ctx context.Context, fingerprint string) error {
	prefix := fmt.Sprintf("%s:%s:", seriesKeyPrefix, fingerprint)
	return deleteKeysWithPrefix(ctx, c.client, prefix, seriesScanBatchSize)
}

func (n *noopSeriesCache) GetSeries(ctx context.Context, fingerprint string, sel domain.FilterSelection) (domain.DailySeries, bool, error) {
	return nil, false, nil
}

func (n *noopSeriesCache) SetSeries(ctx context.Context, fingerprint string, sel domain.FilterSelection, s domain.DailySeries) error {
	return nil
}

func (n *noopSeriesCache) InvalidateDataset(ctx context.Context, fingerprint string) error {
	return nil
}

func buildSeriesKey(fingerprint string, sel domain.FilterSelection) string {
	return fmt.Sprintf("%s:%s:%s", seriesKeyPrefix, fingerprint, selectionHash(sel))
}

// selectionHash normalizes the selection so logically equal filters share
// one cache entry regardless of code order or whitespace.
func selectionHash(sel domain.FilterSelection) string {
	parts := []string{}

	if !domain.SelectsAll(sel.Departments) {
		parts = append(parts, "departments="+joinCodes(sel.Departments))
	}
	if !domain.SelectsAll(sel.OrderMethods) {
		parts = append(parts, "order_methods="+joinCodes(sel.OrderMethods))
	}
	if !domain.SelectsAll(sel.Products) {
		parts = append(parts, "products="+joinCodes(sel.Products))
	}

	if len(parts) == 0 {
		return "default"
	}

	sort.Strings(parts)
	raw := strings.Join(parts, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func joinCodes(values []string) string {
	c := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		c = append(c, v)
	}
	sort.Strings(c)
	return strings.Join(c, ",")
}
