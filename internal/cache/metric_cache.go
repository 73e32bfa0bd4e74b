package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andresuchdata/retail-forecast/backend-go/internal/config"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	modelMetricsKeyPrefix = "forecast:model_metrics"
	metricsScanBatchSize  = 100
)

// MetricCache caches per-product model metric history read by the selector.
type MetricCache interface {
	GetMetrics(ctx context.Context, productID int64) ([]domain.ModelMetric, bool, error)
	SetMetrics(ctx context.Context, productID int64, metrics []domain.ModelMetric) error
	InvalidateAll(ctx context.Context) error
}

type redisMetricCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopMetricCache struct{}

// NewMetricCache returns a redis-backed cache, or a noop one when client is nil.
func NewMetricCache(client *redis.Client, cfg config.CacheConfig) MetricCache {
	if client == nil {
		return &noopMetricCache{}
	}

	return &redisMetricCache{
		client: client,
		ttl:    ttlFromConfig(cfg),
	}
}

func NewNoopMetricCache() MetricCache {
	return &noopMetricCache{}
}

func (c *redisMetricCache) GetMetrics(ctx context.Context, productID int64) ([]domain.ModelMetric, bool, error) {
	payload, err := c.client.Get(ctx, modelMetricsKey(productID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var metrics []domain.ModelMetric
	if err := json.Unmarshal(payload, &metrics); err != nil {
		return nil, false, fmt.Errorf("decode model metrics cache: %w", err)
	}

	return metrics, true, nil
}

func (c *redisMetricCache) SetMetrics(ctx context.Context, productID int64, metrics []domain.ModelMetric) error {
	if metrics == nil {
		metrics = []domain.ModelMetric{}
	}
	payload, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("encode model metrics cache: %w", err)
	}

	if err := c.client.Set(ctx, modelMetricsKey(productID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisMetricCache) InvalidateAll(ctx context.Context) error {
	return unlinkByPrefix(ctx, c.client, modelMetricsKeyPrefix+":", metricsScanBatchSize)
}

func (n *noopMetricCache) GetMetrics(ctx context.Context, productID int64) ([]domain.ModelMetric, bool, error) {
	return nil, false, nil
}

func (n *noopMetricCache) SetMetrics(ctx context.Context, productID int64, metrics []domain.ModelMetric) error {
	return nil
}

func (n *noopMetricCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func modelMetricsKey(productID int64) string {
	return fmt.Sprintf("%s:%d", modelMetricsKeyPrefix, productID)
}
