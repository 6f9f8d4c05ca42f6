package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"tokoisi/backend/internal/domain"
)

// KeyPrefix namespaces every report key so the cache can share a redis
// database with other applications.
const KeyPrefix = "tokoisi:report:"

// reportSchemaVersion changes whenever domain.SalesReport changes shape.
// Entries written under another version read as misses.
const reportSchemaVersion = 1

type cachedReport struct {
	Version int                `json:"v"`
	Report  domain.SalesReport `json:"report"`
}

type RedisReportCache struct {
	client *redis.Client
}

func NewRedisReportCache(addr string, password string, db int) *RedisReportCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisReportCache{client: client}
}

func (c *RedisReportCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisReportCache) Close() error {
	return c.client.Close()
}

func (c *RedisReportCache) Get(ctx context.Context, key string) (*domain.SalesReport, bool, error) {
	val, err := c.client.Get(ctx, KeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return decodeReport(val)
}

func (c *RedisReportCache) Set(ctx context.Context, key string, value *domain.SalesReport, ttl time.Duration) error {
	if value == nil || ttl <= 0 {
		return nil
	}
	payload, err := encodeReport(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, KeyPrefix+key, payload, ttl).Err()
}

func encodeReport(report *domain.SalesReport) ([]byte, error) {
	return json.Marshal(cachedReport{Version: reportSchemaVersion, Report: *report})
}

func decodeReport(payload []byte) (*domain.SalesReport, bool, error) {
	var entry cachedReport
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, false, err
	}
	if entry.Version != reportSchemaVersion {
		return nil, false, nil
	}
	return &entry.Report, true, nil
}
