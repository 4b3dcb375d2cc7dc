// Package cache содержит кэш готовых недельных отчётов в Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkarpenko/attendance-system/internal/report"
)

// reportTTL — время жизни закэшированного отчёта. Отчёт по открытой неделе
// меняется с каждой отметкой, поэтому TTL короткий.
const reportTTL = time.Minute

// ReportCache описывает контракт кэша недельных отчётов.
// Get возвращает nil без ошибки, если отчёта в кэше нет.
type ReportCache interface {
	Get(ctx context.Context, weekKey string) (*report.WeeklyReport, error)
	Set(ctx context.Context, rep *report.WeeklyReport) error
}

// RedisReportCache хранит сериализованные отчёты в Redis.
type RedisReportCache struct {
	client *redis.Client
}

// NewRedisReportCache создаёт кэш отчётов и проверяет соединение с Redis.
func NewRedisReportCache(addr string) (*RedisReportCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisReportCache{client: client}, nil
}

// Close закрывает соединение с Redis.
func (c *RedisReportCache) Close() error {
	return c.client.Close()
}

func reportKey(weekKey string) string {
	return "report:week:" + weekKey
}

// Get возвращает отчёт по неделе или nil, если его нет в кэше.
func (c *RedisReportCache) Get(ctx context.Context, weekKey string) (*report.WeeklyReport, error) {
	data, err := c.client.Get(ctx, reportKey(weekKey)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get report from cache: %w", err)
	}

	var rep report.WeeklyReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("unmarshal cached report: %w", err)
	}

	return &rep, nil
}

// Set сохраняет отчёт в кэш с коротким TTL.
func (c *RedisReportCache) Set(ctx context.Context, rep *report.WeeklyReport) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if err := c.client.Set(ctx, reportKey(rep.WeekKey), data, reportTTL).Err(); err != nil {
		return fmt.Errorf("set report in cache: %w", err)
	}

	return nil
}
