// Package ratelimit provides a distributed, Redis-backed rate limiter
// for the geo Call surface, keyed by tenant (app) id rather than by a
// single global client: each tenant's callers share one minute/hour
// budget.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default limits, generous relative to the zmanim-API external
// surface this is grounded on, since a single geo tenant may be many
// end-user devices polling UpdatePoint.
const (
	DefaultMinuteLimit = 600
	DefaultHourLimit   = 20000
)

// Result is the outcome of a Check call.
type Result struct {
	Allowed         bool
	MinuteRemaining int
	HourRemaining   int
	MinuteReset     int64
	HourReset       int64
	RetryAfter      int
}

// Limiter is a Redis-backed token counter over fixed minute/hour
// windows.
type Limiter struct {
	redis *redis.Client
}

// New wraps a Redis client as a Limiter.
func New(client *redis.Client) *Limiter {
	return &Limiter{redis: client}
}

// Check applies the default limits for app.
func (l *Limiter) Check(ctx context.Context, app string) (*Result, error) {
	return l.CheckWithLimits(ctx, app, DefaultMinuteLimit, DefaultHourLimit)
}

// CheckWithLimits applies a custom (minute, hour) budget for app. On
// any Redis error, the limiter fails open: the request is allowed and
// the error is logged, since an outage in the rate limiter should not
// take down the geo API.
func (l *Limiter) CheckWithLimits(ctx context.Context, app string, minuteLimit, hourLimit int) (*Result, error) {
	minuteKey := fmt.Sprintf("ratelimit:%s:minute", app)
	hourKey := fmt.Sprintf("ratelimit:%s:hour", app)
	now := time.Now()

	minuteCount, minuteTTL, err := l.incrementAndGetTTL(ctx, minuteKey, time.Minute)
	if err != nil {
		slog.Warn("rate limiter: redis error on minute check, allowing request", "app", app, "error", err)
		return failOpen(now, minuteLimit, hourLimit), nil
	}
	hourCount, hourTTL, err := l.incrementAndGetTTL(ctx, hourKey, time.Hour)
	if err != nil {
		slog.Warn("rate limiter: redis error on hour check, allowing request", "app", app, "error", err)
		return failOpen(now, minuteLimit, hourLimit), nil
	}

	minuteRemaining := clampNonNegative(minuteLimit - int(minuteCount))
	hourRemaining := clampNonNegative(hourLimit - int(hourCount))
	allowed := minuteCount <= int64(minuteLimit) && hourCount <= int64(hourLimit)

	retryAfter := 0
	if !allowed {
		if minuteCount > int64(minuteLimit) {
			retryAfter = int(minuteTTL.Seconds())
		} else {
			retryAfter = int(hourTTL.Seconds())
		}
		slog.Info("rate limit exceeded", "app", app, "minute_count", minuteCount, "hour_count", hourCount, "retry_after", retryAfter)
	}

	return &Result{
		Allowed:         allowed,
		MinuteRemaining: minuteRemaining,
		HourRemaining:   hourRemaining,
		MinuteReset:     now.Add(minuteTTL).Unix(),
		HourReset:       now.Add(hourTTL).Unix(),
		RetryAfter:      retryAfter,
	}, nil
}

func failOpen(now time.Time, minuteLimit, hourLimit int) *Result {
	return &Result{
		Allowed:         true,
		MinuteRemaining: minuteLimit,
		HourRemaining:   hourLimit,
		MinuteReset:     now.Add(time.Minute).Unix(),
		HourReset:       now.Add(time.Hour).Unix(),
	}
}

func clampNonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// incrementAndGetTTL atomically increments key and arms its TTL on
// first use, via a Lua script so the increment and the TTL read are
// one round trip.
func (l *Limiter) incrementAndGetTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	script := redis.NewScript(`
		local count = redis.call('INCR', KEYS[1])
		local ttl = redis.call('TTL', KEYS[1])
		if count == 1 or ttl == -1 then
			redis.call('EXPIRE', KEYS[1], ARGV[1])
			ttl = tonumber(ARGV[1])
		end
		return {count, ttl}
	`)

	result, err := script.Run(ctx, l.redis, []string{key}, int(window.Seconds())).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("ratelimit: increment script: %w", err)
	}

	resultSlice, ok := result.([]interface{})
	if !ok || len(resultSlice) != 2 {
		return 0, 0, fmt.Errorf("ratelimit: unexpected script result: %v", result)
	}
	count, ok := resultSlice[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("ratelimit: unexpected count type: %v", resultSlice[0])
	}
	ttlSeconds, ok := resultSlice[1].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("ratelimit: unexpected ttl type: %v", resultSlice[1])
	}
	return count, time.Duration(ttlSeconds) * time.Second, nil
}

// Reset clears an app's rate limit counters. Operator function.
func (l *Limiter) Reset(ctx context.Context, app string) error {
	pipe := l.redis.Pipeline()
	pipe.Del(ctx, fmt.Sprintf("ratelimit:%s:minute", app))
	pipe.Del(ctx, fmt.Sprintf("ratelimit:%s:hour", app))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ratelimit: reset: %w", err)
	}
	return nil
}
