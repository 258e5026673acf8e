package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/buildersacademyai/prompto-sub000/internal/monitoring"
	"github.com/buildersacademyai/prompto-sub000/internal/resilience"
	"github.com/go-redis/redis_rate/v10"
	"golang.org/x/time/rate"
)

// Config holds rate limiter configuration
type Config struct {
	IPLimitPerMin         int // requests per client IP per minute
	OperatorLimitPerMin   int // config publishes and settlement batches per operator per minute
	BurstMultiplier       int // in-memory burst capacity as a multiple of the limit
	MaxFallbackLimiters   int
	FallbackCleanupPeriod time.Duration
	RedisBreaker          resilience.CircuitBreakerConfig
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() Config {
	return Config{
		IPLimitPerMin:         120,
		OperatorLimitPerMin:   30,
		BurstMultiplier:       1,
		MaxFallbackLimiters:   10000,
		FallbackCleanupPeriod: time.Hour,
		RedisBreaker:          resilience.DefaultCircuitBreakerConfig(),
	}
}

// Rate is a number of requests allowed per period
type Rate struct {
	Limit  int
	Period time.Duration
}

// PerMinute builds a per-minute Rate
func PerMinute(limit int) Rate {
	return Rate{Limit: limit, Period: time.Minute}
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RateLimiter provides distributed rate limiting with Redis and in-memory fallback
type RateLimiter struct {
	redisLimiter *redis_rate.Limiter
	redisClient  *RedisClient
	breaker      *resilience.CircuitBreaker
	config       Config
	metrics      *monitoring.Metrics

	fallbackLimiters map[string]*rate.Limiter
	fallbackMutex    sync.Mutex

	stop      chan struct{}
	closeOnce sync.Once
}

// NewRateLimiter creates a new rate limiter with Redis and in-memory fallback
func NewRateLimiter(redisClient *RedisClient, config Config, metrics *monitoring.Metrics) *RateLimiter {
	if config.BurstMultiplier < 1 {
		config.BurstMultiplier = 1
	}
	if config.FallbackCleanupPeriod <= 0 {
		config.FallbackCleanupPeriod = time.Hour
	}
	if config.MaxFallbackLimiters <= 0 {
		config.MaxFallbackLimiters = DefaultConfig().MaxFallbackLimiters
	}

	rl := &RateLimiter{
		redisClient:      redisClient,
		breaker:          resilience.NewCircuitBreaker("redis_rate_limit", config.RedisBreaker),
		config:           config,
		metrics:          metrics,
		fallbackLimiters: make(map[string]*rate.Limiter),
		stop:             make(chan struct{}),
	}

	if redisClient.IsEnabled() {
		rl.redisLimiter = redis_rate.NewLimiter(redisClient.GetClient())
		slog.Info("Redis rate limiter initialized")
	} else {
		slog.Warn("Redis unavailable, using in-memory rate limiting only")
	}

	go rl.cleanupFallbackLimiters()

	return rl
}

// AllowIP checks the per-minute limit of a client IP
func (rl *RateLimiter) AllowIP(ctx context.Context, ip string) (*Result, error) {
	return rl.Allow(ctx, "ratelimit:ip:"+ip, PerMinute(rl.config.IPLimitPerMin))
}

// AllowOperator checks the per-minute write limit of an authenticated operator
func (rl *RateLimiter) AllowOperator(ctx context.Context, operator string) (*Result, error) {
	return rl.Allow(ctx, "ratelimit:operator:"+operator, PerMinute(rl.config.OperatorLimitPerMin))
}

// Allow checks key against r using Redis, or the in-memory limiter when Redis is unavailable
func (rl *RateLimiter) Allow(ctx context.Context, key string, r Rate) (*Result, error) {
	if r.Limit <= 0 || r.Period <= 0 {
		return nil, fmt.Errorf("invalid rate %d per %s", r.Limit, r.Period)
	}

	if rl.redisClient.IsEnabled() && rl.redisLimiter != nil {
		var result *Result
		err := rl.breaker.Call(func() error {
			var err error
			result, err = rl.allowRedis(ctx, key, r)
			return err
		})
		if err == nil {
			return result, nil
		}

		// An open breaker skips Redis without counting another error
		if !errors.Is(err, resilience.ErrCircuitOpen) {
			slog.Warn("Redis rate limit check failed, using fallback", "key", key, "error", err)
			if rl.metrics != nil {
				rl.metrics.IncrementRateLimitRedisError()
			}
		}
	}

	if rl.metrics != nil {
		rl.metrics.IncrementRateLimitFallback()
	}
	return rl.allowFallback(key, r), nil
}

// allowRedis performs rate limiting using the redis_rate GCRA limiter
func (rl *RateLimiter) allowRedis(ctx context.Context, key string, r Rate) (*Result, error) {
	res, err := rl.redisLimiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   r.Limit,
		Burst:  r.Limit,
		Period: r.Period,
	})
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}

	return &Result{
		Allowed:    res.Allowed > 0,
		Limit:      res.Limit.Rate,
		Remaining:  res.Remaining,
		ResetAt:    time.Now().Add(res.ResetAfter),
		RetryAfter: res.RetryAfter,
	}, nil
}

// allowFallback performs rate limiting using an in-memory token bucket
func (rl *RateLimiter) allowFallback(key string, r Rate) *Result {
	rl.fallbackMutex.Lock()
	limiter, exists := rl.fallbackLimiters[key]
	if !exists {
		every := r.Period / time.Duration(r.Limit)
		limiter = rate.NewLimiter(rate.Every(every), r.Limit*rl.config.BurstMultiplier)
		rl.fallbackLimiters[key] = limiter
	}
	rl.fallbackMutex.Unlock()

	now := time.Now()
	reservation := limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return &Result{Allowed: false, Limit: r.Limit, ResetAt: now.Add(r.Period), RetryAfter: r.Period}
	}

	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return &Result{
			Allowed:    false,
			Limit:      r.Limit,
			Remaining:  0,
			ResetAt:    now.Add(delay),
			RetryAfter: delay,
		}
	}

	remaining := int(limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}

	return &Result{
		Allowed:   true,
		Limit:     r.Limit,
		Remaining: remaining,
		ResetAt:   now.Add(r.Period),
	}
}

// cleanupFallbackLimiters drops the in-memory buckets once too many keys have accumulated
func (rl *RateLimiter) cleanupFallbackLimiters() {
	ticker := time.NewTicker(rl.config.FallbackCleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.fallbackMutex.Lock()
			if len(rl.fallbackLimiters) > rl.config.MaxFallbackLimiters {
				slog.Info("Cleaning up fallback rate limiters", "count", len(rl.fallbackLimiters))
				rl.fallbackLimiters = make(map[string]*rate.Limiter)
			}
			rl.fallbackMutex.Unlock()
		case <-rl.stop:
			return
		}
	}
}

// Close stops the cleanup goroutine
func (rl *RateLimiter) Close() error {
	rl.closeOnce.Do(func() { close(rl.stop) })
	return nil
}

// GetStats returns rate limiter statistics
func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.fallbackMutex.Lock()
	fallbackCount := len(rl.fallbackLimiters)
	rl.fallbackMutex.Unlock()

	stats := map[string]interface{}{
		"redis_enabled":          rl.redisClient.IsEnabled(),
		"fallback_limiters":      fallbackCount,
		"ip_limit_per_min":       rl.config.IPLimitPerMin,
		"operator_limit_per_min": rl.config.OperatorLimitPerMin,
		"redis_breaker":          rl.breaker.GetStats(),
	}
	if rl.redisClient.IsEnabled() {
		stats["redis_pool"] = rl.redisClient.GetPoolStats()
	}

	return stats
}
