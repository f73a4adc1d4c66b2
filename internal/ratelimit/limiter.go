package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tessera-studio/provenance-api/internal/adapter"
	"github.com/tessera-studio/provenance-api/internal/logger"
)

const (
	// DefaultRequestsPerSecond is the per-client request budget
	DefaultRequestsPerSecond = 5
	// DefaultBurst is the per-client burst allowance
	DefaultBurst = 10

	// redisKeyPrefix namespaces limiter keys in Redis
	redisKeyPrefix = "ratelimit:"

	// healthCheckInterval is how often an unavailable Redis is re-probed
	healthCheckInterval = 30 * time.Second
)

// Config holds the per-client rate limiting policy
type Config struct {
	// RequestsPerSecond is the sustained per-client budget
	RequestsPerSecond int
	// Burst is the per-client burst allowance
	Burst int
	// EnableLocalFallback switches to in-process limiting when Redis is
	// unreachable instead of failing requests
	EnableLocalFallback bool
}

func (c *Config) withDefaults() Config {
	out := Config{
		RequestsPerSecond:   DefaultRequestsPerSecond,
		Burst:               DefaultBurst,
		EnableLocalFallback: true,
	}
	if c != nil {
		if c.RequestsPerSecond > 0 {
			out.RequestsPerSecond = c.RequestsPerSecond
		}
		if c.Burst > 0 {
			out.Burst = c.Burst
		}
		out.EnableLocalFallback = c.EnableLocalFallback
	}
	return out
}

// Result describes the outcome of a rate limit check
type Result struct {
	// Allowed reports whether the request may proceed
	Allowed bool
	// Remaining is the number of requests left in the current window
	Remaining int
	// RetryAfter is how long the client should wait before retrying;
	// only meaningful when Allowed is false
	RetryAfter time.Duration
}

// Limiter gates requests by client key before they reach the provenance
// pipeline. Distributed limiting runs over Redis; when Redis is down the
// limiter degrades to per-process limiting rather than rejecting traffic.
//
//go:generate mockgen -source=limiter.go -destination=../mocks/ratelimit_limiter.go -package=mocks -mock_names=Limiter=MockLimiter
type Limiter interface {
	// Allow checks whether the client identified by key may proceed
	Allow(ctx context.Context, key string) (*Result, error)

	// Close releases limiter resources
	Close() error
}

type limiter struct {
	config         Config
	distributed    adapter.RedisRateLimiter
	redis          adapter.RedisClient
	clock          adapter.Clock
	redisAvailable atomic.Bool
	closed         atomic.Bool
	closeCh        chan struct{}
	closeOnce      sync.Once

	// per-key local limiters for the fallback path
	localMu sync.Mutex
	local   map[string]*rate.Limiter
}

// NewLimiter creates a rate limiter. A nil Redis client always uses local
// limiting; otherwise Redis is probed and health-checked in the background.
func NewLimiter(cfg *Config, rc adapter.RedisClient, clock adapter.Clock) (Limiter, error) {
	config := cfg.withDefaults()

	l := &limiter{
		config:  config,
		redis:   rc,
		clock:   clock,
		closeCh: make(chan struct{}),
		local:   make(map[string]*rate.Limiter),
	}

	if rc == nil {
		if !config.EnableLocalFallback {
			return nil, fmt.Errorf("redis not configured and local fallback disabled")
		}
		l.redisAvailable.Store(false)
		return l, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	available := true
	if err := rc.Ping(ctx).Err(); err != nil {
		available = false
		if !config.EnableLocalFallback {
			return nil, fmt.Errorf("redis unavailable and fallback disabled: %w", err)
		}
		logger.Warn("Redis unavailable, rate limiting falls back to local", zap.Error(err))
	}

	l.distributed = rc.NewRateLimiter()
	l.redisAvailable.Store(available)

	go l.monitorRedisHealth()

	return l, nil
}

// Allow checks whether the client identified by key may proceed
func (l *limiter) Allow(ctx context.Context, key string) (*Result, error) {
	if l.closed.Load() {
		return nil, fmt.Errorf("limiter is closed")
	}

	if l.redisAvailable.Load() && l.distributed != nil {
		res, err := l.distributed.Allow(ctx, redisKeyPrefix+key, redis_rate.Limit{
			Rate:   l.config.RequestsPerSecond,
			Burst:  l.config.Burst,
			Period: time.Second,
		})
		if err == nil {
			return &Result{
				Allowed:    res.Allowed > 0,
				Remaining:  res.Remaining,
				RetryAfter: res.RetryAfter,
			}, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		// Redis error: mark unavailable and fall through to local limiting
		l.redisAvailable.Store(false)
		if !l.config.EnableLocalFallback {
			return nil, fmt.Errorf("redis rate limiter unavailable: %w", err)
		}
		logger.Warn("Redis rate limiter error, falling back to local",
			zap.String("key", key),
			zap.Error(err))
	}

	if !l.config.EnableLocalFallback {
		return nil, fmt.Errorf("rate limiter backend unavailable")
	}

	local := l.localLimiter(key)
	now := l.clock.Now()

	res := local.ReserveN(now, 1)
	if !res.OK() {
		return &Result{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: time.Second,
		}, nil
	}

	if delay := res.DelayFrom(now); delay > 0 {
		// Not allowed yet; give the tokens back and tell the client when to retry
		res.CancelAt(now)
		return &Result{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: delay,
		}, nil
	}

	return &Result{
		Allowed:   true,
		Remaining: int(local.TokensAt(now)),
	}, nil
}

func (l *limiter) localLimiter(key string) *rate.Limiter {
	l.localMu.Lock()
	defer l.localMu.Unlock()

	lim, ok := l.local[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), l.config.Burst)
		l.local[key] = lim
	}
	return lim
}

// monitorRedisHealth re-probes Redis while it is marked unavailable
func (l *limiter) monitorRedisHealth() {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.closeCh:
			return
		case <-ticker.C:
			if l.redisAvailable.Load() {
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := l.redis.Ping(ctx).Err()
			cancel()

			if err == nil {
				logger.Info("Redis recovered, resuming distributed rate limiting")
				l.redisAvailable.Store(true)
			}
		}
	}
}

// Close releases limiter resources
func (l *limiter) Close() error {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.closeCh)
	})
	return nil
}
