package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/receptionist/internal/config"
	"github.com/smallbiznis/receptionist/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	numberSearchKeyPrefix = "numbers:search:"
	numberLockKeyPrefix   = "numbers:purchase:lock:"
)

// NumberLimiter throttles number searches per owner and serializes purchases
// of the same phone number across API replicas. A nil limiter, or one built
// without redis, allows everything.
type NumberLimiter struct {
	bucket      *TokenBucket
	locker      *Locker
	searchRate  float64
	searchBurst int
	lockTTL     time.Duration
	metrics     *metrics.Metrics
	log         *zap.Logger
}

type NumberLimiterParams struct {
	fx.In

	Config  config.Config
	Client  *redis.Client    `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
	Log     *zap.Logger
}

func NewNumberLimiter(p NumberLimiterParams) *NumberLimiter {
	limits := p.Config.RateLimit
	if limits.PurchaseLockTTL <= 0 {
		limits.PurchaseLockTTL = time.Minute
	}
	return &NumberLimiter{
		bucket:      NewTokenBucket(p.Client),
		locker:      NewLocker(p.Client),
		searchRate:  limits.NumberSearchRate,
		searchBurst: limits.NumberSearchBurst,
		lockTTL:     limits.PurchaseLockTTL,
		metrics:     p.Metrics,
		log:         p.Log.Named("ratelimit.numbers"),
	}
}

// AllowSearch spends one search token for owner. Redis failures fail open.
func (l *NumberLimiter) AllowSearch(ctx context.Context, owner string) bool {
	if l == nil || l.bucket == nil || l.searchRate <= 0 || l.searchBurst <= 0 {
		return true
	}
	owner = strings.ToLower(strings.TrimSpace(owner))
	if owner == "" {
		return true
	}

	decision, err := l.bucket.Take(ctx, searchKey(owner), l.searchRate, l.searchBurst)
	if err != nil {
		l.log.Warn("number search limiter unavailable", zap.Error(err))
		return true
	}
	if !decision.Allowed {
		l.metrics.RecordRateLimitDenied(ctx, "numbers.search", "search_rate")
		return false
	}
	return true
}

// LockNumber claims an exclusive purchase window for number. The returned
// release func is always non-nil.
func (l *NumberLimiter) LockNumber(ctx context.Context, number string) (func(), bool, error) {
	noop := func() {}
	if l == nil || l.locker == nil {
		return noop, true, nil
	}

	lease, ok, err := l.locker.Acquire(ctx, lockKey(number), l.lockTTL)
	if err != nil {
		return noop, false, err
	}
	if !ok {
		l.metrics.RecordRateLimitDenied(ctx, "numbers.buy", "purchase_in_flight")
		return noop, false, nil
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := l.locker.Release(releaseCtx, lease); err != nil {
			l.log.Warn("failed to release number lock", zap.String("number", number), zap.Error(err))
		}
	}
	return release, true, nil
}

func searchKey(owner string) string {
	return numberSearchKeyPrefix + owner
}

func lockKey(number string) string {
	return fmt.Sprintf("%s%s", numberLockKeyPrefix, strings.TrimSpace(number))
}
