package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/receptionist/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNumberLimiterWithoutRedisAllows(t *testing.T) {
	limiter := NewNumberLimiter(NumberLimiterParams{
		Config: config.Config{RateLimit: config.RateLimitConfig{NumberSearchRate: 1, NumberSearchBurst: 1}},
		Log:    zap.NewNop(),
	})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		assert.True(t, limiter.AllowSearch(ctx, "owner@acme.test"))
	}

	release, ok, err := limiter.LockNumber(ctx, "+12125551234")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NotNil(t, release)
	release()
	assert.Equal(t, time.Minute, limiter.lockTTL)
}

func TestNilNumberLimiter(t *testing.T) {
	var limiter *NumberLimiter
	assert.True(t, limiter.AllowSearch(context.Background(), "owner@acme.test"))

	release, ok, err := limiter.LockNumber(context.Background(), "+12125551234")
	require.NoError(t, err)
	assert.True(t, ok)
	release()
}

func TestNumberLimiterKeys(t *testing.T) {
	assert.Equal(t, "numbers:search:owner@acme.test", searchKey("owner@acme.test"))
	assert.Equal(t, "numbers:purchase:lock:+12125551234", lockKey(" +12125551234 "))
}

func TestBucketRejectsInvalidArgs(t *testing.T) {
	var bucket *TokenBucket
	res, err := bucket.Take(context.Background(), "k", 1, 1)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.False(t, res.Allowed)

	var locker *Locker
	_, ok, err := locker.Acquire(context.Background(), "k", time.Second)
	assert.ErrorIs(t, err, ErrLockUnavailable)
	assert.False(t, ok)
	assert.NoError(t, locker.Release(context.Background(), Lease{Key: "k", Token: "t"}))

	assert.Equal(t, 20*time.Second, bucketTTL(1, 10))
	assert.Equal(t, time.Second, bucketTTL(0, 10))
	assert.Equal(t, time.Second, bucketTTL(10, 1))
	assert.Equal(t, 1.5, asFloat("1.5"))
	assert.Equal(t, int64(3), asInt(float64(3)))
	assert.Equal(t, int64(1), asInt("1"))
}
