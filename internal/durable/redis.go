package durable

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "onboarding:session:"

// Redis keeps one hash per wizard session so several devices can resume the
// same onboarding attempt.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedis scopes the store to session. A positive ttl is refreshed on
// every write.
func NewRedis(client *redis.Client, session string, ttl time.Duration) (*Redis, error) {
	if client == nil {
		return nil, errors.New("durable: redis client is required")
	}
	session = strings.TrimSpace(session)
	if session == "" {
		return nil, errors.New("durable: session is required")
	}
	return &Redis{client: client, key: redisKeyPrefix + session, ttl: ttl}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return "", false, err
	}
	value, err := r.client.HGet(ctx, r.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.key, key, value)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.key, r.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	return r.client.HDel(ctx, r.key, key).Err()
}
