// Package durable keeps the few onboarding facts that must survive a full
// page navigation: the created business id and the reserved phone number.
package durable

import (
	"context"
	"errors"
	"strings"
)

// Store is a small string key-value persistence mechanism.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

var ErrInvalidKey = errors.New("invalid_key")

func normalizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrInvalidKey
	}
	return key, nil
}
