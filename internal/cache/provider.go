// Package cache remembers which customer notifications were already delivered.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotFound = errors.New("key not found")

// Provider stores short string markers with an expiry.
type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Config struct {
	Provider              string
	RedisConnectionString string
	MemorySize            int
}

func NewProvider(cfg Config) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "memory", "":
		return NewMemoryProvider(cfg.MemorySize)
	case "redis":
		return NewRedisProvider(cfg.RedisConnectionString)
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

// NotificationKey identifies one outcome email for one order and recipient. A
// tracking code is part of the key so that a label issued after a "no tracking"
// email still produces a follow-up notification.
func NotificationKey(orderID, outcome, trackingCode, audience string) string {
	trackingCode = strings.TrimSpace(trackingCode)
	if trackingCode == "" {
		trackingCode = "none"
	}
	return fmt.Sprintf("notify:%s:%s:%s:%s", orderID, outcome, trackingCode, audience)
}
