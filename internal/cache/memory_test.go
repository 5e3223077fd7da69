package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryProviderExpiry(t *testing.T) {
	t.Parallel()

	provider, err := NewMemoryProvider(0)
	if err != nil {
		t.Fatalf("NewMemoryProvider() error = %v", err)
	}
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	provider.now = func() time.Time { return now }

	ctx := context.Background()
	if err := provider.Set(ctx, "k", "sent", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := provider.Get(ctx, "k")
	if err != nil || got != "sent" {
		t.Fatalf("Get() = %q, %v; want sent, nil", got, err)
	}

	now = now.Add(time.Minute)
	if _, err := provider.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestMemoryProviderWithoutTTL(t *testing.T) {
	t.Parallel()

	provider, err := NewMemoryProvider(2)
	if err != nil {
		t.Fatalf("NewMemoryProvider() error = %v", err)
	}
	ctx := context.Background()

	_ = provider.Set(ctx, "a", "1", 0)
	_ = provider.Set(ctx, "b", "2", 0)
	_ = provider.Set(ctx, "c", "3", 0)

	if _, err := provider.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected oldest key to be evicted, got %v", err)
	}
	if got, err := provider.Get(ctx, "c"); err != nil || got != "3" {
		t.Fatalf("Get(c) = %q, %v", got, err)
	}

	if err := provider.Delete(ctx, "c"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := provider.Get(ctx, "c"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestNotificationKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		outcome  string
		tracking string
		want     string
	}{
		{name: "with tracking", outcome: "approved", tracking: "TRK123", want: "notify:o-1:approved:TRK123:client"},
		{name: "without tracking", outcome: "approved", want: "notify:o-1:approved:none:client"},
		{name: "blank tracking", outcome: "rejected", tracking: "  ", want: "notify:o-1:rejected:none:client"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NotificationKey("o-1", tt.outcome, tt.tracking, "client"); got != tt.want {
				t.Fatalf("NotificationKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewProviderRejectsUnknown(t *testing.T) {
	t.Parallel()

	if _, err := NewProvider(Config{Provider: "memcached"}); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}
