package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist records revoked token ids until the token would have expired.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

const defaultDenylistPrefix = "auth:revoked:"

type RedisDenylist struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisDenylist(client redis.UniversalClient, prefix string) *RedisDenylist {
	if prefix == "" {
		prefix = defaultDenylistPrefix
	}
	return &RedisDenylist{client: client, prefix: prefix, now: time.Now}
}

func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(d.now())
	if ttl <= 0 {
		return nil
	}

	if err := d.client.Set(ctx, d.prefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.prefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return n > 0, nil
}

// MemoryDenylist is the single-process fallback when no redis is configured.
type MemoryDenylist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{entries: make(map[string]time.Time), now: time.Now}
}

func (d *MemoryDenylist) Revoke(_ context.Context, tokenID string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if !until.After(now) {
		return nil
	}
	d.entries[tokenID] = until
	d.pruneLocked(now)
	return nil
}

func (d *MemoryDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	until, ok := d.entries[tokenID]
	if !ok {
		return false, nil
	}
	if !until.After(d.now()) {
		delete(d.entries, tokenID)
		return false, nil
	}
	return true, nil
}

func (d *MemoryDenylist) pruneLocked(now time.Time) {
	for id, until := range d.entries {
		if !until.After(now) {
			delete(d.entries, id)
		}
	}
}
