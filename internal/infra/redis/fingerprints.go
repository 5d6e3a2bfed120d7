// Package redis is a Redis-backed fingerprint cache for import deduplication.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dvloznov/finance-ledger/internal/ledger"
)

const keyPrefix = "ledger:fp:"

// FingerprintCache remembers persisted import fingerprints. It only speeds up
// the duplicate pre-check; the store's unique constraint stays authoritative.
type FingerprintCache struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

// NewFingerprintCache wraps client. A zero ttl keeps keys forever.
func NewFingerprintCache(client goredis.UniversalClient, ttl time.Duration) *FingerprintCache {
	return &FingerprintCache{client: client, ttl: ttl}
}

// Connect dials addr and pings it.
func Connect(ctx context.Context, addr string) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("Connect: ping %s: %w", addr, err)
	}
	return client, nil
}

// Seen reports whether fingerprint was remembered.
func (c *FingerprintCache) Seen(ctx context.Context, fingerprint string) (bool, error) {
	n, err := c.client.Exists(ctx, keyPrefix+fingerprint).Result()
	if err != nil {
		return false, fmt.Errorf("Seen: redis exists: %w", err)
	}
	return n > 0, nil
}

// Remember records fingerprint.
func (c *FingerprintCache) Remember(ctx context.Context, fingerprint string) error {
	if fingerprint == "" {
		return nil
	}
	if err := c.client.Set(ctx, keyPrefix+fingerprint, 1, c.ttl).Err(); err != nil {
		return fmt.Errorf("Remember: redis set: %w", err)
	}
	return nil
}

// Ensure FingerprintCache implements ledger.FingerprintCache.
var _ ledger.FingerprintCache = (*FingerprintCache)(nil)
