package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mrwa-ai/mrwa/pkg/domain"
)

// Ownership-checked renew and release so a worker whose lease expired
// cannot clobber the reclaiming worker's lease.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Manager implements ports.LeaseManager using Redis SET NX with a
// TTL. A crashed worker's lease expires on its own, letting another
// worker reclaim the execution.
type Manager struct {
	client *redis.Client
}

// NewManager creates a new Redis lease manager
func NewManager(client *redis.Client) *Manager {
	return &Manager{client: client}
}

// Acquire obtains the lease or returns domain.ErrLeaseHeld
func (m *Manager) Acquire(ctx context.Context, executionID, owner string, ttl time.Duration) error {
	ok, err := m.client.SetNX(ctx, leaseKey(executionID), owner, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire lease: %w", err)
	}
	if !ok {
		// Re-acquiring our own lease is allowed
		current, err := m.client.Get(ctx, leaseKey(executionID)).Result()
		if err == nil && current == owner {
			return m.Renew(ctx, executionID, owner, ttl)
		}
		return domain.ErrLeaseHeld
	}
	return nil
}

// Renew extends a held lease; fails if owner no longer holds it
func (m *Manager) Renew(ctx context.Context, executionID, owner string, ttl time.Duration) error {
	n, err := renewScript.Run(ctx, m.client, []string{leaseKey(executionID)}, owner, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to renew lease: %w", err)
	}
	if n == 0 {
		return domain.ErrLeaseHeld
	}
	return nil
}

// Release drops the lease if owner still holds it
func (m *Manager) Release(ctx context.Context, executionID, owner string) error {
	if _, err := releaseScript.Run(ctx, m.client, []string{leaseKey(executionID)}, owner).Int(); err != nil {
		return fmt.Errorf("failed to release lease: %w", err)
	}
	return nil
}

func leaseKey(executionID string) string {
	return fmt.Sprintf("mrwa:lease:%s", executionID)
}
