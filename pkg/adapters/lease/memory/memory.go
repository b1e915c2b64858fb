package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mrwa-ai/mrwa/pkg/domain"
)

type lease struct {
	owner   string
	expires time.Time
}

// Manager implements ports.LeaseManager with an in-process map.
// Suitable for tests and single-node deployments.
type Manager struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

// NewManager creates a new in-memory lease manager
func NewManager() *Manager {
	return &Manager{
		leases: make(map[string]lease),
		now:    time.Now,
	}
}

// Acquire obtains the lease or returns domain.ErrLeaseHeld. An
// expired lease is reclaimable by any owner.
func (m *Manager) Acquire(ctx context.Context, executionID, owner string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, held := m.leases[executionID]
	if held && current.owner != owner && m.now().Before(current.expires) {
		return domain.ErrLeaseHeld
	}

	m.leases[executionID] = lease{owner: owner, expires: m.now().Add(ttl)}
	return nil
}

// Renew extends a held lease
func (m *Manager) Renew(ctx context.Context, executionID, owner string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, held := m.leases[executionID]
	if !held || current.owner != owner || !m.now().Before(current.expires) {
		return domain.ErrLeaseHeld
	}

	m.leases[executionID] = lease{owner: owner, expires: m.now().Add(ttl)}
	return nil
}

// Release drops the lease if owner still holds it
func (m *Manager) Release(ctx context.Context, executionID, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, held := m.leases[executionID]
	if held && current.owner == owner {
		delete(m.leases, executionID)
	}
	return nil
}
