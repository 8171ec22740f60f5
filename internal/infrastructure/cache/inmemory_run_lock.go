package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/channelsync/internal/domain/integration"
	"github.com/google/uuid"
)

// InMemoryRunLock implements integration.RunLock inside one process.
// It does not coordinate separate instances.
type InMemoryRunLock struct {
	mu     sync.Mutex
	leases map[integration.JobType]memoryEntry
	now    func() time.Time
}

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

// NewInMemoryRunLock creates an in-process run lock.
func NewInMemoryRunLock() *InMemoryRunLock {
	return &InMemoryRunLock{
		leases: make(map[integration.JobType]memoryEntry),
		now:    time.Now,
	}
}

// Acquire takes the lease of a job type for ttl.
func (l *InMemoryRunLock) Acquire(_ context.Context, job integration.JobType, ttl time.Duration) (integration.Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.leases[job]; ok && now.Before(e.expiresAt) {
		return nil, integration.ErrRunLockHeld
	}
	token := uuid.NewString()
	l.leases[job] = memoryEntry{token: token, expiresAt: now.Add(ttl)}
	return &memoryLease{lock: l, job: job, token: token}, nil
}

type memoryLease struct {
	lock  *InMemoryRunLock
	job   integration.JobType
	token string
}

func (m *memoryLease) Release(_ context.Context) error {
	m.lock.mu.Lock()
	defer m.lock.mu.Unlock()

	e, ok := m.lock.leases[m.job]
	if !ok || e.token != m.token || !m.lock.now().Before(e.expiresAt) {
		return integration.ErrRunLockExpired
	}
	delete(m.lock.leases, m.job)
	return nil
}

var _ integration.RunLock = (*InMemoryRunLock)(nil)
