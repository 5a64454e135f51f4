package lease

import (
	"context"
	"sync"
	"time"
)

// MemoryLease is a process-local Lease for single-process deployments and
// tests. Clock is injectable so expiry can be tested without sleeping.
type MemoryLease struct {
	mu      sync.Mutex
	expiry  map[string]time.Time
	clock   func() time.Time
}

func NewMemoryLease() *MemoryLease {
	return &MemoryLease{expiry: make(map[string]time.Time), clock: time.Now}
}

// WithClock overrides the time source. Test use only.
func (l *MemoryLease) WithClock(clock func() time.Time) *MemoryLease {
	l.clock = clock
	return l
}

func (l *MemoryLease) Acquire(ctx context.Context, campaignID string, ttl time.Duration) (bool, error) {
	_ = ctx
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if exp, ok := l.expiry[campaignID]; ok && now.Before(exp) {
		return false, nil
	}
	l.expiry[campaignID] = now.Add(ttl)
	return true, nil
}

func (l *MemoryLease) Release(ctx context.Context, campaignID string) error {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.expiry, campaignID)
	return nil
}
