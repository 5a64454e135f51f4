package calls

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is a simple in-memory repository useful for tests and early
// development.
//
// NOTE: This is not intended for production; use PostgresRepo.
type MemoryRepo struct {
	mu    sync.Mutex
	bySID map[string]Attempt
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{bySID: make(map[string]Attempt)}
}

func (r *MemoryRepo) Create(ctx context.Context, a Attempt) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bySID[a.CallSID] = a
	return nil
}

func (r *MemoryRepo) GetByCallSID(ctx context.Context, callSID string) (Attempt, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.bySID[callSID]
	if !ok {
		return Attempt{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) UpsertByCallSID(ctx context.Context, callSID string, u StatusUpdate, now time.Time) (Attempt, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.bySID[callSID]
	if !ok {
		a = Attempt{
			ID:         uuid.NewString(),
			CampaignID: u.CampaignID,
			LeadID:     u.LeadID,
			CallSID:    callSID,
			StartedAt:  now,
			CreatedAt:  now,
		}
	}
	applyUpdate(&a, u, now)
	r.bySID[callSID] = a
	return a, nil
}
