package lead

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is a simple in-memory repository useful for tests and early
// development.
//
// NOTE: This is not intended for production; use PostgresRepo.
type MemoryRepo struct {
	mu    sync.Mutex
	leads map[string]Lead
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{leads: make(map[string]Lead)}
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Lead, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.leads[id]
	if !ok {
		return Lead{}, ErrNotFound
	}
	return l, nil
}

func (r *MemoryRepo) ListDialable(ctx context.Context, campaignID string, limit int) ([]Lead, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Lead
	for _, l := range r.leads {
		if l.CampaignID == campaignID && l.Status == StatusQueued && l.RetryOn == "" {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) ListByRetryMarker(ctx context.Context, marker string) ([]Lead, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Lead
	for _, l := range r.leads {
		if l.RetryOn == marker {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (r *MemoryRepo) ListByCampaign(ctx context.Context, campaignID string) ([]Lead, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Lead
	for _, l := range r.leads {
		if l.CampaignID == campaignID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (r *MemoryRepo) CountByStatus(ctx context.Context, campaignID string, status Status) (int, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, l := range r.leads {
		if l.CampaignID == campaignID && l.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) CountsByCampaign(ctx context.Context, campaignID string) (map[Status]int, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[Status]int)
	for _, l := range r.leads {
		if l.CampaignID == campaignID {
			out[l.Status]++
		}
	}
	return out, nil
}

func (r *MemoryRepo) NextOrderIndex(ctx context.Context, campaignID string) (int, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	next := 0
	for _, l := range r.leads {
		if l.CampaignID == campaignID && l.OrderIndex >= next {
			next = l.OrderIndex + 1
		}
	}
	return next, nil
}

func (r *MemoryRepo) CreateBatch(ctx context.Context, leads []Lead) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range leads {
		r.leads[l.ID] = l
	}
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, l Lead) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.leads[l.ID]; !ok {
		return ErrNotFound
	}
	r.leads[l.ID] = l
	return nil
}
