package calls

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("calls: not found")

// StatusUpdate is the per-callback delta applied to an attempt row.
type StatusUpdate struct {
	Status          Status
	DurationSeconds *int
	EndedAt         *time.Time

	// LeadID/CampaignID backfill missing correlation on rows created from an
	// out-of-order callback.
	LeadID     string
	CampaignID string
}

// Repository is the persistence contract for call attempts.
// Uniqueness invariant: one row per CallSID.
type Repository interface {
	Create(ctx context.Context, a Attempt) error
	GetByCallSID(ctx context.Context, callSID string) (Attempt, error)

	// UpsertByCallSID applies the update to the attempt with that sid,
	// creating a minimal row when callbacks arrive before (or without) the
	// placement record.
	UpsertByCallSID(ctx context.Context, callSID string, u StatusUpdate, now time.Time) (Attempt, error)
}
