package dialer

import (
	"time"

	"outreach-platform/internal/campaign"
)

// RetryStrategy decides when a retryable outcome gets its next attempt.
// A nil result means no further retry is scheduled.
//
// The campaign configuration model declares fixed, exponential, mixed and
// daily backoff descriptors; only the next-day strategy is consumed today.
// Richer strategies plug in here without touching the dialer.
type RetryStrategy interface {
	NextRetryTime(attemptNumber int, policy campaign.RetryPolicy) *time.Time
}

// NextDayStrategy retries at the start of the next calendar day, expressed
// to the rest of the system through the lead's retry marker and the
// scheduler's daily sweep.
type NextDayStrategy struct {
	clock func() time.Time
}

func NewNextDayStrategy() NextDayStrategy {
	return NextDayStrategy{clock: time.Now}
}

func (s NextDayStrategy) NextRetryTime(attemptNumber int, policy campaign.RetryPolicy) *time.Time {
	if policy.MaxAttempts > 0 && attemptNumber >= policy.MaxAttempts {
		return nil
	}
	now := s.clock().UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return &next
}
