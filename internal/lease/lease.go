// Package lease provides a named, TTL-bounded mutual-exclusion token used to
// serialize dialing per campaign across any number of scheduler processes.
//
// Self-healing property: a holder that crashes without releasing still
// relinquishes the lease when the TTL expires, bounding worst-case
// starvation of the campaign.
package lease

import (
	"context"
	"time"
)

// Lease grants at-most-one-holder semantics per campaign.
type Lease interface {
	// Acquire creates the campaign's token only if absent, with automatic
	// expiry after ttl. It returns true iff the caller now holds the lease.
	Acquire(ctx context.Context, campaignID string, ttl time.Duration) (bool, error)

	// Release deletes the token immediately, regardless of remaining TTL.
	Release(ctx context.Context, campaignID string) error
}

// DefaultTTL exceeds typical call-setup latency while bounding recovery time
// if a completion callback never arrives.
const DefaultTTL = 180 * time.Second
