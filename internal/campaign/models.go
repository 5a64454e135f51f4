package campaign

import "time"

// Campaign represents one configured outreach run owning an ordered set of
// leads, a working window, and a retry policy.
//
// Ownership invariant: a campaign is mutated only by its owner (status-change
// operations) and by the scheduler (the completed transition).
//
// NOTE: Pacing and Lines are declared configuration consumed by a
// not-yet-built rate limiter. The dialing core must not assume any throttling
// semantics beyond single-lead-at-a-time per campaign.
type Campaign struct {
	ID      string `json:"id" db:"id"`
	OwnerID string `json:"owner_id" db:"owner_id"`

	// CallerNumber is the E.164 caller id presented on outbound calls.
	CallerNumber string `json:"caller_number" db:"caller_number"`

	// AssistantID references the voice assistant answering the call.
	AssistantID string `json:"assistant_id" db:"assistant_id"`

	Window  WorkingWindow `json:"working_window" db:"working_window"`
	Retry   RetryPolicy   `json:"retry_policy" db:"retry_policy"`
	Backoff BackoffSpec   `json:"attempt_backoff" db:"attempt_backoff"`
	Pacing  Pacing        `json:"pacing" db:"pacing"`
	Lines   int           `json:"lines" db:"lines"`

	Status Status `json:"status" db:"status"`

	StartAt *time.Time `json:"start_at,omitempty" db:"start_at"`
	StopAt  *time.Time `json:"stop_at,omitempty" db:"stop_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusDraft     Status = "draft"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusStopped   Status = "stopped"
	StatusCompleted Status = "completed"
)

// CanTransition reports whether a user- or system-triggered status change is
// legal. Stopped and completed are final.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusDraft:
		return to == StatusRunning
	case StatusRunning:
		return to == StatusPaused || to == StatusStopped || to == StatusCompleted
	case StatusPaused:
		return to == StatusRunning || to == StatusStopped
	default:
		return false
	}
}

// RetryPolicy bounds how many attempts a lead receives.
// RetryDelaysMin carries per-attempt minute offsets; only the next-day
// strategy is wired into the scheduler today.
type RetryPolicy struct {
	MaxAttempts    int   `json:"max_attempts"`
	RetryDelaysMin []int `json:"retry_delays_min,omitempty"`
}

// BackoffStrategy names an attempt-backoff descriptor. The configuration
// model accepts all four; the scheduler currently consumes none of them and
// always retries next day.
type BackoffStrategy string

const (
	BackoffFixed       BackoffStrategy = "fixed"
	BackoffExponential BackoffStrategy = "exponential"
	BackoffMixed       BackoffStrategy = "mixed"
	BackoffDaily       BackoffStrategy = "daily"
)

type BackoffSpec struct {
	Strategy    BackoffStrategy `json:"strategy,omitempty"`
	BaseMinutes int             `json:"base_minutes,omitempty"`
	Multiplier  float64         `json:"multiplier,omitempty"`

	// Schedule is the mixed-strategy token schedule, e.g. ["30m", "2h", "1d"].
	Schedule []string `json:"schedule,omitempty"`
}

// Pacing is declared-but-unenforced call pacing configuration.
type Pacing struct {
	CallsPerMinute int `json:"calls_per_minute,omitempty"`
	MaxConcurrent  int `json:"max_concurrent,omitempty"`
}

// Stats aggregates lead outcomes for a campaign. Recomputed from the lead
// collection on read; never stored.
type Stats struct {
	TotalLeads int `json:"total_leads"`
	Queued     int `json:"queued"`
	Calling    int `json:"calling"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	NoAnswer   int `json:"no-answer"`
	Busy       int `json:"busy"`
}
