package calls

import "time"

// Attempt is the record of one concrete outbound call placed for a lead.
//
// CallSID is the provider's globally unique call identifier; every status
// callback for that sid updates this row in place. Once EndedAt is set the
// row is immutable except for later enrichment fields.
type Attempt struct {
	ID         string `json:"id" db:"id"`
	CampaignID string `json:"campaign_id" db:"campaign_id"`
	LeadID     string `json:"lead_id" db:"lead_id"`

	// AttemptNumber is the lead's attempt ordinal at placement time.
	AttemptNumber int `json:"attempt_number" db:"attempt_number"`

	CallSID string `json:"call_sid" db:"call_sid"`

	Status Status `json:"status" db:"status"`

	StartedAt time.Time  `json:"started_at" db:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`

	// DurationSeconds is reported by the provider's terminal callback.
	DurationSeconds int `json:"duration" db:"duration"`

	// Enrichment populated by downstream post-processing.
	RecordingURL string `json:"recording_url,omitempty" db:"recording_url"`
	Transcript   string `json:"transcript,omitempty" db:"transcript"`
	Analysis     string `json:"analysis,omitempty" db:"analysis"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Status mirrors the provider's call states verbatim, hyphens included.
type Status string

const (
	StatusInitiated  Status = "initiated"
	StatusRinging    Status = "ringing"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusBusy       Status = "busy"
	StatusNoAnswer   Status = "no-answer"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

// Terminal reports whether the provider will send no further state for this
// call.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusBusy, StatusNoAnswer, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}
