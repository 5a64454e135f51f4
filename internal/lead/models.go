package lead

import "time"

// Lead is one contact queued for outbound calling within a campaign.
//
// Leads are created at bulk-upload time, mutated only by the dialer and the
// retry sweep, and never deleted by the dialing core (terminal via status).
type Lead struct {
	ID         string `json:"id" db:"id"`
	CampaignID string `json:"campaign_id" db:"campaign_id"`

	// RawNumber is the number exactly as uploaded; Number is E.164.
	RawNumber string `json:"raw_number" db:"raw_number"`
	Number    string `json:"number" db:"number"`

	// Timezone is the detected zone for this contact. Empty means fall back
	// to the campaign working window's timezone.
	Timezone string `json:"timezone,omitempty" db:"timezone"`

	Status   Status `json:"status" db:"status"`
	Attempts int    `json:"attempts" db:"attempts"`

	LastCallSID string `json:"last_call_sid,omitempty" db:"last_call_sid"`

	// RetryOn is empty or the RetryMarkerTomorrow literal. A queued lead
	// carrying the marker is parked until the retry sweep clears it.
	RetryOn string `json:"retry_on,omitempty" db:"retry_on"`

	// OrderIndex is the stable insertion order used as selection tie-break.
	OrderIndex int `json:"order_index" db:"order_index"`

	// Post-call enrichment written by downstream analysis, not by the dialer.
	Sentiment      string `json:"sentiment,omitempty" db:"sentiment"`
	Summary        string `json:"summary,omitempty" db:"summary"`
	CalendarBooked bool   `json:"calendar_booked" db:"calendar_booked"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusQueued    Status = "queued"
	StatusCalling   Status = "calling"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusNoAnswer  Status = "no-answer"
	StatusBusy      Status = "busy"
)

// RetryMarkerTomorrow parks a lead for the next-day retry sweep.
const RetryMarkerTomorrow = "tomorrow"

// Terminal reports whether a status ends the lead's lifecycle.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusNoAnswer, StatusBusy:
		return true
	default:
		return false
	}
}
