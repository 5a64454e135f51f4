package dialer

import (
	"outreach-platform/internal/calls"
	"outreach-platform/internal/lead"
)

// mapCallStatus translates a provider terminal call status into the lead
// status vocabulary and reports whether that outcome is retryable.
//
// Completed is the only final success. Canceled and anything unrecognized
// count as failed so an odd provider value can never strand a lead in
// calling state.
func mapCallStatus(s calls.Status) (lead.Status, bool) {
	switch s {
	case calls.StatusCompleted:
		return lead.StatusCompleted, false
	case calls.StatusBusy:
		return lead.StatusBusy, true
	case calls.StatusNoAnswer:
		return lead.StatusNoAnswer, true
	case calls.StatusFailed, calls.StatusCanceled:
		return lead.StatusFailed, true
	default:
		return lead.StatusFailed, true
	}
}
