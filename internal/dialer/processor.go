package dialer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"outreach-platform/internal/calls"
	"outreach-platform/internal/lead"
	"outreach-platform/internal/metrics"
)

// ErrInvalidCallback rejects a provider callback missing its mandatory
// fields. Not retried internally; the provider retries callback delivery on
// its own.
var ErrInvalidCallback = errors.New("dialer: callback missing call_sid or call_status")

// StatusProcessor normalizes inbound provider callbacks and forwards
// terminal ones to the dialer's completion handler.
type StatusProcessor struct {
	attempts calls.Repository
	leads    lead.Repository
	dialer   *Dialer
	log      *slog.Logger
	clock    func() time.Time
}

func NewStatusProcessor(attempts calls.Repository, leads lead.Repository, d *Dialer, log *slog.Logger) *StatusProcessor {
	if log == nil {
		log = slog.Default()
	}
	return &StatusProcessor{
		attempts: attempts,
		leads:    leads,
		dialer:   d,
		log:      log,
		clock:    time.Now,
	}
}

// ProcessCallStatus is the single entry point for provider status callbacks.
//
// The call attempt record is always updated when the sid resolves; the
// completion side effect additionally requires both lead and campaign ids.
// When the campaign id cannot be recovered the event is logged and dropped;
// the attempt row stays updated but lead and campaign state are untouched.
func (p *StatusProcessor) ProcessCallStatus(ctx context.Context, callSID, callStatus string, duration *int, leadID, campaignID string) error {
	if callSID == "" || callStatus == "" {
		return ErrInvalidCallback
	}

	status := calls.Status(callStatus)
	now := p.clock().UTC()

	upd := calls.StatusUpdate{
		Status:          status,
		DurationSeconds: duration,
		LeadID:          leadID,
		CampaignID:      campaignID,
	}
	if status.Terminal() {
		upd.EndedAt = &now
	}
	if _, err := p.attempts.UpsertByCallSID(ctx, callSID, upd, now); err != nil {
		return fmt.Errorf("upsert call attempt %s: %w", callSID, err)
	}

	metrics.CallbacksProcessed.WithLabelValues(callStatus).Inc()

	if !status.Terminal() {
		return nil
	}

	// Recover the campaign from the lead when the callback lost it.
	if campaignID == "" && leadID != "" {
		l, err := p.leads.GetByID(ctx, leadID)
		if err != nil {
			if errors.Is(err, lead.ErrNotFound) {
				p.log.Warn("callback lead not found, dropping completion",
					"call_sid", callSID, "lead_id", leadID)
				metrics.CallbacksDropped.Inc()
				return nil
			}
			return fmt.Errorf("recover campaign for lead %s: %w", leadID, err)
		}
		campaignID = l.CampaignID
	}

	if leadID == "" || campaignID == "" {
		// Known correctness gap: without both ids the lead transition and
		// lease release cannot run. The attempt record above is still
		// up to date.
		p.log.Warn("callback missing correlation ids, dropping completion",
			"call_sid", callSID, "call_status", callStatus,
			"lead_id", leadID, "campaign_id", campaignID)
		metrics.CallbacksDropped.Inc()
		return nil
	}

	if err := p.dialer.HandleCallCompleted(ctx, campaignID, leadID, status); err != nil {
		if IsNotFound(err) {
			p.log.Warn("completion references unknown campaign or lead",
				"call_sid", callSID, "campaign_id", campaignID, "lead_id", leadID, "err", err)
			return nil
		}
		return err
	}
	return nil
}

// WithClock overrides the time source. Test use only.
func (p *StatusProcessor) WithClock(clock func() time.Time) *StatusProcessor {
	p.clock = clock
	return p
}
