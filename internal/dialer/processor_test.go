package dialer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"outreach-platform/internal/calls"
	"outreach-platform/internal/lead"
)

func newProcessorFixture(t *testing.T) (*dialerFixture, *StatusProcessor) {
	t.Helper()
	f := newDialerFixture(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := NewStatusProcessor(f.attempts, f.leads, f.d, log).
		WithClock(func() time.Time { return mondayMorning })
	return f, p
}

func TestProcessCallStatus_RejectsMissingFields(t *testing.T) {
	_, p := newProcessorFixture(t)
	ctx := context.Background()

	if err := p.ProcessCallStatus(ctx, "", "completed", nil, "lead-1", "camp-1"); !errors.Is(err, ErrInvalidCallback) {
		t.Fatalf("expected ErrInvalidCallback for missing sid, got %v", err)
	}
	if err := p.ProcessCallStatus(ctx, "CA0001", "", nil, "lead-1", "camp-1"); !errors.Is(err, ErrInvalidCallback) {
		t.Fatalf("expected ErrInvalidCallback for missing status, got %v", err)
	}
}

func TestProcessCallStatus_NonTerminalUpdatesAttemptOnly(t *testing.T) {
	f, p := newProcessorFixture(t)
	active := queuedLead("lead-1", 0)
	active.Status = lead.StatusCalling
	active.Attempts = 1
	f.seed(t, businessCampaign(), active)
	ctx := context.Background()

	if err := p.ProcessCallStatus(ctx, "CA0001", "ringing", nil, "lead-1", "camp-1"); err != nil {
		t.Fatalf("ProcessCallStatus: %v", err)
	}

	a, err := f.attempts.GetByCallSID(ctx, "CA0001")
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	if a.Status != calls.StatusRinging {
		t.Fatalf("expected ringing attempt, got %s", a.Status)
	}
	if a.EndedAt != nil {
		t.Fatalf("non-terminal status must not set ended_at")
	}

	l, _ := f.leads.GetByID(ctx, "lead-1")
	if l.Status != lead.StatusCalling {
		t.Fatalf("non-terminal status must not touch the lead, got %s", l.Status)
	}
}

func TestProcessCallStatus_TerminalFinalizesLead(t *testing.T) {
	f, p := newProcessorFixture(t)
	active := queuedLead("lead-1", 0)
	active.Status = lead.StatusCalling
	active.Attempts = 3
	f.seed(t, businessCampaign(), active)
	ctx := context.Background()

	duration := 42
	if err := p.ProcessCallStatus(ctx, "CA0001", "completed", &duration, "lead-1", "camp-1"); err != nil {
		t.Fatalf("ProcessCallStatus: %v", err)
	}

	a, err := f.attempts.GetByCallSID(ctx, "CA0001")
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	if a.Status != calls.StatusCompleted {
		t.Fatalf("expected completed attempt, got %s", a.Status)
	}
	if a.EndedAt == nil || !a.EndedAt.Equal(mondayMorning) {
		t.Fatalf("expected ended_at %v, got %v", mondayMorning, a.EndedAt)
	}
	if a.DurationSeconds != 42 {
		t.Fatalf("expected duration 42, got %d", a.DurationSeconds)
	}

	l, _ := f.leads.GetByID(ctx, "lead-1")
	if l.Status != lead.StatusCompleted {
		t.Fatalf("expected lead finalized completed, got %s", l.Status)
	}
}

func TestProcessCallStatus_RecoversCampaignFromLead(t *testing.T) {
	f, p := newProcessorFixture(t)
	active := queuedLead("lead-1", 0)
	active.Status = lead.StatusCalling
	active.Attempts = 3
	f.seed(t, businessCampaign(), active)
	ctx := context.Background()

	// Callback carries the lead id but lost the campaign id.
	if err := p.ProcessCallStatus(ctx, "CA0001", "failed", nil, "lead-1", ""); err != nil {
		t.Fatalf("ProcessCallStatus: %v", err)
	}

	l, _ := f.leads.GetByID(ctx, "lead-1")
	if l.Status != lead.StatusFailed {
		t.Fatalf("expected lead finalized via recovered campaign, got %s", l.Status)
	}
}

func TestProcessCallStatus_DropsUncorrelatedCompletion(t *testing.T) {
	f, p := newProcessorFixture(t)
	active := queuedLead("lead-1", 0)
	active.Status = lead.StatusCalling
	active.Attempts = 1
	f.seed(t, businessCampaign(), active)
	ctx := context.Background()

	if err := p.ProcessCallStatus(ctx, "CA0001", "completed", nil, "", ""); err != nil {
		t.Fatalf("ProcessCallStatus: %v", err)
	}

	// Attempt row is updated; the lead is untouched.
	a, err := f.attempts.GetByCallSID(ctx, "CA0001")
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	if a.Status != calls.StatusCompleted {
		t.Fatalf("expected attempt updated, got %s", a.Status)
	}

	l, _ := f.leads.GetByID(ctx, "lead-1")
	if l.Status != lead.StatusCalling {
		t.Fatalf("uncorrelated completion must not touch any lead, got %s", l.Status)
	}
}

func TestProcessCallStatus_UnknownLeadDropped(t *testing.T) {
	f, p := newProcessorFixture(t)
	f.seed(t, businessCampaign())
	ctx := context.Background()

	if err := p.ProcessCallStatus(ctx, "CA0001", "completed", nil, "ghost", ""); err != nil {
		t.Fatalf("expected unknown lead to be dropped, got %v", err)
	}
}
