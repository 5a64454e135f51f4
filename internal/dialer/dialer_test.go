package dialer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"outreach-platform/internal/calls"
	"outreach-platform/internal/campaign"
	"outreach-platform/internal/lead"
	"outreach-platform/internal/lease"
	"outreach-platform/internal/telephony"
)

// mondayMorning is 10:00 in New York on a Monday.
var mondayMorning = time.Date(2026, 1, 5, 15, 0, 0, 0, time.UTC)

type fakeProvider struct {
	requests []telephony.OriginateCallRequest
	err      error
}

func (f *fakeProvider) Name() string                        { return "fake" }
func (f *fakeProvider) HealthCheck(_ context.Context) error { return nil }

func (f *fakeProvider) OriginateCall(_ context.Context, req telephony.OriginateCallRequest) (telephony.OriginateCallResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return telephony.OriginateCallResult{}, f.err
	}
	return telephony.OriginateCallResult{CallSID: fmt.Sprintf("CA%04d", len(f.requests))}, nil
}

type dialerFixture struct {
	campaigns *campaign.MemoryRepo
	leads     *lead.MemoryRepo
	attempts  *calls.MemoryRepo
	provider  *fakeProvider
	lease     *lease.MemoryLease
	d         *Dialer
}

func newDialerFixture(t *testing.T) *dialerFixture {
	t.Helper()
	clock := func() time.Time { return mondayMorning }
	f := &dialerFixture{
		campaigns: campaign.NewMemoryRepo(),
		leads:     lead.NewMemoryRepo(),
		attempts:  calls.NewMemoryRepo(),
		provider:  &fakeProvider{},
		lease:     lease.NewMemoryLease().WithClock(clock),
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.d = New(f.campaigns, f.leads, f.attempts, f.provider, f.lease, nil, Config{}, log).WithClock(clock)
	return f
}

func businessCampaign() campaign.Campaign {
	return campaign.Campaign{
		ID:           "camp-1",
		OwnerID:      "owner-1",
		CallerNumber: "+15550001111",
		AssistantID:  "asst-1",
		Window: campaign.WorkingWindow{
			Timezone: "America/New_York",
			Start:    "09:00",
			End:      "17:00",
			Days:     []int{0, 1, 2, 3, 4},
		},
		Retry:  campaign.RetryPolicy{MaxAttempts: 3},
		Status: campaign.StatusRunning,
	}
}

func queuedLead(id string, order int) lead.Lead {
	return lead.Lead{
		ID:         id,
		CampaignID: "camp-1",
		Number:     "+15550002222",
		Status:     lead.StatusQueued,
		OrderIndex: order,
	}
}

func (f *dialerFixture) seed(t *testing.T, c campaign.Campaign, leads ...lead.Lead) {
	t.Helper()
	ctx := context.Background()
	if err := f.campaigns.Create(ctx, c); err != nil {
		t.Fatalf("seed campaign: %v", err)
	}
	if err := f.leads.CreateBatch(ctx, leads); err != nil {
		t.Fatalf("seed leads: %v", err)
	}
}

func TestDialNext_PlacesCallAndHoldsLease(t *testing.T) {
	f := newDialerFixture(t)
	f.seed(t, businessCampaign(), queuedLead("lead-1", 0))
	ctx := context.Background()

	placed, err := f.d.DialNext(ctx, "camp-1")
	if err != nil {
		t.Fatalf("DialNext: %v", err)
	}
	if !placed {
		t.Fatalf("expected a call to be placed")
	}
	if len(f.provider.requests) != 1 {
		t.Fatalf("expected 1 origination, got %d", len(f.provider.requests))
	}

	req := f.provider.requests[0]
	if req.To != "+15550002222" || req.From != "+15550001111" {
		t.Fatalf("unexpected origination request %+v", req)
	}
	if req.LeadID != "lead-1" || req.CampaignID != "camp-1" {
		t.Fatalf("missing correlation ids in request %+v", req)
	}

	l, err := f.leads.GetByID(ctx, "lead-1")
	if err != nil {
		t.Fatalf("get lead: %v", err)
	}
	if l.Status != lead.StatusCalling {
		t.Fatalf("expected lead calling, got %s", l.Status)
	}
	if l.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", l.Attempts)
	}
	if l.LastCallSID == "" {
		t.Fatalf("expected last call sid to be recorded")
	}

	a, err := f.attempts.GetByCallSID(ctx, l.LastCallSID)
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	if a.Status != calls.StatusInitiated || a.AttemptNumber != 1 {
		t.Fatalf("unexpected attempt record %+v", a)
	}

	// Lease stays held until completion: a second pass must not dial.
	placed, err = f.d.DialNext(ctx, "camp-1")
	if err != nil {
		t.Fatalf("DialNext: %v", err)
	}
	if placed {
		t.Fatalf("expected lease contention to block the second dial")
	}
	if len(f.provider.requests) != 1 {
		t.Fatalf("expected no further originations, got %d", len(f.provider.requests))
	}
}

func TestGetNextLead_SkipsExhaustedLeads(t *testing.T) {
	f := newDialerFixture(t)
	spent := queuedLead("lead-1", 0)
	spent.Attempts = 3
	f.seed(t, businessCampaign(), spent, queuedLead("lead-2", 1))

	l, err := f.d.GetNextLead(context.Background(), "camp-1")
	if err != nil {
		t.Fatalf("GetNextLead: %v", err)
	}
	if l == nil || l.ID != "lead-2" {
		t.Fatalf("expected lead-2, got %+v", l)
	}
}

func TestGetNextLead_LookaheadBound(t *testing.T) {
	f := newDialerFixture(t)
	var leads []lead.Lead
	for i := 0; i < lookaheadLimit; i++ {
		l := queuedLead(fmt.Sprintf("lead-%d", i), i)
		l.Attempts = 3
		leads = append(leads, l)
	}
	// Eligible but ranked past the scan bound.
	leads = append(leads, queuedLead("lead-fresh", lookaheadLimit))
	f.seed(t, businessCampaign(), leads...)

	l, err := f.d.GetNextLead(context.Background(), "camp-1")
	if err != nil {
		t.Fatalf("GetNextLead: %v", err)
	}
	if l != nil {
		t.Fatalf("expected no candidate within the scan bound, got %s", l.ID)
	}
}

func TestGetNextLead_LeadTimezoneOverridesWindow(t *testing.T) {
	f := newDialerFixture(t)
	west := queuedLead("lead-1", 0)
	west.Timezone = "America/Los_Angeles" // 07:00 local, before opening
	f.seed(t, businessCampaign(), west)

	l, err := f.d.GetNextLead(context.Background(), "camp-1")
	if err != nil {
		t.Fatalf("GetNextLead: %v", err)
	}
	if l != nil {
		t.Fatalf("expected lead outside its local window to be skipped, got %s", l.ID)
	}
}

func TestGetNextLead_ParkedLeadExcluded(t *testing.T) {
	f := newDialerFixture(t)
	parked := queuedLead("lead-1", 0)
	parked.RetryOn = lead.RetryMarkerTomorrow
	f.seed(t, businessCampaign(), parked, queuedLead("lead-2", 1))

	l, err := f.d.GetNextLead(context.Background(), "camp-1")
	if err != nil {
		t.Fatalf("GetNextLead: %v", err)
	}
	if l == nil || l.ID != "lead-2" {
		t.Fatalf("expected parked lead to be skipped, got %+v", l)
	}
}

func TestPlaceCall_ProviderFailureConsumesAttempt(t *testing.T) {
	f := newDialerFixture(t)
	f.provider.err = fmt.Errorf("carrier unavailable")
	f.seed(t, businessCampaign(), queuedLead("lead-1", 0))
	ctx := context.Background()

	sid, err := f.d.PlaceCall(ctx, "camp-1", "lead-1")
	if err != nil {
		t.Fatalf("PlaceCall: %v", err)
	}
	if sid != "" {
		t.Fatalf("expected no call sid on provider failure, got %q", sid)
	}

	l, err := f.leads.GetByID(ctx, "lead-1")
	if err != nil {
		t.Fatalf("get lead: %v", err)
	}
	if l.Status != lead.StatusQueued {
		t.Fatalf("expected lead back in queue, got %s", l.Status)
	}
	if l.Attempts != 1 {
		t.Fatalf("failed placement still counts: expected 1 attempt, got %d", l.Attempts)
	}
}

func TestHandleCallCompleted_CompletedIsFinal(t *testing.T) {
	f := newDialerFixture(t)
	active := queuedLead("lead-1", 0)
	active.Status = lead.StatusCalling
	active.Attempts = 1
	f.seed(t, businessCampaign(), active)
	ctx := context.Background()

	if ok, _ := f.lease.Acquire(ctx, "camp-1", time.Hour); !ok {
		t.Fatalf("expected to hold lease before completion")
	}

	if err := f.d.HandleCallCompleted(ctx, "camp-1", "lead-1", calls.StatusCompleted); err != nil {
		t.Fatalf("HandleCallCompleted: %v", err)
	}

	l, _ := f.leads.GetByID(ctx, "lead-1")
	if l.Status != lead.StatusCompleted {
		t.Fatalf("expected completed, got %s", l.Status)
	}
	if l.RetryOn != "" {
		t.Fatalf("expected no retry marker on a completed lead, got %q", l.RetryOn)
	}

	// Completion releases the lease early, before the TTL.
	if ok, _ := f.lease.Acquire(ctx, "camp-1", time.Hour); !ok {
		t.Fatalf("expected lease to be released after completion")
	}
}

func TestHandleCallCompleted_RetryableUnderBudget(t *testing.T) {
	f := newDialerFixture(t)
	active := queuedLead("lead-1", 0)
	active.Status = lead.StatusCalling
	active.Attempts = 1
	f.seed(t, businessCampaign(), active)
	ctx := context.Background()

	if err := f.d.HandleCallCompleted(ctx, "camp-1", "lead-1", calls.StatusNoAnswer); err != nil {
		t.Fatalf("HandleCallCompleted: %v", err)
	}

	l, _ := f.leads.GetByID(ctx, "lead-1")
	if l.Status != lead.StatusQueued {
		t.Fatalf("expected lead re-queued, got %s", l.Status)
	}
	if l.RetryOn != lead.RetryMarkerTomorrow {
		t.Fatalf("expected retry marker, got %q", l.RetryOn)
	}

	// Parked: not dialable until the sweep clears the marker.
	next, err := f.d.GetNextLead(ctx, "camp-1")
	if err != nil {
		t.Fatalf("GetNextLead: %v", err)
	}
	if next != nil {
		t.Fatalf("expected parked lead to be excluded from selection")
	}
}

func TestHandleCallCompleted_BudgetExhausted(t *testing.T) {
	f := newDialerFixture(t)
	active := queuedLead("lead-1", 0)
	active.Status = lead.StatusCalling
	active.Attempts = 3
	f.seed(t, businessCampaign(), active)
	ctx := context.Background()

	if err := f.d.HandleCallCompleted(ctx, "camp-1", "lead-1", calls.StatusBusy); err != nil {
		t.Fatalf("HandleCallCompleted: %v", err)
	}

	l, _ := f.leads.GetByID(ctx, "lead-1")
	if l.Status != lead.StatusBusy {
		t.Fatalf("expected terminal busy after last attempt, got %s", l.Status)
	}
	if l.RetryOn != "" {
		t.Fatalf("expected no retry marker, got %q", l.RetryOn)
	}
}

func TestHandleCallCompleted_DuplicateTerminalCallback(t *testing.T) {
	f := newDialerFixture(t)
	done := queuedLead("lead-1", 0)
	done.Status = lead.StatusCompleted
	done.Attempts = 1
	f.seed(t, businessCampaign(), done)
	ctx := context.Background()

	if err := f.d.HandleCallCompleted(ctx, "camp-1", "lead-1", calls.StatusFailed); err != nil {
		t.Fatalf("HandleCallCompleted: %v", err)
	}

	l, _ := f.leads.GetByID(ctx, "lead-1")
	if l.Status != lead.StatusCompleted {
		t.Fatalf("duplicate callback must not rewrite a terminal lead, got %s", l.Status)
	}
}

func TestMapCallStatus(t *testing.T) {
	tests := []struct {
		in        calls.Status
		want      lead.Status
		retryable bool
	}{
		{calls.StatusCompleted, lead.StatusCompleted, false},
		{calls.StatusBusy, lead.StatusBusy, true},
		{calls.StatusNoAnswer, lead.StatusNoAnswer, true},
		{calls.StatusFailed, lead.StatusFailed, true},
		{calls.StatusCanceled, lead.StatusFailed, true},
	}
	for _, tt := range tests {
		got, retryable := mapCallStatus(tt.in)
		if got != tt.want || retryable != tt.retryable {
			t.Fatalf("mapCallStatus(%s) = (%s, %t), want (%s, %t)",
				tt.in, got, retryable, tt.want, tt.retryable)
		}
	}
}
