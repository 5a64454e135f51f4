package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"outreach-platform/internal/campaign"
	"outreach-platform/internal/lead"
)

// mondayMorning is 10:00 in New York on a Monday.
var mondayMorning = time.Date(2026, 1, 5, 15, 0, 0, 0, time.UTC)

type fakeDialer struct {
	mu     sync.Mutex
	dialed []string
	result bool
	err    error
}

func (f *fakeDialer) DialNext(_ context.Context, campaignID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dialed = append(f.dialed, campaignID)
	return f.result, f.err
}

func (f *fakeDialer) dialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.dialed)
}

type schedFixture struct {
	campaigns *campaign.MemoryRepo
	leads     *lead.MemoryRepo
	dialer    *fakeDialer
	s         *Scheduler
}

func newSchedFixture(t *testing.T) *schedFixture {
	t.Helper()
	f := &schedFixture{
		campaigns: campaign.NewMemoryRepo(),
		leads:     lead.NewMemoryRepo(),
		dialer:    &fakeDialer{result: true},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(f.campaigns, f.leads, f.dialer, nil, Config{}, log)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	f.s = s.WithClock(func() time.Time { return mondayMorning })
	return f
}

func businessCampaign(id string) campaign.Campaign {
	return campaign.Campaign{
		ID:           id,
		OwnerID:      "owner-1",
		CallerNumber: "+15550001111",
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

func queuedLead(id, campaignID string, order int) lead.Lead {
	return lead.Lead{
		ID:         id,
		CampaignID: campaignID,
		Number:     "+15550002222",
		Status:     lead.StatusQueued,
		OrderIndex: order,
	}
}

func (f *schedFixture) seed(t *testing.T, c campaign.Campaign, leads ...lead.Lead) {
	t.Helper()
	ctx := context.Background()
	if err := f.campaigns.Create(ctx, c); err != nil {
		t.Fatalf("seed campaign: %v", err)
	}
	if err := f.leads.CreateBatch(ctx, leads); err != nil {
		t.Fatalf("seed leads: %v", err)
	}
}

func TestTick_DialsEligibleCampaign(t *testing.T) {
	f := newSchedFixture(t)
	f.seed(t, businessCampaign("camp-1"), queuedLead("lead-1", "camp-1", 0))

	if err := f.s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if f.dialer.dialCount() != 1 {
		t.Fatalf("expected 1 dial, got %d", f.dialer.dialCount())
	}
}

func TestTick_StopAtCompletesWithoutDialing(t *testing.T) {
	f := newSchedFixture(t)
	c := businessCampaign("camp-1")
	past := mondayMorning.Add(-time.Hour)
	c.StopAt = &past
	f.seed(t, c, queuedLead("lead-1", "camp-1", 0))
	ctx := context.Background()

	if err := f.s.Tick(ctx); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if f.dialer.dialCount() != 0 {
		t.Fatalf("expected no dial past stop_at, got %d", f.dialer.dialCount())
	}

	got, err := f.campaigns.GetByID(ctx, "camp-1")
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if got.Status != campaign.StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
}

func TestTick_StartAtInFutureSkips(t *testing.T) {
	f := newSchedFixture(t)
	c := businessCampaign("camp-1")
	future := mondayMorning.Add(time.Hour)
	c.StartAt = &future
	f.seed(t, c, queuedLead("lead-1", "camp-1", 0))
	ctx := context.Background()

	if err := f.s.Tick(ctx); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if f.dialer.dialCount() != 0 {
		t.Fatalf("expected no dial before start_at, got %d", f.dialer.dialCount())
	}

	got, _ := f.campaigns.GetByID(ctx, "camp-1")
	if got.Status != campaign.StatusRunning {
		t.Fatalf("expected campaign still running, got %s", got.Status)
	}
}

func TestTick_InFlightCallSkipsCampaign(t *testing.T) {
	f := newSchedFixture(t)
	active := queuedLead("lead-1", "camp-1", 0)
	active.Status = lead.StatusCalling
	f.seed(t, businessCampaign("camp-1"), active, queuedLead("lead-2", "camp-1", 1))

	if err := f.s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if f.dialer.dialCount() != 0 {
		t.Fatalf("expected no dial while a call is in flight, got %d", f.dialer.dialCount())
	}
}

func TestTick_ClosedWindowSkipsCampaign(t *testing.T) {
	f := newSchedFixture(t)
	c := businessCampaign("camp-1")
	c.Window.Days = []int{5, 6} // weekend only
	f.seed(t, c, queuedLead("lead-1", "camp-1", 0))

	if err := f.s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if f.dialer.dialCount() != 0 {
		t.Fatalf("expected no dial outside the window, got %d", f.dialer.dialCount())
	}
}

func TestTick_AllLeadsTerminalCompletesCampaign(t *testing.T) {
	f := newSchedFixture(t)
	done := queuedLead("lead-1", "camp-1", 0)
	done.Status = lead.StatusCompleted
	bad := queuedLead("lead-2", "camp-1", 1)
	bad.Status = lead.StatusFailed
	f.seed(t, businessCampaign("camp-1"), done, bad)
	ctx := context.Background()

	if err := f.s.Tick(ctx); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	got, _ := f.campaigns.GetByID(ctx, "camp-1")
	if got.Status != campaign.StatusCompleted {
		t.Fatalf("expected completed when every lead is terminal, got %s", got.Status)
	}
}

func TestTick_ParkedLeadsKeepCampaignRunning(t *testing.T) {
	f := newSchedFixture(t)
	parked := queuedLead("lead-1", "camp-1", 0)
	parked.RetryOn = lead.RetryMarkerTomorrow
	f.seed(t, businessCampaign("camp-1"), parked)
	ctx := context.Background()

	if err := f.s.Tick(ctx); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if f.dialer.dialCount() != 0 {
		t.Fatalf("expected no dial for a parked-only campaign, got %d", f.dialer.dialCount())
	}

	got, _ := f.campaigns.GetByID(ctx, "camp-1")
	if got.Status != campaign.StatusRunning {
		t.Fatalf("parked leads must keep the campaign running, got %s", got.Status)
	}
}

func TestTick_SkipsNonRunningCampaigns(t *testing.T) {
	f := newSchedFixture(t)
	c := businessCampaign("camp-1")
	c.Status = campaign.StatusPaused
	f.seed(t, c, queuedLead("lead-1", "camp-1", 0))

	if err := f.s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if f.dialer.dialCount() != 0 {
		t.Fatalf("expected paused campaign to be skipped, got %d dials", f.dialer.dialCount())
	}
}

func TestSweep_ResetsMarkersForRunningCampaigns(t *testing.T) {
	f := newSchedFixture(t)
	ctx := context.Background()

	f.seed(t, businessCampaign("camp-1"))
	paused := businessCampaign("camp-2")
	paused.Status = campaign.StatusPaused
	if err := f.campaigns.Create(ctx, paused); err != nil {
		t.Fatalf("seed campaign: %v", err)
	}

	p1 := queuedLead("lead-1", "camp-1", 0)
	p1.RetryOn = lead.RetryMarkerTomorrow
	p2 := queuedLead("lead-2", "camp-2", 0)
	p2.RetryOn = lead.RetryMarkerTomorrow
	if err := f.leads.CreateBatch(ctx, []lead.Lead{p1, p2}); err != nil {
		t.Fatalf("seed leads: %v", err)
	}

	if err := f.s.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	l1, _ := f.leads.GetByID(ctx, "lead-1")
	if l1.RetryOn != "" || l1.Status != lead.StatusQueued {
		t.Fatalf("expected lead-1 swept back to queue, got status=%s retry_on=%q", l1.Status, l1.RetryOn)
	}
	l2, _ := f.leads.GetByID(ctx, "lead-2")
	if l2.RetryOn != lead.RetryMarkerTomorrow {
		t.Fatalf("expected lead-2 on a paused campaign untouched, got retry_on=%q", l2.RetryOn)
	}
}

func TestNew_RejectsBadSweepSchedule(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := New(campaign.NewMemoryRepo(), lead.NewMemoryRepo(), &fakeDialer{}, nil,
		Config{SweepSchedule: "not a cron"}, log)
	if err == nil {
		t.Fatalf("expected an error for a malformed sweep schedule")
	}
}
