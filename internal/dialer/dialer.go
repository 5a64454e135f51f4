package dialer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"outreach-platform/internal/calls"
	"outreach-platform/internal/campaign"
	"outreach-platform/internal/events"
	"outreach-platform/internal/lead"
	"outreach-platform/internal/lease"
	"outreach-platform/internal/metrics"
	"outreach-platform/internal/telephony"

	"github.com/google/uuid"
)

// lookaheadLimit bounds how many queued candidates one selection scan
// inspects. Keeps each scan cheap; a lead ranked past the bound is simply
// not considered until earlier leads leave the queue.
const lookaheadLimit = 10

// Config carries the dialer's operational defaults.
type Config struct {
	// LeaseTTL doubles as the minimum cool-down between dials of one
	// campaign, because DialNext leaves the lease to expire on its own.
	LeaseTTL time.Duration

	// DefaultMaxAttempts applies when a campaign's retry policy omits it.
	DefaultMaxAttempts int

	// DefaultTimezone applies when neither the lead nor the campaign window
	// carries one.
	DefaultTimezone string

	// CallTimeoutSeconds is passed to the provider as the ring timeout.
	CallTimeoutSeconds int
}

func (c Config) withDefaults() Config {
	out := c
	if out.LeaseTTL <= 0 {
		out.LeaseTTL = lease.DefaultTTL
	}
	if out.DefaultMaxAttempts <= 0 {
		out.DefaultMaxAttempts = 3
	}
	if out.DefaultTimezone == "" {
		out.DefaultTimezone = "UTC"
	}
	if out.CallTimeoutSeconds <= 0 {
		out.CallTimeoutSeconds = 30
	}
	return out
}

// Dialer selects the next eligible lead for a campaign and originates one
// call, guarded by the campaign lease; it also finalizes a lead's outcome
// when a call ends.
type Dialer struct {
	campaigns campaign.Repository
	leads     lead.Repository
	attempts  calls.Repository
	provider  telephony.Provider
	lease     lease.Lease
	retry     RetryStrategy
	publisher *events.Publisher
	cfg       Config
	log       *slog.Logger
	clock     func() time.Time
}

func New(
	campaigns campaign.Repository,
	leads lead.Repository,
	attempts calls.Repository,
	provider telephony.Provider,
	ls lease.Lease,
	publisher *events.Publisher,
	cfg Config,
	log *slog.Logger,
) *Dialer {
	if log == nil {
		log = slog.Default()
	}
	return &Dialer{
		campaigns: campaigns,
		leads:     leads,
		attempts:  attempts,
		provider:  provider,
		lease:     ls,
		retry:     NewNextDayStrategy(),
		publisher: publisher,
		cfg:       cfg.withDefaults(),
		log:       log,
		clock:     time.Now,
	}
}

// GetNextLead scans up to the first lookaheadLimit queued leads of the
// campaign in order_index order and returns the first one inside its working
// window and under the attempts budget. A nil lead with nil error means no
// candidate is currently eligible.
func (d *Dialer) GetNextLead(ctx context.Context, campaignID string) (*lead.Lead, error) {
	c, err := d.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("get campaign %s: %w", campaignID, err)
	}
	maxAttempts := d.maxAttempts(c)

	candidates, err := d.leads.ListDialable(ctx, campaignID, lookaheadLimit)
	if err != nil {
		return nil, fmt.Errorf("list dialable leads: %w", err)
	}

	now := d.clock()
	for i := range candidates {
		l := candidates[i]
		if l.Attempts >= maxAttempts {
			continue
		}
		ok, err := c.Window.Eligible(now, d.leadTimezone(c, l))
		if err != nil {
			d.log.Warn("working window misconfigured, skipping campaign",
				"campaign_id", campaignID, "err", err)
			return nil, nil
		}
		if ok {
			return &l, nil
		}
	}
	return nil, nil
}

// PlaceCall marks the lead calling, counts the attempt, and asks the
// provider to originate. The attempt counter is bumped before origination on
// purpose: a placement that fails at the provider has still consumed a try
// against the lead's budget, only its status reverts to queued.
func (d *Dialer) PlaceCall(ctx context.Context, campaignID, leadID string) (string, error) {
	c, err := d.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return "", fmt.Errorf("get campaign %s: %w", campaignID, err)
	}
	l, err := d.leads.GetByID(ctx, leadID)
	if err != nil {
		return "", fmt.Errorf("get lead %s: %w", leadID, err)
	}
	if l.Number == "" {
		return "", fmt.Errorf("lead %s: %w: empty destination number", leadID, lead.ErrInvalidArgument)
	}

	now := d.clock().UTC()
	l.Status = lead.StatusCalling
	l.Attempts++
	l.UpdatedAt = now
	if err := d.leads.Update(ctx, l); err != nil {
		return "", fmt.Errorf("mark lead calling: %w", err)
	}

	res, err := d.provider.OriginateCall(ctx, telephony.OriginateCallRequest{
		To:             l.Number,
		From:           c.CallerNumber,
		LeadID:         l.ID,
		CampaignID:     c.ID,
		AssistantID:    c.AssistantID,
		Record:         true,
		TimeoutSeconds: d.cfg.CallTimeoutSeconds,
	})
	if err != nil {
		metrics.OriginateFailures.Inc()
		d.log.Warn("call origination failed, reverting lead to queued",
			"campaign_id", campaignID, "lead_id", leadID, "attempt", l.Attempts, "err", err)
		l.Status = lead.StatusQueued
		l.UpdatedAt = d.clock().UTC()
		if uerr := d.leads.Update(ctx, l); uerr != nil {
			d.log.Error("lead revert failed", "lead_id", leadID, "err", uerr)
		}
		return "", nil
	}

	a := calls.Attempt{
		ID:            uuid.NewString(),
		CampaignID:    c.ID,
		LeadID:        l.ID,
		AttemptNumber: l.Attempts,
		CallSID:       res.CallSID,
		Status:        calls.StatusInitiated,
		StartedAt:     now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := d.attempts.Create(ctx, a); err != nil {
		d.log.Error("call attempt record failed", "call_sid", res.CallSID, "err", err)
	}

	l.LastCallSID = res.CallSID
	l.UpdatedAt = d.clock().UTC()
	if err := d.leads.Update(ctx, l); err != nil {
		d.log.Error("lead call sid update failed", "lead_id", leadID, "err", err)
	}

	metrics.CallsOriginated.Inc()
	if err := d.publisher.CallPlaced(ctx, events.CallPlacedPayload{
		CampaignID: c.ID,
		LeadID:     l.ID,
		CallSID:    res.CallSID,
		Attempt:    l.Attempts,
	}); err != nil {
		d.log.Warn("call.placed event publish failed", "call_sid", res.CallSID, "err", err)
	}

	d.log.Info("call placed",
		"campaign_id", c.ID, "lead_id", l.ID, "call_sid", res.CallSID, "attempt", l.Attempts)
	return res.CallSID, nil
}

// DialNext advances one campaign by at most one call. A false return with
// nil error means the campaign lease was held or no lead is eligible;
// that is expected contention, not a failure.
//
// The lease is deliberately not released here. Letting it expire on its TTL
// enforces a minimum cool-down between dials of one campaign even under high
// scheduler frequency; the completion handler releases it early instead.
func (d *Dialer) DialNext(ctx context.Context, campaignID string) (bool, error) {
	ok, err := d.lease.Acquire(ctx, campaignID, d.cfg.LeaseTTL)
	if err != nil {
		return false, fmt.Errorf("lease acquire: %w", err)
	}
	if !ok {
		metrics.LeaseContention.Inc()
		return false, nil
	}

	l, err := d.GetNextLead(ctx, campaignID)
	if err != nil {
		return false, err
	}
	if l == nil {
		return false, nil
	}

	sid, err := d.PlaceCall(ctx, campaignID, l.ID)
	if err != nil {
		return false, err
	}
	return sid != "", nil
}

// HandleCallCompleted maps the provider's terminal status onto the lead and
// always releases the campaign lease so the scheduler may advance the
// campaign on its very next tick instead of waiting out the TTL.
func (d *Dialer) HandleCallCompleted(ctx context.Context, campaignID, leadID string, callStatus calls.Status) error {
	defer func() {
		if err := d.lease.Release(ctx, campaignID); err != nil {
			d.log.Warn("lease release failed", "campaign_id", campaignID, "err", err)
		}
	}()

	c, err := d.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("get campaign %s: %w", campaignID, err)
	}
	l, err := d.leads.GetByID(ctx, leadID)
	if err != nil {
		return fmt.Errorf("get lead %s: %w", leadID, err)
	}

	// Duplicate terminal callbacks are a no-op; the first delivery already
	// finalized the lead.
	if l.Status.Terminal() {
		d.log.Debug("duplicate completion for terminal lead",
			"lead_id", leadID, "lead_status", l.Status, "call_status", callStatus)
		return nil
	}

	mapped, retryable := mapCallStatus(callStatus)
	maxAttempts := d.maxAttempts(c)

	now := d.clock().UTC()
	if retryable && l.Attempts < maxAttempts && d.retry.NextRetryTime(l.Attempts, c.Retry) != nil {
		l.Status = lead.StatusQueued
		l.RetryOn = lead.RetryMarkerTomorrow
	} else {
		l.Status = mapped
		l.RetryOn = ""
	}
	l.UpdatedAt = now
	if err := d.leads.Update(ctx, l); err != nil {
		return fmt.Errorf("finalize lead %s: %w", leadID, err)
	}

	if err := d.publisher.CallCompleted(ctx, events.CallCompletedPayload{
		CampaignID: campaignID,
		LeadID:     leadID,
		CallStatus: string(callStatus),
		LeadStatus: string(l.Status),
		Attempt:    l.Attempts,
	}); err != nil {
		d.log.Warn("call.completed event publish failed", "lead_id", leadID, "err", err)
	}

	d.log.Info("call completed",
		"campaign_id", campaignID, "lead_id", leadID,
		"call_status", callStatus, "lead_status", l.Status,
		"attempt", l.Attempts, "retry_on", l.RetryOn)
	return nil
}

func (d *Dialer) maxAttempts(c campaign.Campaign) int {
	if c.Retry.MaxAttempts > 0 {
		return c.Retry.MaxAttempts
	}
	return d.cfg.DefaultMaxAttempts
}

// leadTimezone resolves the zone a lead is evaluated in: its own detected
// zone, else the campaign window's, else the configured default.
func (d *Dialer) leadTimezone(c campaign.Campaign, l lead.Lead) string {
	if l.Timezone != "" {
		return l.Timezone
	}
	if c.Window.Timezone != "" {
		return c.Window.Timezone
	}
	return d.cfg.DefaultTimezone
}

// IsNotFound reports whether err is a missing campaign or lead.
func IsNotFound(err error) bool {
	return errors.Is(err, campaign.ErrNotFound) || errors.Is(err, lead.ErrNotFound)
}

// WithClock overrides the time source. Test use only.
func (d *Dialer) WithClock(clock func() time.Time) *Dialer {
	d.clock = clock
	return d
}
