// Package scheduler drives campaign dialing: a periodic tick walks every
// running campaign and asks the dialer to advance it, and a daily sweep
// returns next-day-retry leads to the queue.
//
// Multiple scheduler processes may run concurrently; the campaign lease
// guarantees at most one in-flight dial per campaign system-wide, so extra
// schedulers only add polling redundancy.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"outreach-platform/internal/campaign"
	"outreach-platform/internal/events"
	"outreach-platform/internal/lead"
	"outreach-platform/internal/metrics"

	"github.com/robfig/cron/v3"
)

// CampaignDialer is the slice of the dialer the scheduler drives.
type CampaignDialer interface {
	DialNext(ctx context.Context, campaignID string) (bool, error)
}

// Config configures the scheduler loop.
type Config struct {
	// TickInterval is the poll cadence. Seconds-scale.
	TickInterval time.Duration

	// Workers bounds the per-tick campaign pool so one slow provider call
	// cannot delay unrelated campaigns.
	Workers int

	// SweepSchedule is a cron expression for the retry sweep. The sweep is
	// idempotent, so an aggressive schedule is safe.
	SweepSchedule string
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Scheduler is the periodic driver. One instance per process.
type Scheduler struct {
	campaigns campaign.Repository
	leads     lead.Repository
	dialer    CampaignDialer
	publisher *events.Publisher
	log       *slog.Logger
	clock     func() time.Time

	tickInterval time.Duration
	workers      int

	sweepSchedule cron.Schedule
	nextSweep     time.Time
}

func New(
	campaigns campaign.Repository,
	leads lead.Repository,
	d CampaignDialer,
	publisher *events.Publisher,
	cfg Config,
	log *slog.Logger,
) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 10 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.SweepSchedule == "" {
		cfg.SweepSchedule = "0 0 * * *"
	}
	sched, err := cronParser.Parse(cfg.SweepSchedule)
	if err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", cfg.SweepSchedule, err)
	}

	s := &Scheduler{
		campaigns:     campaigns,
		leads:         leads,
		dialer:        d,
		publisher:     publisher,
		log:           log,
		clock:         time.Now,
		tickInterval:  cfg.TickInterval,
		workers:       cfg.Workers,
		sweepSchedule: sched,
	}
	s.nextSweep = sched.Next(s.clock())
	return s, nil
}

// Run blocks until ctx is canceled, ticking on the configured interval.
// Errors inside a tick are logged, never fatal.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("scheduler started",
		"tick_interval", s.tickInterval, "workers", s.workers, "next_sweep", s.nextSweep)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			now := s.clock()
			if !now.Before(s.nextSweep) {
				if err := s.Sweep(ctx); err != nil {
					s.log.Error("retry sweep failed", "err", err)
				}
				s.nextSweep = s.sweepSchedule.Next(now)
			}
			if err := s.Tick(ctx); err != nil {
				s.log.Error("scheduler tick failed", "err", err)
			}
		}
	}
}

// Tick makes one cooperative pass over all running campaigns. Campaigns are
// processed on a bounded worker pool; each worker is still serialized by its
// campaign's lease, so pool size only controls tick latency.
func (s *Scheduler) Tick(ctx context.Context) error {
	started := s.clock()

	running, err := s.campaigns.ListByStatus(ctx, campaign.StatusRunning)
	if err != nil {
		return fmt.Errorf("list running campaigns: %w", err)
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.workers)
	for i := range running {
		c := running[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := s.processCampaign(ctx, c); err != nil {
				s.log.Error("campaign processing failed", "campaign_id", c.ID, "err", err)
			}
		}()
	}
	wg.Wait()

	metrics.SchedulerTicks.Inc()
	metrics.TickDuration.Observe(s.clock().Sub(started).Seconds())
	return nil
}

// processCampaign applies the per-tick gate sequence to one campaign and
// dials at most one lead.
func (s *Scheduler) processCampaign(ctx context.Context, c campaign.Campaign) error {
	now := s.clock()

	if c.StartAt != nil && now.Before(*c.StartAt) {
		return nil
	}
	if c.StopAt != nil && now.After(*c.StopAt) {
		return s.completeCampaign(ctx, c, "stop_at reached")
	}

	// Coarse single-flight guard, redundant with the lease on purpose: it
	// spares a lease round-trip while a call is known to be in flight.
	calling, err := s.leads.CountByStatus(ctx, c.ID, lead.StatusCalling)
	if err != nil {
		return fmt.Errorf("count calling leads: %w", err)
	}
	if calling > 0 {
		return nil
	}

	eligible, err := c.Window.Eligible(now, "")
	if err != nil {
		s.log.Warn("working window misconfigured, skipping campaign",
			"campaign_id", c.ID, "err", err)
		return nil
	}
	if !eligible {
		return nil
	}

	dialable, err := s.leads.ListDialable(ctx, c.ID, 1)
	if err != nil {
		return fmt.Errorf("probe dialable leads: %w", err)
	}
	if len(dialable) == 0 {
		counts, err := s.leads.CountsByCampaign(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("count leads: %w", err)
		}
		total, terminal := 0, 0
		for status, n := range counts {
			total += n
			if status.Terminal() {
				terminal += n
			}
		}
		if total > 0 && terminal == total {
			return s.completeCampaign(ctx, c, "all leads terminal")
		}
		// Leads exist but are parked for retry or mid-flight; try again on a
		// later tick.
		return nil
	}

	dialed, err := s.dialer.DialNext(ctx, c.ID)
	if err != nil {
		return err
	}
	if dialed {
		s.log.Debug("campaign advanced", "campaign_id", c.ID)
	}
	return nil
}

func (s *Scheduler) completeCampaign(ctx context.Context, c campaign.Campaign, reason string) error {
	c.Status = campaign.StatusCompleted
	c.UpdatedAt = s.clock().UTC()
	if err := s.campaigns.Update(ctx, c); err != nil {
		return fmt.Errorf("complete campaign %s: %w", c.ID, err)
	}
	if err := s.publisher.CampaignCompleted(ctx, events.CampaignCompletedPayload{
		CampaignID: c.ID,
		Reason:     reason,
	}); err != nil {
		s.log.Warn("campaign.completed event publish failed", "campaign_id", c.ID, "err", err)
	}
	s.log.Info("campaign completed", "campaign_id", c.ID, "reason", reason)
	return nil
}

// Sweep returns every lead parked for next-day retry on a running campaign
// to the queue. Safe to run on any cadence; a lead is swept at most once.
func (s *Scheduler) Sweep(ctx context.Context) error {
	running, err := s.campaigns.ListByStatus(ctx, campaign.StatusRunning)
	if err != nil {
		return fmt.Errorf("list running campaigns: %w", err)
	}
	isRunning := make(map[string]bool, len(running))
	for _, c := range running {
		isRunning[c.ID] = true
	}

	parked, err := s.leads.ListByRetryMarker(ctx, lead.RetryMarkerTomorrow)
	if err != nil {
		return fmt.Errorf("list retry-marked leads: %w", err)
	}

	swept := 0
	now := s.clock().UTC()
	for _, l := range parked {
		if !isRunning[l.CampaignID] {
			continue
		}
		l.Status = lead.StatusQueued
		l.RetryOn = ""
		l.UpdatedAt = now
		if err := s.leads.Update(ctx, l); err != nil {
			s.log.Error("retry sweep update failed", "lead_id", l.ID, "err", err)
			continue
		}
		swept++
	}
	if swept > 0 {
		metrics.RetrySweepLeads.Add(float64(swept))
		s.log.Info("retry sweep completed", "swept", swept, "parked", len(parked))
	}
	return nil
}

// WithClock overrides the time source. Test use only.
func (s *Scheduler) WithClock(clock func() time.Time) *Scheduler {
	s.clock = clock
	s.nextSweep = s.sweepSchedule.Next(clock())
	return s
}
