package campaign

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service owns campaign lifecycle operations.
//
// Ownership invariant: every user-triggered mutation verifies the caller is
// the campaign's owner. The scheduler bypasses the service and works through
// the repository directly for its system-triggered completed transition.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

type CreateRequest struct {
	CallerNumber string        `json:"caller_number"`
	AssistantID  string        `json:"assistant_id"`
	Window       WorkingWindow `json:"working_window"`
	Retry        RetryPolicy   `json:"retry_policy"`
	Backoff      BackoffSpec   `json:"attempt_backoff"`
	Pacing       Pacing        `json:"pacing"`
	Lines        int           `json:"lines"`
	StartAt      *time.Time    `json:"start_at,omitempty"`
	StopAt       *time.Time    `json:"stop_at,omitempty"`
}

func (s *Service) Create(ctx context.Context, ownerID string, req CreateRequest) (Campaign, error) {
	if ownerID == "" || req.CallerNumber == "" {
		return Campaign{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	c := Campaign{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		CallerNumber: req.CallerNumber,
		AssistantID:  req.AssistantID,
		Window:       req.Window,
		Retry:        req.Retry,
		Backoff:      req.Backoff,
		Pacing:       req.Pacing,
		Lines:        req.Lines,
		Status:       StatusDraft,
		StartAt:      req.StartAt,
		StopAt:       req.StopAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return Campaign{}, err
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, ownerID, id string) (Campaign, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Campaign{}, err
	}
	if c.OwnerID != ownerID {
		return Campaign{}, ErrForbidden
	}
	return c, nil
}

func (s *Service) Start(ctx context.Context, ownerID, id string) (Campaign, error) {
	return s.changeStatus(ctx, ownerID, id, StatusRunning)
}

func (s *Service) Pause(ctx context.Context, ownerID, id string) (Campaign, error) {
	return s.changeStatus(ctx, ownerID, id, StatusPaused)
}

// Resume is Start from paused; both map to the running transition.
func (s *Service) Resume(ctx context.Context, ownerID, id string) (Campaign, error) {
	return s.changeStatus(ctx, ownerID, id, StatusRunning)
}

func (s *Service) Stop(ctx context.Context, ownerID, id string) (Campaign, error) {
	return s.changeStatus(ctx, ownerID, id, StatusStopped)
}

// changeStatus takes effect on the scheduler's next tick only; it cannot
// preempt an already-originated call.
func (s *Service) changeStatus(ctx context.Context, ownerID, id string, to Status) (Campaign, error) {
	c, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return Campaign{}, err
	}
	if !CanTransition(c.Status, to) {
		return Campaign{}, ErrBadTransition
	}
	c.Status = to
	c.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, c); err != nil {
		return Campaign{}, err
	}
	return c, nil
}
