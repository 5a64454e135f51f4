package campaign

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("campaign: not found")
	ErrInvalidArgument = errors.New("campaign: invalid argument")
	ErrBadTransition   = errors.New("campaign: illegal status transition")
	ErrForbidden       = errors.New("campaign: not owned by caller")
)

// Repository is the persistence contract for campaigns.
type Repository interface {
	GetByID(ctx context.Context, id string) (Campaign, error)
	ListByStatus(ctx context.Context, status Status) ([]Campaign, error)
	Create(ctx context.Context, c Campaign) error
	Update(ctx context.Context, c Campaign) error
}
