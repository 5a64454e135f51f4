package lead

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("lead: not found")
	ErrInvalidArgument = errors.New("lead: invalid argument")
)

// Repository is the persistence contract for leads.
type Repository interface {
	GetByID(ctx context.Context, id string) (Lead, error)

	// ListDialable returns up to limit queued leads for the campaign that do
	// not carry a retry marker, in order_index ascending order.
	ListDialable(ctx context.Context, campaignID string, limit int) ([]Lead, error)

	// ListByRetryMarker returns every lead parked with the given marker,
	// across campaigns.
	ListByRetryMarker(ctx context.Context, marker string) ([]Lead, error)

	// ListByCampaign returns the campaign's leads in order_index order.
	ListByCampaign(ctx context.Context, campaignID string) ([]Lead, error)

	CountByStatus(ctx context.Context, campaignID string, status Status) (int, error)

	// CountsByCampaign returns per-status lead counts for one campaign.
	CountsByCampaign(ctx context.Context, campaignID string) (map[Status]int, error)

	// NextOrderIndex returns the order_index the next uploaded lead receives.
	NextOrderIndex(ctx context.Context, campaignID string) (int, error)

	CreateBatch(ctx context.Context, leads []Lead) error
	Update(ctx context.Context, l Lead) error
}
