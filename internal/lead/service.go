package lead

import (
	"context"
	"time"

	"outreach-platform/internal/campaign"

	"github.com/google/uuid"
)

// Service owns lead bulk upload. Dialing-time mutations belong to the dialer,
// not here.
type Service struct {
	leads     Repository
	campaigns campaign.Repository
	clock     func() time.Time
}

func NewService(leads Repository, campaigns campaign.Repository) *Service {
	return &Service{leads: leads, campaigns: campaigns, clock: time.Now}
}

// UploadEntry is one row of a bulk lead upload.
type UploadEntry struct {
	Number   string `json:"number"`
	Timezone string `json:"timezone,omitempty"`
}

// UploadResult reports per-batch outcomes; rejected rows do not abort the
// batch.
type UploadResult struct {
	Created  []Lead   `json:"created"`
	Rejected []string `json:"rejected,omitempty"`
}

// BulkCreate normalizes numbers, assigns stable order indexes continuing
// from the campaign's existing leads, and stores the batch queued.
func (s *Service) BulkCreate(ctx context.Context, ownerID, campaignID string, entries []UploadEntry) (UploadResult, error) {
	if campaignID == "" || len(entries) == 0 {
		return UploadResult{}, ErrInvalidArgument
	}
	c, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return UploadResult{}, err
	}
	if c.OwnerID != ownerID {
		return UploadResult{}, campaign.ErrForbidden
	}

	next, err := s.leads.NextOrderIndex(ctx, campaignID)
	if err != nil {
		return UploadResult{}, err
	}

	now := s.clock().UTC()
	var res UploadResult
	var batch []Lead
	for _, e := range entries {
		normalized, err := NormalizeE164(e.Number)
		if err != nil {
			res.Rejected = append(res.Rejected, e.Number)
			continue
		}
		batch = append(batch, Lead{
			ID:         uuid.NewString(),
			CampaignID: campaignID,
			RawNumber:  e.Number,
			Number:     normalized,
			Timezone:   e.Timezone,
			Status:     StatusQueued,
			OrderIndex: next,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		next++
	}
	if len(batch) > 0 {
		if err := s.leads.CreateBatch(ctx, batch); err != nil {
			return UploadResult{}, err
		}
	}
	res.Created = batch
	return res, nil
}
