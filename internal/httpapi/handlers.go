package httpapi

import (
	"context"
	"errors"
	"net/http"

	"outreach-platform/internal/auth"
	"outreach-platform/internal/campaign"
	"outreach-platform/internal/lead"
	"outreach-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Campaigns *campaign.Service
	Leads     *lead.Service
	LeadRepo  lead.Repository
}

// --- Campaigns ---

func (h Handlers) CreateCampaign(c *gin.Context) {
	ownerID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req campaign.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	created, err := h.Campaigns.Create(c.Request.Context(), ownerID, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h Handlers) GetCampaign(c *gin.Context) {
	ownerID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	id := c.Param("campaign_id")
	cmp, err := h.Campaigns.Get(c.Request.Context(), ownerID, id)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	stats, err := h.campaignStats(c.Request.Context(), id)
	if err != nil {
		logger.FromGin(c).Error("campaign stats failed", "campaign_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaign": cmp, "stats": stats})
}

// Status-change handlers. Transitions take effect on the scheduler's next
// tick; they cannot preempt an already-originated call.

func (h Handlers) StartCampaign(c *gin.Context)  { h.changeStatus(c, h.Campaigns.Start) }
func (h Handlers) PauseCampaign(c *gin.Context)  { h.changeStatus(c, h.Campaigns.Pause) }
func (h Handlers) ResumeCampaign(c *gin.Context) { h.changeStatus(c, h.Campaigns.Resume) }
func (h Handlers) StopCampaign(c *gin.Context)   { h.changeStatus(c, h.Campaigns.Stop) }

func (h Handlers) changeStatus(c *gin.Context, op func(context.Context, string, string) (campaign.Campaign, error)) {
	ownerID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	cmp, err := op(c.Request.Context(), ownerID, c.Param("campaign_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, cmp)
}

// --- Leads ---

type uploadLeadsRequest struct {
	Leads []lead.UploadEntry `json:"leads"`
}

func (h Handlers) UploadLeads(c *gin.Context) {
	ownerID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req uploadLeadsRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Leads) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "leads are required"})
		return
	}

	res, err := h.Leads.BulkCreate(c.Request.Context(), ownerID, c.Param("campaign_id"), req.Leads)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h Handlers) ListLeads(c *gin.Context) {
	ownerID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	id := c.Param("campaign_id")
	if _, err := h.Campaigns.Get(c.Request.Context(), ownerID, id); err != nil {
		writeServiceError(c, err)
		return
	}

	leads, err := h.LeadRepo.ListByCampaign(c.Request.Context(), id)
	if err != nil {
		logger.FromGin(c).Error("lead list failed", "campaign_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leads": leads})
}

func (h Handlers) campaignStats(ctx context.Context, campaignID string) (campaign.Stats, error) {
	counts, err := h.LeadRepo.CountsByCampaign(ctx, campaignID)
	if err != nil {
		return campaign.Stats{}, err
	}
	s := campaign.Stats{
		Queued:    counts[lead.StatusQueued],
		Calling:   counts[lead.StatusCalling],
		Completed: counts[lead.StatusCompleted],
		Failed:    counts[lead.StatusFailed],
		NoAnswer:  counts[lead.StatusNoAnswer],
		Busy:      counts[lead.StatusBusy],
	}
	for _, n := range counts {
		s.TotalLeads += n
	}
	return s, nil
}

func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, campaign.ErrNotFound), errors.Is(err, lead.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, campaign.ErrForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, campaign.ErrBadTransition):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "illegal status transition"})
	case errors.Is(err, campaign.ErrInvalidArgument), errors.Is(err, lead.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid argument"})
	default:
		logger.FromGin(c).Error("request failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
