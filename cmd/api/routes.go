package main

import (
	"outreach-platform/internal/campaign"
	"outreach-platform/internal/dialer"
	"outreach-platform/internal/httpapi"
	"outreach-platform/internal/lead"
	"outreach-platform/internal/telephony"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type routeDeps struct {
	authMW       gin.HandlerFunc
	processor    *dialer.StatusProcessor
	campaignRepo campaign.Repository
	leadRepo     lead.Repository
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, deps routeDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Provider webhooks (public).
	// NOTE: This endpoint should be protected by Twilio signature validation in production.
	{
		h := telephony.TwilioStatusWebhookHandler{Sink: deps.processor}
		r.POST("/webhooks/twilio/status", h.HandleStatusCallback)
	}

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(deps.authMW)
	{
		h := httpapi.Handlers{
			Campaigns: campaign.NewService(deps.campaignRepo),
			Leads:     lead.NewService(deps.leadRepo, deps.campaignRepo),
			LeadRepo:  deps.leadRepo,
		}

		campaigns := v1.Group("/campaigns")
		{
			campaigns.POST("", h.CreateCampaign)
			campaigns.GET("/:campaign_id", h.GetCampaign)
			campaigns.POST("/:campaign_id/leads", h.UploadLeads)
			campaigns.GET("/:campaign_id/leads", h.ListLeads)
			campaigns.POST("/:campaign_id/start", h.StartCampaign)
			campaigns.POST("/:campaign_id/pause", h.PauseCampaign)
			campaigns.POST("/:campaign_id/resume", h.ResumeCampaign)
			campaigns.POST("/:campaign_id/stop", h.StopCampaign)
		}
	}
}
