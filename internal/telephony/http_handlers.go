package telephony

import (
	"context"
	"net/http"

	"outreach-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// StatusSink consumes normalized status callbacks. Implemented by the
// dialer's call status processor.
type StatusSink interface {
	ProcessCallStatus(ctx context.Context, callSID, callStatus string, duration *int, leadID, campaignID string) error
}

// TwilioStatusWebhookHandler converts the Twilio status callback to internal
// types and delegates to the status sink.
//
// No business logic here.
//
// CallSid and CallStatus are the only mandatory fields; a callback missing
// either is rejected at the boundary and the provider's own retry delivers
// it again.
type TwilioStatusWebhookHandler struct {
	Sink StatusSink
}

func (h TwilioStatusWebhookHandler) HandleStatusCallback(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Sink == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "status sink not configured"})
		return
	}

	form, err := ParseTwilioStatusCallback(c.Request)
	if err != nil {
		log.Warn("twilio status webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}
	if form.CallSid == "" || form.CallStatus == "" {
		log.Warn("twilio status webhook missing mandatory fields",
			"call_sid", form.CallSid, "call_status", form.CallStatus)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "CallSid and CallStatus are required"})
		return
	}

	if err := h.Sink.ProcessCallStatus(
		c.Request.Context(),
		form.CallSid, form.CallStatus, form.CallDuration,
		form.LeadID, form.CampaignID,
	); err != nil {
		log.Error("status callback processing failed", "call_sid", form.CallSid, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	c.Status(http.StatusNoContent)
}
