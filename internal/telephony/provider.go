package telephony

import "context"

// Provider defines the provider-agnostic origination capability used by the
// dialer.
//
// Rules:
// - No provider SDK calls outside telephony adapters.
// - Keep request/response types provider-agnostic; correlate callbacks via
//   the lead/campaign ids carried on the callback URLs.
type Provider interface {
	Name() string
	HealthCheck(ctx context.Context) error

	OriginateCall(ctx context.Context, req OriginateCallRequest) (OriginateCallResult, error)
}

// OriginateCallRequest asks the provider to place one outbound call.
type OriginateCallRequest struct {
	// To and From are E.164.
	To   string `json:"to"`
	From string `json:"from"`

	// Correlation ids embedded in the callback URLs so asynchronous status
	// callbacks can be mapped back without provider-side state.
	LeadID      string `json:"lead_id"`
	CampaignID  string `json:"campaign_id"`
	AssistantID string `json:"assistant_id"`

	Record         bool `json:"record"`
	TimeoutSeconds int  `json:"timeout_seconds"`
}

// OriginateCallResult carries the provider's globally unique call id.
type OriginateCallResult struct {
	CallSID string `json:"call_sid"`
}
