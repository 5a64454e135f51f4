package telephony

import (
	"net/http"
	"strconv"
	"strings"
)

// TwilioStatusForm captures the subset of status-callback fields the dialing
// core cares about. Twilio sends application/x-www-form-urlencoded by
// default; the correlation ids ride on the callback URL's query string.
//
// Keep it minimal and provider-adapter-only. Business logic (lead state
// transitions) is not made here.
type TwilioStatusForm struct {
	CallSid      string
	CallStatus   string
	CallDuration *int

	LeadID     string
	CampaignID string
}

func ParseTwilioStatusCallback(r *http.Request) (TwilioStatusForm, error) {
	if err := r.ParseForm(); err != nil {
		return TwilioStatusForm{}, err
	}
	f := TwilioStatusForm{
		CallSid:    strings.TrimSpace(r.PostFormValue("CallSid")),
		CallStatus: strings.TrimSpace(r.PostFormValue("CallStatus")),
		LeadID:     strings.TrimSpace(r.URL.Query().Get("leadId")),
		CampaignID: strings.TrimSpace(r.URL.Query().Get("campaignId")),
	}
	if raw := strings.TrimSpace(r.PostFormValue("CallDuration")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			f.CallDuration = &n
		}
	}
	return f, nil
}
