package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// TwilioConfig carries the credentials and the public callback base URL used
// for status webhooks.
type TwilioConfig struct {
	AccountSID      string
	AuthToken       string
	CallbackBaseURL string
}

// TwilioProvider places calls through the Twilio Calls REST endpoint.
// Requests are form-encoded per the Twilio API; no SDK dependency.
type TwilioProvider struct {
	cfg     TwilioConfig
	client  *http.Client
	baseURL string
}

func NewTwilioProvider(cfg TwilioConfig) (*TwilioProvider, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, errors.New("telephony: twilio credentials are required")
	}
	if cfg.CallbackBaseURL == "" {
		return nil, errors.New("telephony: callback base url is required")
	}
	return &TwilioProvider{
		cfg:     cfg,
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: twilioAPIBase,
	}, nil
}

func (p *TwilioProvider) Name() string { return "twilio" }

func (p *TwilioProvider) HealthCheck(ctx context.Context) error {
	// Fetch the account resource; a 200 proves credentials and reachability.
	endpoint := fmt.Sprintf("%s/Accounts/%s.json", p.baseURL, p.cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(p.cfg.AccountSID, p.cfg.AuthToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio health check: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("twilio health check: status %d", resp.StatusCode)
	}
	return nil
}

func (p *TwilioProvider) OriginateCall(ctx context.Context, in OriginateCallRequest) (OriginateCallResult, error) {
	if in.To == "" || in.From == "" {
		return OriginateCallResult{}, errors.New("telephony: to and from are required")
	}

	form := url.Values{}
	form.Set("To", in.To)
	form.Set("From", in.From)
	form.Set("Url", p.callbackURL("/webhooks/twilio/voice", in))
	form.Set("StatusCallback", p.callbackURL("/webhooks/twilio/status", in))
	form.Set("StatusCallbackEvent", "initiated ringing answered completed")
	if in.Record {
		form.Set("Record", "true")
	}
	if in.TimeoutSeconds > 0 {
		form.Set("Timeout", strconv.Itoa(in.TimeoutSeconds))
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls.json", p.baseURL, p.cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return OriginateCallResult{}, err
	}
	req.SetBasicAuth(p.cfg.AccountSID, p.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return OriginateCallResult{}, fmt.Errorf("twilio originate: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return OriginateCallResult{}, fmt.Errorf("twilio originate: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return OriginateCallResult{}, fmt.Errorf("twilio originate: status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var out struct {
		Sid string `json:"sid"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return OriginateCallResult{}, fmt.Errorf("twilio originate: decode response: %w", err)
	}
	if out.Sid == "" {
		return OriginateCallResult{}, errors.New("twilio originate: response missing sid")
	}
	return OriginateCallResult{CallSID: out.Sid}, nil
}

// callbackURL parameterizes a webhook path with the correlation ids the
// status processor needs to close the loop.
func (p *TwilioProvider) callbackURL(path string, in OriginateCallRequest) string {
	q := url.Values{}
	q.Set("leadId", in.LeadID)
	q.Set("campaignId", in.CampaignID)
	q.Set("assistantId", in.AssistantID)
	return strings.TrimRight(p.cfg.CallbackBaseURL, "/") + path + "?" + q.Encode()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
