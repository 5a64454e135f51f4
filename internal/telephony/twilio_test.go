package telephony

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testTwilioConfig() TwilioConfig {
	return TwilioConfig{
		AccountSID:      "AC123",
		AuthToken:       "secret",
		CallbackBaseURL: "https://dialer.example.com",
	}
}

func TestNewTwilioProvider_RequiresCredentials(t *testing.T) {
	if _, err := NewTwilioProvider(TwilioConfig{CallbackBaseURL: "https://x"}); err == nil {
		t.Fatalf("expected an error without credentials")
	}
	if _, err := NewTwilioProvider(TwilioConfig{AccountSID: "AC123", AuthToken: "secret"}); err == nil {
		t.Fatalf("expected an error without a callback base url")
	}
}

func TestOriginateCall(t *testing.T) {
	var gotPath string
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if user, pass, ok := r.BasicAuth(); !ok || user != "AC123" || pass != "secret" {
			t.Errorf("missing or wrong basic auth: %s/%s", user, pass)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = map[string]string{}
		for k := range r.PostForm {
			gotForm[k] = r.PostFormValue(k)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"sid": "CA0042"})
	}))
	defer srv.Close()

	p, err := NewTwilioProvider(testTwilioConfig())
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	p.baseURL = srv.URL

	res, err := p.OriginateCall(context.Background(), OriginateCallRequest{
		To:             "+15550002222",
		From:           "+15550001111",
		LeadID:         "lead-1",
		CampaignID:     "camp-1",
		AssistantID:    "asst-1",
		Record:         true,
		TimeoutSeconds: 30,
	})
	if err != nil {
		t.Fatalf("OriginateCall: %v", err)
	}
	if res.CallSID != "CA0042" {
		t.Fatalf("expected sid CA0042, got %q", res.CallSID)
	}

	if gotPath != "/Accounts/AC123/Calls.json" {
		t.Fatalf("unexpected request path %q", gotPath)
	}
	if gotForm["To"] != "+15550002222" || gotForm["From"] != "+15550001111" {
		t.Fatalf("unexpected numbers in form %v", gotForm)
	}
	if gotForm["Record"] != "true" || gotForm["Timeout"] != "30" {
		t.Fatalf("unexpected options in form %v", gotForm)
	}

	cb := gotForm["StatusCallback"]
	if !strings.HasPrefix(cb, "https://dialer.example.com/webhooks/twilio/status?") {
		t.Fatalf("unexpected status callback url %q", cb)
	}
	for _, part := range []string{"leadId=lead-1", "campaignId=camp-1", "assistantId=asst-1"} {
		if !strings.Contains(cb, part) {
			t.Fatalf("status callback url %q missing %s", cb, part)
		}
	}
}

func TestOriginateCall_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code": 20003, "message": "Authenticate"}`))
	}))
	defer srv.Close()

	p, err := NewTwilioProvider(testTwilioConfig())
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	p.baseURL = srv.URL

	_, err = p.OriginateCall(context.Background(), OriginateCallRequest{
		To: "+15550002222", From: "+15550001111",
	})
	if err == nil {
		t.Fatalf("expected an error on non-2xx response")
	}
	if !strings.Contains(err.Error(), "status 401") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestParseTwilioStatusCallback(t *testing.T) {
	body := "CallSid=CA0042&CallStatus=completed&CallDuration=42"
	r := httptest.NewRequest(http.MethodPost,
		"/webhooks/twilio/status?leadId=lead-1&campaignId=camp-1",
		strings.NewReader(body))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	f, err := ParseTwilioStatusCallback(r)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.CallSid != "CA0042" || f.CallStatus != "completed" {
		t.Fatalf("unexpected form %+v", f)
	}
	if f.CallDuration == nil || *f.CallDuration != 42 {
		t.Fatalf("expected duration 42, got %v", f.CallDuration)
	}
	if f.LeadID != "lead-1" || f.CampaignID != "camp-1" {
		t.Fatalf("expected correlation ids from query, got %+v", f)
	}
}

func TestParseTwilioStatusCallback_NoDuration(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/status",
		strings.NewReader("CallSid=CA0042&CallStatus=ringing"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	f, err := ParseTwilioStatusCallback(r)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.CallDuration != nil {
		t.Fatalf("expected nil duration, got %v", f.CallDuration)
	}
	if f.LeadID != "" || f.CampaignID != "" {
		t.Fatalf("expected empty correlation ids, got %+v", f)
	}
}
