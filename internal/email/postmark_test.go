package email

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendCoupleInvite(t *testing.T) {
	var got postmarkEmail
	var gotToken string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Postmark-Server-Token")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient("token-123", "noreply@duet.example", "https://duet.example", WithAPIURL(srv.URL))
	if err := c.SendCoupleInvite("bob@example.com", "Alice", "ABCD1234"); err != nil {
		t.Fatalf("send invite: %v", err)
	}

	if gotToken != "token-123" {
		t.Errorf("server token = %q, want %q", gotToken, "token-123")
	}
	if got.To != "bob@example.com" {
		t.Errorf("to = %q, want %q", got.To, "bob@example.com")
	}
	if got.From != "noreply@duet.example" {
		t.Errorf("from = %q", got.From)
	}
	if !strings.Contains(got.Subject, "Alice") {
		t.Errorf("subject %q should name the inviter", got.Subject)
	}
	if !strings.Contains(got.TextBody, "ABCD1234") {
		t.Errorf("text body should carry the couple code")
	}
	if !strings.Contains(got.HtmlBody, "https://duet.example/register?code=ABCD1234") {
		t.Errorf("html body should link to registration")
	}
}

func TestSendCoupleInviteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient("token-123", "noreply@duet.example", "https://duet.example", WithAPIURL(srv.URL))
	if err := c.SendCoupleInvite("bob@example.com", "Alice", "ABCD1234"); err == nil {
		t.Fatal("expected error on API failure")
	}
}

func TestUnconfiguredClient(t *testing.T) {
	c := NewClient("", "noreply@duet.example", "https://duet.example")
	if c.Configured() {
		t.Fatal("client without token should not report configured")
	}
	if err := c.SendCoupleInvite("bob@example.com", "Alice", "ABCD1234"); err == nil {
		t.Fatal("expected error from unconfigured client")
	}
}
