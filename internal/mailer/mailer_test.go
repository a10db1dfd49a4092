package mailer

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRenderNewConnection(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	body, err := renderNewConnection("203.0.113.7", at)
	if err != nil {
		t.Fatalf("renderNewConnection: %v", err)
	}
	if !strings.Contains(body, "203.0.113.7") {
		t.Error("body should contain the IP address")
	}
	if !strings.Contains(body, "Sat, 14 Mar 2026 09:26:53 UTC") {
		t.Errorf("body should contain the formatted date, got:\n%s", body)
	}
	if !strings.Contains(body, "new IP address") {
		t.Error("body should name the connection type")
	}
}

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("noreply@example.com", "user@example.com", "Subject line", "<p>hi</p>"))
	for _, want := range []string{
		"From: noreply@example.com\r\n",
		"To: user@example.com\r\n",
		"Subject: Subject line\r\n",
		"Content-Type: text/html",
		"\r\n\r\n<p>hi</p>",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestSMTPMailer_NoHost(t *testing.T) {
	m := NewSMTPMailer(Config{})
	err := m.NotifyNewConnection(context.Background(), "user@example.com", "203.0.113.7", time.Now())
	if err == nil {
		t.Error("expected error when smtp host is not configured")
	}
}

func TestNoopMailer(t *testing.T) {
	var m NoopMailer
	if err := m.NotifyNewConnection(context.Background(), "user@example.com", "203.0.113.7", time.Now()); err != nil {
		t.Errorf("noop mailer should never fail: %v", err)
	}
}
