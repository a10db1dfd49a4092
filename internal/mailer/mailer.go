// Package mailer sends account notification emails over SMTP.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"time"
)

//go:embed templates/*.html
var templatesFS embed.FS

var newConnectionTmpl = template.Must(
	template.ParseFS(templatesFS, "templates/new_connection_detected.html"))

// connectionData feeds the new connection template.
type connectionData struct {
	ConnectionType string
	ConnectionDate string
	ConnectionIP   string
}

// Config holds SMTP settings. An empty Host disables sending.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMTPMailer sends notification emails via a plain SMTP relay. It satisfies
// the session store's Notifier interface.
type SMTPMailer struct {
	cfg Config
}

// NewSMTPMailer returns an SMTPMailer for the given config.
func NewSMTPMailer(cfg Config) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// NotifyNewConnection emails the user that their account was accessed from a
// new address. Delivery is synchronous; callers treat failures as best-effort.
func (m *SMTPMailer) NotifyNewConnection(ctx context.Context, email, ipAddress string, at time.Time) error {
	if m.cfg.Host == "" {
		return fmt.Errorf("mailer: smtp host not configured")
	}
	body, err := renderNewConnection(ipAddress, at)
	if err != nil {
		return err
	}
	msg := buildMessage(m.cfg.From, email, "New connection to your account", body)

	addr := m.cfg.Host + ":" + m.cfg.Port
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{email}, msg); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", email, err)
	}
	return nil
}

func renderNewConnection(ipAddress string, at time.Time) (string, error) {
	var buf bytes.Buffer
	err := newConnectionTmpl.Execute(&buf, connectionData{
		ConnectionType: "new IP address",
		ConnectionDate: at.UTC().Format(time.RFC1123),
		ConnectionIP:   ipAddress,
	})
	if err != nil {
		return "", fmt.Errorf("mailer: render template: %w", err)
	}
	return buf.String(), nil
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

// NoopMailer discards notifications. Used in development when SMTP is not
// configured.
type NoopMailer struct{}

func (NoopMailer) NotifyNewConnection(ctx context.Context, email, ipAddress string, at time.Time) error {
	return nil
}
