package infra

import (
	"bytes"
	"errors"
	"fmt"
	"net/smtp"
	"time"

	"restopos/internal/config"

	"github.com/jordan-wright/email"
)

// ErrMailerDisabled is returned when no SMTP host is configured.
var ErrMailerDisabled = errors.New("mailer: SMTP not configured")

// Mailer wraps SMTP configuration for sending emails with PDF attachments.
type Mailer struct {
	host     string
	user     string
	password string
	addr     string
	cb       *CircuitBreaker
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		cb: NewCircuitBreaker(CircuitBreakerConfig{
			Name:             "smtp",
			FailureThreshold: 3,
			OpenTimeout:      time.Minute,
		}),
	}
}

func (m *Mailer) Enabled() bool { return m != nil && m.host != "" }

// SendAttachment sends a single PDF attachment held in memory.
func (m *Mailer) SendAttachment(to, subject, body, filename string, pdf []byte) error {
	if !m.Enabled() {
		return ErrMailerDisabled
	}
	e := email.NewEmail()
	e.From = m.user
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	if len(pdf) > 0 {
		if _, err := e.Attach(bytes.NewReader(pdf), filename, "application/pdf"); err != nil {
			return fmt.Errorf("mailer: attach PDF: %w", err)
		}
	}

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	return m.cb.Execute(func() error { return e.Send(m.addr, auth) })
}

// Breaker exposes the SMTP circuit breaker so background jobs can skip work while it is open.
func (m *Mailer) Breaker() *CircuitBreaker { return m.cb }
