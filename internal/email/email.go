// Package email delivers rendered HTML emails. Sequence content is rendered
// upstream; senders here only move bytes to a provider.
package email

import (
	"context"
	"fmt"

	"crm_automation_backend/platform/config"
)

// Sender delivers one HTML email.
type Sender interface {
	SendHTML(ctx context.Context, toEmail, subject, htmlContent string) error
}

// NoopSender swallows sends. Used when email delivery is disabled.
type NoopSender struct{}

func (NoopSender) SendHTML(ctx context.Context, toEmail, subject, htmlContent string) error {
	return nil
}

// NewSender builds the configured sender implementation.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}

	switch cfg.GetEmailProvider() {
	case "brevo":
		return NewBrevoSender(cfg), nil
	case "smtp":
		return NewSMTPSender(cfg), nil
	case "noop":
		return NoopSender{}, nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.GetEmailProvider())
	}
}
