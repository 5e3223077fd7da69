// Package email renders and delivers order notification emails.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gitshopapp/orderhook/internal/logging"
)

type Provider interface {
	SendEmail(ctx context.Context, email *Email) error
	ValidateAPIKey(ctx context.Context) error
}

type Email struct {
	// From overrides the provider's default sender when set.
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

type Config struct {
	APIKey string
	From   string
}

// NewProvider returns a Resend provider, or a provider that only logs when no
// API key is configured.
func NewProvider(cfg Config, logger *slog.Logger) (Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return NewLogProvider(logger), nil
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("EMAIL_FROM is required when RESEND_API_KEY is set")
	}
	return NewResendProvider(cfg.APIKey, cfg.From), nil
}

// LogProvider drops emails after logging their envelope.
type LogProvider struct {
	logger *slog.Logger
}

func NewLogProvider(logger *slog.Logger) *LogProvider {
	return &LogProvider{logger: logger}
}

func (p *LogProvider) SendEmail(ctx context.Context, email *Email) error {
	if email == nil {
		return fmt.Errorf("email is required")
	}
	logging.FromContext(ctx, p.logger).Info("email delivery disabled, dropping message", "to", email.To, "subject", email.Subject)
	return nil
}

func (p *LogProvider) ValidateAPIKey(context.Context) error {
	return nil
}
