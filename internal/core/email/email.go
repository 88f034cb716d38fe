package email

import (
	"context"
	"fmt"
)

// Provider defines the interface for email delivery providers. Wire-protocol
// detail (SMTP, API vendors) lives behind this boundary.
type Provider interface {
	SendEmail(ctx context.Context, to, subject, body string) (messageID string, err error)
	GetProviderName() string
}

// Service wraps the email provider
type Service struct {
	provider Provider
}

// NewService creates a new email service with the specified provider
func NewService(provider Provider) *Service {
	return &Service{provider: provider}
}

// SendEmail sends a plain text or HTML email
func (s *Service) SendEmail(ctx context.Context, to, subject, body string) (string, error) {
	if s.provider == nil {
		return "", fmt.Errorf("no email provider configured")
	}
	return s.provider.SendEmail(ctx, to, subject, body)
}

// GetProviderName returns the name of the current provider
func (s *Service) GetProviderName() string {
	if s.provider == nil {
		return "none"
	}
	return s.provider.GetProviderName()
}
