package sms

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Provider defines the interface for SMS delivery providers
type Provider interface {
	SendSMS(ctx context.Context, to, message string) (messageID string, err error)
	GetProviderName() string
}

// Service wraps the SMS provider
type Service struct {
	provider Provider
}

// NewService creates a new SMS service with the specified provider
func NewService(provider Provider) *Service {
	return &Service{provider: provider}
}

// SendSMS sends a text message
func (s *Service) SendSMS(ctx context.Context, to, message string) (string, error) {
	if s.provider == nil {
		return "", fmt.Errorf("no SMS provider configured")
	}
	return s.provider.SendSMS(ctx, to, message)
}

// GetProviderName returns the name of the current provider
func (s *Service) GetProviderName() string {
	if s.provider == nil {
		return "none"
	}
	return s.provider.GetProviderName()
}

// ConsoleProvider logs outbound SMS instead of delivering it
type ConsoleProvider struct{}

// NewConsoleProvider creates a console SMS provider
func NewConsoleProvider() *ConsoleProvider {
	return &ConsoleProvider{}
}

func (p *ConsoleProvider) SendSMS(ctx context.Context, to, message string) (string, error) {
	messageID := uuid.NewString()
	log.Info().
		Str("to", to).
		Str("message_id", messageID).
		Msg("📱 SMS (console provider)")
	return messageID, nil
}

func (p *ConsoleProvider) GetProviderName() string {
	return "console"
}
