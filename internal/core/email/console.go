package email

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ConsoleProvider logs outbound email instead of delivering it. Default for
// development and the test suite.
type ConsoleProvider struct{}

// NewConsoleProvider creates a console email provider
func NewConsoleProvider() *ConsoleProvider {
	return &ConsoleProvider{}
}

func (p *ConsoleProvider) SendEmail(ctx context.Context, to, subject, body string) (string, error) {
	messageID := uuid.NewString()
	log.Info().
		Str("to", to).
		Str("subject", subject).
		Str("message_id", messageID).
		Msg("📧 Email (console provider)")
	return messageID, nil
}

func (p *ConsoleProvider) GetProviderName() string {
	return "console"
}
