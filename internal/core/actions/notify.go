package actions

import (
	"context"
	"fmt"

	"github.com/fieldopshq/fieldops-be/internal/core/email"
	"github.com/fieldopshq/fieldops-be/internal/core/sms"
	"github.com/fieldopshq/fieldops-be/internal/core/workflow"
)

// SendEmailHandler implements the send_email action.
// Config: {to?, subject?, body?, template_id?} — to falls back to the entity's
// email field; subject and body support {var} interpolation.
type SendEmailHandler struct {
	emails *email.Service
}

// NewSendEmailHandler creates the send_email handler
func NewSendEmailHandler(emails *email.Service) *SendEmailHandler {
	return &SendEmailHandler{emails: emails}
}

func (h *SendEmailHandler) Type() string { return "send_email" }

func (h *SendEmailHandler) Execute(ctx context.Context, config map[string]interface{}, execCtx *workflow.ExecutionContext) (map[string]interface{}, error) {
	to := configString(config, execCtx.EntityData, "to")
	if to == "" {
		to = configString(nil, execCtx.EntityData, "email")
	}
	if to == "" {
		return nil, fmt.Errorf("send_email: no recipient in config or entity data")
	}

	subject := interpolate(configString(config, nil, "subject"), execCtx.EntityData)
	body := interpolate(configString(config, nil, "body"), execCtx.EntityData)
	if templateID := configString(config, nil, "template_id"); templateID != "" && body == "" {
		// Template rendering is owned by the branding layer; the id travels in
		// the body for the provider to resolve.
		body = fmt.Sprintf("template:%s", templateID)
	}

	messageID, err := h.emails.SendEmail(ctx, to, subject, body)
	if err != nil {
		return nil, fmt.Errorf("send_email: %w", err)
	}
	return map[string]interface{}{"message_id": messageID, "to": to}, nil
}

// SendSMSHandler implements the send_sms action.
// Config: {to?, message} — message supports {var} interpolation.
type SendSMSHandler struct {
	sms *sms.Service
}

// NewSendSMSHandler creates the send_sms handler
func NewSendSMSHandler(smsService *sms.Service) *SendSMSHandler {
	return &SendSMSHandler{sms: smsService}
}

func (h *SendSMSHandler) Type() string { return "send_sms" }

func (h *SendSMSHandler) Execute(ctx context.Context, config map[string]interface{}, execCtx *workflow.ExecutionContext) (map[string]interface{}, error) {
	to := configString(config, execCtx.EntityData, "to")
	if to == "" {
		to = configString(nil, execCtx.EntityData, "phone")
	}
	if to == "" {
		return nil, fmt.Errorf("send_sms: no recipient in config or entity data")
	}

	message := interpolate(configString(config, nil, "message"), execCtx.EntityData)
	if message == "" {
		return nil, fmt.Errorf("send_sms: message is required")
	}

	messageID, err := h.sms.SendSMS(ctx, to, message)
	if err != nil {
		return nil, fmt.Errorf("send_sms: %w", err)
	}
	return map[string]interface{}{"message_id": messageID, "to": to}, nil
}
