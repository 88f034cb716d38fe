package actions

import (
	"gorm.io/gorm"

	"github.com/fieldopshq/fieldops-be/internal/core/email"
	"github.com/fieldopshq/fieldops-be/internal/core/sms"
	"github.com/fieldopshq/fieldops-be/internal/core/workflow"
	"github.com/fieldopshq/fieldops-be/internal/modules/fieldservice/services"
)

// RegisterBuiltins wires the standard action vocabulary into a registry
func RegisterBuiltins(registry *workflow.Registry, db *gorm.DB, emails *email.Service, smsService *sms.Service, jobs *services.JobService) {
	registry.Register(NewSendEmailHandler(emails))
	registry.Register(NewSendSMSHandler(smsService))
	registry.Register(NewCreateTaskHandler(db))
	registry.Register(NewCreateReminderHandler(db))
	registry.Register(NewUpdateLeadStageHandler(db))
	registry.Register(NewUpdateJobStatusHandler(jobs))
	registry.Register(NewCreateInvoiceHandler(db))
}
