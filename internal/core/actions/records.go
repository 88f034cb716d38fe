package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fieldopshq/fieldops-be/internal/core/workflow"
)

// CreateTaskHandler implements the create_task action: a follow-up work item
// for the office staff. Config: {title, notes?, assignee?, due_in_minutes?}.
type CreateTaskHandler struct {
	db *gorm.DB
}

// NewCreateTaskHandler creates the create_task handler
func NewCreateTaskHandler(db *gorm.DB) *CreateTaskHandler {
	return &CreateTaskHandler{db: db}
}

func (h *CreateTaskHandler) Type() string { return "create_task" }

func (h *CreateTaskHandler) Execute(ctx context.Context, config map[string]interface{}, execCtx *workflow.ExecutionContext) (map[string]interface{}, error) {
	return createWorkItem(ctx, h.db, "task", config, execCtx)
}

// CreateReminderHandler implements the create_reminder action. Same row shape
// as a task, kind "reminder", with a due time derived from due_in_minutes.
type CreateReminderHandler struct {
	db *gorm.DB
}

// NewCreateReminderHandler creates the create_reminder handler
func NewCreateReminderHandler(db *gorm.DB) *CreateReminderHandler {
	return &CreateReminderHandler{db: db}
}

func (h *CreateReminderHandler) Type() string { return "create_reminder" }

func (h *CreateReminderHandler) Execute(ctx context.Context, config map[string]interface{}, execCtx *workflow.ExecutionContext) (map[string]interface{}, error) {
	return createWorkItem(ctx, h.db, "reminder", config, execCtx)
}

func createWorkItem(ctx context.Context, db *gorm.DB, kind string, config map[string]interface{}, execCtx *workflow.ExecutionContext) (map[string]interface{}, error) {
	title := interpolate(configString(config, nil, "title"), execCtx.EntityData)
	if title == "" {
		return nil, fmt.Errorf("create_%s: title is required", kind)
	}

	row := map[string]interface{}{
		"id":          uuid.NewString(),
		"kind":        kind,
		"title":       title,
		"notes":       interpolate(configString(config, nil, "notes"), execCtx.EntityData),
		"assignee":    configString(config, nil, "assignee"),
		"entity_type": execCtx.EntityType,
		"entity_id":   execCtx.EntityID,
		"status":      "open",
		"created_at":  time.Now(),
	}
	if minutes, ok := toInt(config["due_in_minutes"]); ok && minutes > 0 {
		row["due_at"] = time.Now().Add(time.Duration(minutes) * time.Minute)
	}

	if err := db.WithContext(ctx).Table("field_tasks").Create(row).Error; err != nil {
		return nil, fmt.Errorf("create_%s: %w", kind, err)
	}
	return map[string]interface{}{"task_id": row["id"], "kind": kind}, nil
}

// UpdateLeadStageHandler implements the update_lead_stage action.
// Config: {stage, lead_id?} — lead_id falls back to the triggering entity.
type UpdateLeadStageHandler struct {
	db *gorm.DB
}

// NewUpdateLeadStageHandler creates the update_lead_stage handler
func NewUpdateLeadStageHandler(db *gorm.DB) *UpdateLeadStageHandler {
	return &UpdateLeadStageHandler{db: db}
}

func (h *UpdateLeadStageHandler) Type() string { return "update_lead_stage" }

func (h *UpdateLeadStageHandler) Execute(ctx context.Context, config map[string]interface{}, execCtx *workflow.ExecutionContext) (map[string]interface{}, error) {
	stage := configString(config, nil, "stage")
	if stage == "" {
		return nil, fmt.Errorf("update_lead_stage: stage is required")
	}
	leadID := configString(config, execCtx.EntityData, "lead_id")
	if leadID == "" {
		leadID = execCtx.EntityID
	}
	if leadID == "" {
		return nil, fmt.Errorf("update_lead_stage: no lead id in config or context")
	}

	result := h.db.WithContext(ctx).Table("leads").Where("id = ?", leadID).Updates(map[string]interface{}{
		"stage":      stage,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return nil, fmt.Errorf("update_lead_stage: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("update_lead_stage: lead %s not found", leadID)
	}
	return map[string]interface{}{"lead_id": leadID, "stage": stage}, nil
}

// CreateInvoiceHandler implements the create_invoice action: a derivative
// invoice record for the triggering job. Config: {amount?, due_in_days?}.
type CreateInvoiceHandler struct {
	db *gorm.DB
}

// NewCreateInvoiceHandler creates the create_invoice handler
func NewCreateInvoiceHandler(db *gorm.DB) *CreateInvoiceHandler {
	return &CreateInvoiceHandler{db: db}
}

func (h *CreateInvoiceHandler) Type() string { return "create_invoice" }

func (h *CreateInvoiceHandler) Execute(ctx context.Context, config map[string]interface{}, execCtx *workflow.ExecutionContext) (map[string]interface{}, error) {
	amount, ok := toFloat(config["amount"])
	if !ok {
		amount, _ = toFloat(execCtx.EntityData["total_amount"])
	}

	dueInDays := 30
	if d, ok := toInt(config["due_in_days"]); ok && d > 0 {
		dueInDays = d
	}

	row := map[string]interface{}{
		"id":         uuid.NewString(),
		"job_id":     execCtx.EntityID,
		"amount":     amount,
		"status":     "draft",
		"due_date":   time.Now().AddDate(0, 0, dueInDays),
		"created_at": time.Now(),
	}
	if err := h.db.WithContext(ctx).Table("invoices").Create(row).Error; err != nil {
		return nil, fmt.Errorf("create_invoice: %w", err)
	}
	return map[string]interface{}{"invoice_id": row["id"], "amount": amount}, nil
}

func toInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
