package repositories

import (
	"github.com/fieldopshq/fieldops-be/internal/modules/automation/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkflowRepo interface for workflow database operations. Workflow, Trigger
// and Action rows are managed by the admin surface and read-only here.
type WorkflowRepo interface {
	FindByID(id uuid.UUID) (*models.Workflow, error)
	FindActiveByTriggerType(triggerType string) ([]models.Workflow, error)
	FindTriggers(workflowID uuid.UUID) ([]models.Trigger, error)
	FindActions(workflowID uuid.UUID) ([]models.Action, error)
}

type workflowRepo struct {
	db *gorm.DB
}

// NewWorkflowRepo creates a new workflow repository
func NewWorkflowRepo(db *gorm.DB) WorkflowRepo {
	return &workflowRepo{db: db}
}

func (r *workflowRepo) FindByID(id uuid.UUID) (*models.Workflow, error) {
	var workflow models.Workflow
	err := r.db.Where("id = ?", id).First(&workflow).Error
	if err != nil {
		return nil, err
	}
	return &workflow, nil
}

// FindActiveByTriggerType returns active, non-deleted workflows having at
// least one trigger of the given type, oldest first.
func (r *workflowRepo) FindActiveByTriggerType(triggerType string) ([]models.Workflow, error) {
	var workflows []models.Workflow
	err := r.db.
		Joins("JOIN automation_triggers ON automation_triggers.workflow_id = automation_workflows.id").
		Where("automation_triggers.trigger_type = ? AND automation_workflows.is_active = ?", triggerType, true).
		Group("automation_workflows.id").
		Order("automation_workflows.created_at ASC").
		Find(&workflows).Error
	return workflows, err
}

func (r *workflowRepo) FindTriggers(workflowID uuid.UUID) ([]models.Trigger, error) {
	var triggers []models.Trigger
	err := r.db.Where("workflow_id = ?", workflowID).Order("sort_order ASC").Find(&triggers).Error
	return triggers, err
}

func (r *workflowRepo) FindActions(workflowID uuid.UUID) ([]models.Action, error) {
	var actions []models.Action
	err := r.db.Where("workflow_id = ?", workflowID).Order("sort_order ASC").Find(&actions).Error
	return actions, err
}
