package repositories

import (
	"encoding/json"
	"time"

	"github.com/fieldopshq/fieldops-be/internal/modules/automation/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExecutionRepo interface for the append-only automation audit trail
type ExecutionRepo interface {
	Create(entry *models.ExecutionLog) error
	Update(entry *models.ExecutionLog) error
	RecordEvent(executionID uuid.UUID, eventType string, entityData map[string]interface{}) error
	FindByWorkflowID(workflowID uuid.UUID, limit int) ([]models.ExecutionLog, error)
	LastRunStartedAt(workflowID uuid.UUID) (*time.Time, error)
	CountCompletedSince(workflowID uuid.UUID, since time.Time) (int64, error)
}

type executionRepo struct {
	db *gorm.DB
}

// NewExecutionRepo creates a new execution log repository
func NewExecutionRepo(db *gorm.DB) ExecutionRepo {
	return &executionRepo{db: db}
}

func (r *executionRepo) Create(entry *models.ExecutionLog) error {
	return r.db.Create(entry).Error
}

func (r *executionRepo) Update(entry *models.ExecutionLog) error {
	return r.db.Save(entry).Error
}

// RecordEvent writes the pending row for a freshly emitted business event.
// The bus calls this before any listener runs.
func (r *executionRepo) RecordEvent(executionID uuid.UUID, eventType string, entityData map[string]interface{}) error {
	input, err := json.Marshal(map[string]interface{}{
		"event_type":  eventType,
		"entity_data": entityData,
	})
	if err != nil {
		return err
	}
	return r.db.Create(&models.ExecutionLog{
		ExecutionID: executionID,
		Status:      models.StatusPending,
		InputData:   input,
		StartedAt:   time.Now(),
	}).Error
}

func (r *executionRepo) FindByWorkflowID(workflowID uuid.UUID, limit int) ([]models.ExecutionLog, error) {
	var entries []models.ExecutionLog
	query := r.db.Where("workflow_id = ?", workflowID).Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&entries).Error
	return entries, err
}

// LastRunStartedAt returns the most recent started_at across running and
// completed workflow-level rows, or nil if the workflow never ran.
func (r *executionRepo) LastRunStartedAt(workflowID uuid.UUID) (*time.Time, error) {
	var entry models.ExecutionLog
	err := r.db.
		Where("workflow_id = ? AND action_id IS NULL AND status IN ?", workflowID, []string{models.StatusRunning, models.StatusCompleted}).
		Order("started_at DESC").
		First(&entry).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &entry.StartedAt, nil
}

// CountCompletedSince counts workflow-level completed runs started at or after
// the given instant. Used for the daily execution cap.
func (r *executionRepo) CountCompletedSince(workflowID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.ExecutionLog{}).
		Where("workflow_id = ? AND action_id IS NULL AND status = ? AND started_at >= ?", workflowID, models.StatusCompleted, since).
		Count(&count).Error
	return count, err
}
