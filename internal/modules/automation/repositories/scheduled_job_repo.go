package repositories

import (
	"time"

	"github.com/fieldopshq/fieldops-be/internal/modules/automation/models"
	"gorm.io/gorm"
)

// ScheduledJobRepo interface for scheduler due-time entries
type ScheduledJobRepo interface {
	Create(job *models.ScheduledJob) error
	Update(job *models.ScheduledJob) error
	FindDue(now time.Time, limit int) ([]models.ScheduledJob, error)
}

type scheduledJobRepo struct {
	db *gorm.DB
}

// NewScheduledJobRepo creates a new scheduled job repository
func NewScheduledJobRepo(db *gorm.DB) ScheduledJobRepo {
	return &scheduledJobRepo{db: db}
}

func (r *scheduledJobRepo) Create(job *models.ScheduledJob) error {
	return r.db.Create(job).Error
}

func (r *scheduledJobRepo) Update(job *models.ScheduledJob) error {
	return r.db.Save(job).Error
}

// FindDue returns active jobs past their next_run_at whose owning workflow is
// active and not soft-deleted, oldest due first, capped to bound work per tick.
func (r *scheduledJobRepo) FindDue(now time.Time, limit int) ([]models.ScheduledJob, error) {
	var jobs []models.ScheduledJob
	err := r.db.
		Joins("JOIN automation_workflows ON automation_workflows.id = automation_scheduled_jobs.workflow_id").
		Where("automation_scheduled_jobs.is_active = ? AND automation_scheduled_jobs.next_run_at <= ?", true, now).
		Where("automation_workflows.is_active = ? AND automation_workflows.deleted_at IS NULL", true).
		Order("automation_scheduled_jobs.next_run_at ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}
