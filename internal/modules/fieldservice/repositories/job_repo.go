package repositories

import (
	"github.com/fieldopshq/fieldops-be/internal/modules/fieldservice/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobRepo interface for field job database operations
type JobRepo interface {
	FindByID(id uuid.UUID) (*models.Job, error)
	UpdateStatus(id uuid.UUID, status models.JobStatus) error
	CreateTransition(transition *models.JobTransition) error
	FindTransitions(jobID uuid.UUID) ([]models.JobTransition, error)
}

type jobRepo struct {
	db *gorm.DB
}

// NewJobRepo creates a new field job repository
func NewJobRepo(db *gorm.DB) JobRepo {
	return &jobRepo{db: db}
}

func (r *jobRepo) FindByID(id uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := r.db.Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepo) UpdateStatus(id uuid.UUID, status models.JobStatus) error {
	return r.db.Model(&models.Job{}).Where("id = ?", id).Update("status", status).Error
}

func (r *jobRepo) CreateTransition(transition *models.JobTransition) error {
	return r.db.Create(transition).Error
}

func (r *jobRepo) FindTransitions(jobID uuid.UUID) ([]models.JobTransition, error) {
	var transitions []models.JobTransition
	err := r.db.Where("job_id = ?", jobID).Order("created_at ASC").Find(&transitions).Error
	return transitions, err
}
