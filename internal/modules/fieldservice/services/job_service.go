package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fieldopshq/fieldops-be/internal/core/events"
	"github.com/fieldopshq/fieldops-be/internal/modules/fieldservice/models"
	"github.com/fieldopshq/fieldops-be/internal/modules/fieldservice/repositories"
)

// Emitter is the minimal bus surface the job service needs; every successful
// transition enters the automation layer through it.
type Emitter interface {
	Emit(eventType string, entityData map[string]interface{}) events.EmitResult
}

// JobService owns the field-job state machine: it validates transition shape,
// persists the immutable transition record and emits the job_<to_state>
// business event.
type JobService struct {
	jobs    repositories.JobRepo
	emitter Emitter
}

// NewJobService creates a new job service
func NewJobService(jobs repositories.JobRepo, emitter Emitter) *JobService {
	return &JobService{jobs: jobs, emitter: emitter}
}

// Transition moves a job to a new status. Invalid transitions (including any
// move out of a terminal status) are rejected before anything is written.
func (s *JobService) Transition(ctx context.Context, jobID uuid.UUID, to models.JobStatus, changedBy, reason string) error {
	job, err := s.jobs.FindByID(jobID)
	if err != nil {
		return fmt.Errorf("job not found: %w", err)
	}

	from := job.Status
	if !models.CanTransition(from, to) {
		return fmt.Errorf("invalid job transition %s -> %s", from, to)
	}

	if err := s.jobs.UpdateStatus(jobID, to); err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if err := s.jobs.CreateTransition(&models.JobTransition{
		JobID:      jobID,
		FromStatus: from,
		ToStatus:   to,
		ChangedBy:  changedBy,
		Reason:     reason,
	}); err != nil {
		return fmt.Errorf("failed to record job transition: %w", err)
	}

	log.Info().
		Str("job_id", jobID.String()).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("🔄 Job status changed")

	if s.emitter != nil {
		s.emitter.Emit("job_"+string(to), jobSnapshot(job, to))
	}
	return nil
}

// jobSnapshot builds the entity payload delivered with job_* events
func jobSnapshot(job *models.Job, status models.JobStatus) map[string]interface{} {
	data, _ := json.Marshal(job)
	var snapshot map[string]interface{}
	_ = json.Unmarshal(data, &snapshot)
	snapshot["status"] = string(status)
	return snapshot
}
