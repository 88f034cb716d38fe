package actions

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fieldopshq/fieldops-be/internal/core/workflow"
	fieldmodels "github.com/fieldopshq/fieldops-be/internal/modules/fieldservice/models"
	"github.com/fieldopshq/fieldops-be/internal/modules/fieldservice/services"
)

// UpdateJobStatusHandler implements the update_job_status action. It drives
// the field-job state machine, so the resulting transition emits its own
// job_* event back into the bus (the idempotency window stops loops on the
// same job).
// Config: {status, job_id?, reason?}.
type UpdateJobStatusHandler struct {
	jobs *services.JobService
}

// NewUpdateJobStatusHandler creates the update_job_status handler
func NewUpdateJobStatusHandler(jobs *services.JobService) *UpdateJobStatusHandler {
	return &UpdateJobStatusHandler{jobs: jobs}
}

func (h *UpdateJobStatusHandler) Type() string { return "update_job_status" }

func (h *UpdateJobStatusHandler) Execute(ctx context.Context, config map[string]interface{}, execCtx *workflow.ExecutionContext) (map[string]interface{}, error) {
	status := configString(config, nil, "status")
	if status == "" {
		return nil, fmt.Errorf("update_job_status: status is required")
	}

	jobIDStr := configString(config, execCtx.EntityData, "job_id")
	if jobIDStr == "" {
		jobIDStr = execCtx.EntityID
	}
	jobID, err := uuid.Parse(jobIDStr)
	if err != nil {
		return nil, fmt.Errorf("update_job_status: invalid job id %q", jobIDStr)
	}

	reason := configString(config, nil, "reason")
	if reason == "" {
		reason = "automation"
	}

	if err := h.jobs.Transition(ctx, jobID, fieldmodels.JobStatus(status), "automation", reason); err != nil {
		return nil, fmt.Errorf("update_job_status: %w", err)
	}
	return map[string]interface{}{"job_id": jobID.String(), "status": status}, nil
}
