package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fieldopshq/fieldops-be/internal/modules/automation/models"
	"github.com/fieldopshq/fieldops-be/internal/modules/automation/repositories"
)

// SchedulerConfig contains configuration for the scheduler poll loop
type SchedulerConfig struct {
	PollInterval time.Duration // how often to look for due jobs
	BatchSize    int           // max due jobs handled per tick
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		PollInterval: 60 * time.Second,
		BatchSize:    10,
	}
}

// Executor is the engine surface the scheduler drives. Kept narrow so tests
// can substitute it.
type Executor interface {
	ExecuteWorkflow(ctx context.Context, workflowID uuid.UUID, execCtx *ExecutionContext) (*ExecutionResult, error)
}

// Scheduler fires time-based triggers and executes previously deferred
// one-shot actions, subject to per-workflow cooldown and daily execution caps.
// A single poll goroutine; batches are capped to bound worst-case tick latency.
//
// Admission control is a read-then-act check against the log table. That is
// racy across multiple scheduler instances; this engine assumes a single
// instance per deployment (see DESIGN.md).
type Scheduler struct {
	engine    Executor
	jobs      repositories.ScheduledJobRepo
	workflows repositories.WorkflowRepo
	logs      repositories.ExecutionRepo
	config    SchedulerConfig

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running bool
}

// NewScheduler creates a scheduler. Bind must be called with the engine before
// Start.
func NewScheduler(jobs repositories.ScheduledJobRepo, workflows repositories.WorkflowRepo, logs repositories.ExecutionRepo, config SchedulerConfig) *Scheduler {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultSchedulerConfig().PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultSchedulerConfig().BatchSize
	}
	return &Scheduler{
		jobs:      jobs,
		workflows: workflows,
		logs:      logs,
		config:    config,
	}
}

// Bind attaches the workflow engine the scheduler executes through
func (s *Scheduler) Bind(engine Executor) {
	s.engine = engine
}

// Start launches the poll loop. Calling Start on a running scheduler is a
// warned no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Warn().Msg("⚠️ Scheduler already running, ignoring Start")
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	log.Info().Dur("poll_interval", s.config.PollInterval).Int("batch_size", s.config.BatchSize).Msg("⏰ Starting automation scheduler")

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.config.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.Poll(ctx)
			}
		}
	}()
}

// Stop halts the poll loop and waits for the in-flight tick. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	<-done
	log.Info().Msg("✅ Automation scheduler stopped")
}

// Poll handles one tick: find due jobs, gate each through admission control,
// execute, and advance or deactivate. Exported so ops surfaces and tests can
// force a tick.
func (s *Scheduler) Poll(ctx context.Context) {
	now := time.Now()
	due, err := s.jobs.FindDue(now, s.config.BatchSize)
	if err != nil {
		log.Error().Err(err).Msg("Scheduler failed to query due jobs")
		return
	}

	for i := range due {
		s.runJob(ctx, &due[i], now)
	}
}

// runJob executes one due scheduled job. Admission denial still advances a
// recurring job's next run so the schedule self-heals instead of stalling.
func (s *Scheduler) runJob(ctx context.Context, job *models.ScheduledJob, now time.Time) {
	wf, err := s.workflows.FindByID(job.WorkflowID)
	if err != nil {
		log.Warn().Err(err).Str("workflow_id", job.WorkflowID.String()).Msg("⚠️ Scheduled job references missing workflow")
		return
	}

	admitted, reason, err := s.checkAdmission(wf, now)
	if err != nil {
		log.Error().Err(err).Str("workflow", wf.Name).Msg("Admission check failed")
		return
	}

	if admitted {
		execCtx := s.buildContext(job, now)
		if _, err := s.engine.ExecuteWorkflow(ctx, job.WorkflowID, execCtx); err != nil {
			log.Warn().Err(err).Str("workflow", wf.Name).Msg("⚠️ Scheduled workflow execution failed")
		}
	} else {
		log.Info().Str("workflow", wf.Name).Str("reason", reason).Msg("⏭️ Scheduled run denied by admission control")
	}

	job.LastRunAt = &now
	if job.IsRecurring() {
		job.NextRunAt = CalculateNextRun(*job.CronExpression, now)
	} else {
		// One-shot: never fires twice
		job.IsActive = false
	}
	if err := s.jobs.Update(job); err != nil {
		log.Error().Err(err).Str("job_id", job.ID.String()).Msg("Failed to persist scheduled job state")
	}
}

// checkAdmission applies the per-workflow cooldown and daily execution cap
func (s *Scheduler) checkAdmission(wf *models.Workflow, now time.Time) (bool, string, error) {
	if wf.CooldownMinutes > 0 {
		lastRun, err := s.logs.LastRunStartedAt(wf.ID)
		if err != nil {
			return false, "", fmt.Errorf("cooldown check: %w", err)
		}
		if lastRun != nil {
			cooldown := time.Duration(wf.CooldownMinutes) * time.Minute
			if now.Sub(*lastRun) < cooldown {
				return false, "cooldown active", nil
			}
		}
	}

	if wf.MaxExecutionsPerDay > 0 {
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		count, err := s.logs.CountCompletedSince(wf.ID, midnight)
		if err != nil {
			return false, "", fmt.Errorf("day cap check: %w", err)
		}
		if count >= int64(wf.MaxExecutionsPerDay) {
			return false, "daily execution cap reached", nil
		}
	}

	return true, "", nil
}

// buildContext reconstructs the execution context for a scheduled run. One-shot
// jobs carry the snapshot persisted when the action was deferred.
func (s *Scheduler) buildContext(job *models.ScheduledJob, now time.Time) *ExecutionContext {
	execCtx := &ExecutionContext{
		TriggeredAt:          now,
		ScheduledJobID:       &job.ID,
		TriggerID:            job.TriggerID,
		IsScheduledExecution: true,
	}
	if len(job.Context) > 0 {
		var saved ExecutionContext
		if err := json.Unmarshal(job.Context, &saved); err == nil {
			execCtx.EventType = saved.EventType
			execCtx.EntityType = saved.EntityType
			execCtx.EntityID = saved.EntityID
			execCtx.EntityData = saved.EntityData
			execCtx.DeferredActionID = saved.DeferredActionID
		} else {
			log.Warn().Err(err).Str("job_id", job.ID.String()).Msg("⚠️ Malformed scheduled job context")
		}
	}
	if execCtx.EventType == "" {
		execCtx.EventType = TriggerTypeSchedule
	}
	return execCtx
}

// ScheduleDelayedAction inserts a one-shot scheduled job due delayMinutes from
// now. This is how the engine defers delayed actions.
func (s *Scheduler) ScheduleDelayedAction(workflowID uuid.UUID, triggerID *uuid.UUID, delayMinutes int, execCtx *ExecutionContext) (*models.ScheduledJob, error) {
	contextJSON, err := json.Marshal(execCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot execution context: %w", err)
	}

	job := &models.ScheduledJob{
		WorkflowID: workflowID,
		TriggerID:  triggerID,
		NextRunAt:  time.Now().Add(time.Duration(delayMinutes) * time.Minute).Truncate(time.Minute),
		Timezone:   "UTC",
		IsActive:   true,
		Context:    contextJSON,
	}
	if err := s.jobs.Create(job); err != nil {
		return nil, fmt.Errorf("failed to create scheduled job: %w", err)
	}
	return job, nil
}
