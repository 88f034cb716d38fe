package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fieldopshq/fieldops-be/internal/modules/automation/models"
	"github.com/fieldopshq/fieldops-be/internal/modules/automation/repositories"
)

// Deferrer schedules a one-shot delayed action for later execution. The
// scheduler implements it; the engine never touches the scheduled-jobs table
// directly.
type Deferrer interface {
	ScheduleDelayedAction(workflowID uuid.UUID, triggerID *uuid.UUID, delayMinutes int, execCtx *ExecutionContext) (*models.ScheduledJob, error)
}

// EntityReader reads a fresh entity snapshot by id, for runs whose context
// carries no payload (deferred and cron-driven executions).
type EntityReader interface {
	Snapshot(ctx context.Context, entityType, entityID string) (map[string]interface{}, error)
}

// DefaultActionTimeout bounds a single handler invocation
const DefaultActionTimeout = 2 * time.Minute

// Engine loads workflow definitions, matches triggers, evaluates conditions
// and executes action chains, persisting a complete execution log.
type Engine struct {
	workflows     repositories.WorkflowRepo
	logs          repositories.ExecutionRepo
	registry      *Registry
	evaluator     *ConditionEvaluator
	deferrer      Deferrer
	entities      EntityReader
	actionTimeout time.Duration
}

// NewEngine creates a workflow engine
func NewEngine(workflows repositories.WorkflowRepo, logs repositories.ExecutionRepo, registry *Registry, deferrer Deferrer) *Engine {
	return &Engine{
		workflows:     workflows,
		logs:          logs,
		registry:      registry,
		evaluator:     NewConditionEvaluator(),
		deferrer:      deferrer,
		actionTimeout: DefaultActionTimeout,
	}
}

// SetActionTimeout overrides the per-action execution timeout
func (e *Engine) SetActionTimeout(d time.Duration) {
	e.actionTimeout = d
}

// SetEntityReader attaches the collaborator used to refresh entity snapshots
func (e *Engine) SetEntityReader(r EntityReader) {
	e.entities = r
}

// ExecuteWorkflowsForEvent runs every active workflow registered for the event
// type, sequentially. Individual workflow failures are recorded in the audit
// trail and do not stop the remaining workflows.
func (e *Engine) ExecuteWorkflowsForEvent(ctx context.Context, eventType string, entityData map[string]interface{}) []ExecutionResult {
	workflows, err := e.workflows.FindActiveByTriggerType(eventType)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("Failed to query workflows for event")
		return nil
	}

	log.Info().Str("event_type", eventType).Int("count", len(workflows)).Msg("📬 Resolving workflows for event")

	entityID, _ := entityData["id"].(string)
	execCtx := &ExecutionContext{
		EventType:   eventType,
		EntityType:  entityTypeForEvent(eventType),
		EntityID:    entityID,
		EntityData:  entityData,
		TriggeredAt: time.Now(),
	}

	results := make([]ExecutionResult, 0, len(workflows))
	for _, wf := range workflows {
		result, err := e.ExecuteWorkflow(ctx, wf.ID, execCtx)
		if err != nil {
			log.Warn().Err(err).Str("workflow_id", wf.ID.String()).Msg("⚠️ Workflow execution failed")
		}
		if result != nil {
			results = append(results, *result)
		}
	}
	return results
}

// ExecuteWorkflow runs one workflow against an execution context. A missing or
// inactive workflow fails fast without writing any log row; everything past
// that point is recorded in the audit trail.
func (e *Engine) ExecuteWorkflow(ctx context.Context, workflowID uuid.UUID, execCtx *ExecutionContext) (*ExecutionResult, error) {
	wf, err := e.workflows.FindByID(workflowID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}
	if !wf.IsActive {
		return nil, ErrWorkflowInactive
	}

	triggers, err := e.workflows.FindTriggers(wf.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load triggers: %w", err)
	}
	actions, err := e.workflows.FindActions(wf.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load actions: %w", err)
	}

	// Deferred and cron runs carry no payload; pull a fresh snapshot when the
	// collaborator can provide one.
	if len(execCtx.EntityData) == 0 && execCtx.EntityID != "" && e.entities != nil {
		if snapshot, err := e.entities.Snapshot(ctx, execCtx.EntityType, execCtx.EntityID); err == nil && snapshot != nil {
			execCtx.EntityData = snapshot
		}
	}

	executionID := uuid.New()
	result := &ExecutionResult{WorkflowID: wf.ID, ExecutionID: executionID}

	// Trigger matching: first match wins. A workflow with zero triggers is
	// unconditional.
	matchedTrigger := e.matchTrigger(triggers, execCtx)
	if len(triggers) > 0 && matchedTrigger == nil {
		e.logSkippedRun(executionID, wf.ID, execCtx, "no trigger conditions matched")
		result.Skipped = true
		result.Reason = "no trigger conditions matched"
		log.Info().Str("workflow", wf.Name).Msg("⏭️ No trigger conditions matched, skipping")
		return result, nil
	}

	var triggerID *uuid.UUID
	if matchedTrigger != nil {
		triggerID = &matchedTrigger.ID
	} else if execCtx.TriggerID != nil {
		triggerID = execCtx.TriggerID
	}

	runLog := &models.ExecutionLog{
		ExecutionID: executionID,
		WorkflowID:  &wf.ID,
		TriggerID:   triggerID,
		Status:      models.StatusRunning,
		InputData:   marshalJSON(execCtx),
		StartedAt:   time.Now(),
	}
	if err := e.logs.Create(runLog); err != nil {
		return nil, fmt.Errorf("failed to create execution record: %w", err)
	}

	log.Info().Str("workflow", wf.Name).Str("execution_id", executionID.String()).Msg("🚀 Executing workflow")

	runErr := e.runActions(ctx, wf.ID, executionID, triggerID, actions, execCtx, result)

	runLog.OutputData = marshalJSON(result.Results)
	if runErr != nil {
		runLog.ErrorMessage = runErr.Error()
		runLog.Finish(models.StatusFailed)
	} else {
		result.Success = true
		runLog.Finish(models.StatusCompleted)
	}
	if err := e.logs.Update(runLog); err != nil {
		log.Warn().Err(err).Msg("⚠️ Failed to update execution record")
	}

	if runErr != nil {
		return result, runErr
	}
	log.Info().Str("workflow", wf.Name).Int("actions", len(result.Results)).Msg("✅ Workflow execution completed")
	return result, nil
}

// matchTrigger returns the first trigger whose conditions all hold, or nil.
// A trigger with an empty condition list matches unconditionally.
func (e *Engine) matchTrigger(triggers []models.Trigger, execCtx *ExecutionContext) *models.Trigger {
	for i := range triggers {
		trigger := &triggers[i]
		var conditions []Condition
		if len(trigger.Conditions) > 0 {
			if err := json.Unmarshal(trigger.Conditions, &conditions); err != nil {
				log.Warn().Err(err).Str("trigger_id", trigger.ID.String()).Msg("⚠️ Malformed trigger conditions")
				continue
			}
		}
		if e.evaluator.Evaluate(conditions, execCtx.EntityData) {
			return trigger
		}
	}
	return nil
}

// runActions executes the chain in sort order. Delayed actions are handed to
// the scheduler; handler failures abort the chain unless continue_on_error is
// set on the failing action. A deferred run executes only the one action its
// one-shot job was created for, so the rest of the chain never runs twice.
func (e *Engine) runActions(ctx context.Context, workflowID, executionID uuid.UUID, triggerID *uuid.UUID, actions []models.Action, execCtx *ExecutionContext, result *ExecutionResult) error {
	for i := range actions {
		action := &actions[i]

		if execCtx.DeferredActionID != nil {
			if action.ID != *execCtx.DeferredActionID {
				continue
			}
		} else if action.DelayMinutes > 0 {
			e.deferAction(workflowID, executionID, triggerID, action, execCtx, result)
			continue
		}

		handler, ok := e.registry.Get(action.ActionType)
		if !ok {
			e.logActionRow(executionID, workflowID, action, models.StatusSkipped, time.Now(), nil, "unknown action type")
			result.Results = append(result.Results, ActionResult{
				ActionID:   action.ID,
				ActionType: action.ActionType,
				Status:     models.StatusSkipped,
				Error:      "unknown action type",
			})
			log.Warn().Str("action_type", action.ActionType).Msg("⚠️ Unknown action type, skipping")
			continue
		}

		startedAt := time.Now()
		output, err := e.invokeHandler(ctx, handler, action, execCtx)
		if err != nil {
			e.logActionRow(executionID, workflowID, action, models.StatusFailed, startedAt, output, err.Error())
			result.Results = append(result.Results, ActionResult{
				ActionID:   action.ID,
				ActionType: action.ActionType,
				Status:     models.StatusFailed,
				Error:      err.Error(),
			})
			log.Warn().Err(err).Str("action_type", action.ActionType).Msg("❌ Action failed")
			if !action.ContinueOnError {
				return fmt.Errorf("action %s failed: %w", action.ActionType, err)
			}
			continue
		}

		e.logActionRow(executionID, workflowID, action, models.StatusCompleted, startedAt, output, "")
		result.Results = append(result.Results, ActionResult{
			ActionID:   action.ID,
			ActionType: action.ActionType,
			Status:     models.StatusCompleted,
			Output:     output,
		})
	}
	return nil
}

// invokeHandler runs a handler under the per-action timeout. A handler that
// overruns is treated as a failed outcome; its eventual result is discarded.
func (e *Engine) invokeHandler(ctx context.Context, handler Handler, action *models.Action, execCtx *ExecutionContext) (map[string]interface{}, error) {
	actionCtx, cancel := context.WithTimeout(ctx, e.actionTimeout)
	defer cancel()

	var config map[string]interface{}
	if len(action.Config) > 0 {
		if err := json.Unmarshal(action.Config, &config); err != nil {
			return nil, fmt.Errorf("malformed action config: %w", err)
		}
	}

	type handlerResult struct {
		output map[string]interface{}
		err    error
	}
	done := make(chan handlerResult, 1)
	go func() {
		output, err := handler.Execute(actionCtx, config, execCtx)
		done <- handlerResult{output, err}
	}()

	select {
	case res := <-done:
		return res.output, res.err
	case <-actionCtx.Done():
		return nil, fmt.Errorf("action %s timed out after %s", action.ActionType, e.actionTimeout)
	}
}

// deferAction hands a delayed action to the scheduler and records it as
// scheduled rather than completed. The persisted context names the action so
// the deferred run executes exactly that action and nothing else.
func (e *Engine) deferAction(workflowID, executionID uuid.UUID, triggerID *uuid.UUID, action *models.Action, execCtx *ExecutionContext, result *ExecutionResult) {
	deferred := *execCtx
	deferred.DeferredActionID = &action.ID
	job, err := e.deferrer.ScheduleDelayedAction(workflowID, triggerID, action.DelayMinutes, &deferred)
	if err != nil {
		e.logActionRow(executionID, workflowID, action, models.StatusFailed, time.Now(), nil, err.Error())
		result.Results = append(result.Results, ActionResult{
			ActionID:   action.ID,
			ActionType: action.ActionType,
			Status:     models.StatusFailed,
			Error:      err.Error(),
		})
		return
	}

	output := map[string]interface{}{
		"scheduled_job_id": job.ID.String(),
		"scheduled_for":    job.NextRunAt,
	}
	e.logActionRow(executionID, workflowID, action, models.StatusScheduled, time.Now(), output, "")
	result.Results = append(result.Results, ActionResult{
		ActionID:   action.ID,
		ActionType: action.ActionType,
		Status:     models.StatusScheduled,
		Output:     output,
	})
	log.Info().Str("action_type", action.ActionType).Int("delay_minutes", action.DelayMinutes).Msg("⏰ Action deferred")
}

func (e *Engine) logActionRow(executionID, workflowID uuid.UUID, action *models.Action, status string, startedAt time.Time, output map[string]interface{}, errMsg string) {
	row := &models.ExecutionLog{
		ExecutionID:  executionID,
		WorkflowID:   &workflowID,
		ActionID:     &action.ID,
		Status:       models.StatusRunning,
		InputData:    datatypes.JSON(action.Config),
		ErrorMessage: errMsg,
		StartedAt:    startedAt,
	}
	if output != nil {
		row.OutputData = marshalJSON(output)
	}
	if status == models.StatusScheduled {
		// Deferred rows stay open until the scheduled run writes its own rows
		row.Status = models.StatusScheduled
	} else {
		row.Finish(status)
	}
	if err := e.logs.Create(row); err != nil {
		log.Warn().Err(err).Msg("⚠️ Failed to write action log row")
	}
}

func (e *Engine) logSkippedRun(executionID, workflowID uuid.UUID, execCtx *ExecutionContext, reason string) {
	row := &models.ExecutionLog{
		ExecutionID:  executionID,
		WorkflowID:   &workflowID,
		Status:       models.StatusRunning,
		InputData:    marshalJSON(execCtx),
		ErrorMessage: reason,
		StartedAt:    time.Now(),
	}
	row.Finish(models.StatusSkipped)
	if err := e.logs.Create(row); err != nil {
		log.Warn().Err(err).Msg("⚠️ Failed to write skipped run row")
	}
}

// entityTypeForEvent derives the entity family from the event name prefix
// ("invoice_overdue" -> "invoice").
func entityTypeForEvent(eventType string) string {
	if idx := strings.Index(eventType, "_"); idx > 0 {
		return eventType[:idx]
	}
	return eventType
}

func marshalJSON(v interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}
