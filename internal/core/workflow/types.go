package workflow

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TriggerTypeSchedule is the reserved trigger type for cron-driven workflows;
// every other trigger type is a business event name.
const TriggerTypeSchedule = "schedule"

// Condition is a single declarative check against the triggering entity's
// data. All conditions on a trigger must hold (AND semantics).
type Condition struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
}

// Condition operators
const (
	OpEqual          = "=="
	OpStrictEqual    = "==="
	OpNotEqual       = "!="
	OpGreaterThan    = ">"
	OpGreaterOrEqual = ">="
	OpLessThan       = "<"
	OpLessOrEqual    = "<="
	OpContains       = "contains"
	OpNotContains    = "not_contains"
	OpStartsWith     = "starts_with"
	OpEndsWith       = "ends_with"
	OpIsEmpty        = "is_empty"
	OpIsNotEmpty     = "is_not_empty"
	OpIn             = "in"
	OpNotIn          = "not_in"
)

// ExecutionContext carries everything a workflow run knows about why it fired
type ExecutionContext struct {
	EventType            string                 `json:"event_type,omitempty"`
	EntityType           string                 `json:"entity_type,omitempty"`
	EntityID             string                 `json:"entity_id,omitempty"`
	EntityData           map[string]interface{} `json:"entity_data,omitempty"`
	TriggeredAt          time.Time              `json:"triggered_at"`
	ScheduledJobID       *uuid.UUID             `json:"scheduled_job_id,omitempty"`
	TriggerID            *uuid.UUID             `json:"trigger_id,omitempty"`
	IsScheduledExecution bool                   `json:"is_scheduled_execution,omitempty"`

	// DeferredActionID pins a deferred run to the single action it was created
	// for. The other actions in the chain already ran (or carry their own
	// deferrals) and are not touched again.
	DeferredActionID *uuid.UUID `json:"deferred_action_id,omitempty"`
}

// ActionResult is the per-action outcome aggregated into the run-level log row
type ActionResult struct {
	ActionID   uuid.UUID              `json:"action_id"`
	ActionType string                 `json:"action_type"`
	Status     string                 `json:"status"`
	Output     map[string]interface{} `json:"output,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// ExecutionResult is returned by Engine.ExecuteWorkflow
type ExecutionResult struct {
	WorkflowID  uuid.UUID      `json:"workflow_id"`
	ExecutionID uuid.UUID      `json:"execution_id"`
	Success     bool           `json:"success"`
	Skipped     bool           `json:"skipped,omitempty"`
	Reason      string         `json:"reason,omitempty"`
	Results     []ActionResult `json:"results,omitempty"`
}

var (
	// ErrWorkflowNotFound is returned when the workflow does not exist; no log
	// row is written in that case.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrWorkflowInactive is returned for deactivated workflows; no log row is
	// written either.
	ErrWorkflowInactive = errors.New("workflow is not active")
)
