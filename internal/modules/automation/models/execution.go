package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Execution log statuses
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
	StatusScheduled = "scheduled"
)

// ExecutionLog is one append-only audit row. A workflow run writes one row at
// the run level (ActionID nil) plus one row per action attempt. Event emissions
// write a pending row with no workflow attached yet. Rows are never mutated
// after a terminal status except via UpdateExecution on the same ExecutionID
// transitioning running -> completed/failed.
type ExecutionLog struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ExecutionID  uuid.UUID      `json:"execution_id" gorm:"type:uuid;not null;index"`
	WorkflowID   *uuid.UUID     `json:"workflow_id,omitempty" gorm:"type:uuid;index"`
	TriggerID    *uuid.UUID     `json:"trigger_id,omitempty" gorm:"type:uuid"`
	ActionID     *uuid.UUID     `json:"action_id,omitempty" gorm:"type:uuid"`
	Status       string         `json:"status" gorm:"type:varchar(50);not null;default:'pending';index"`
	InputData    datatypes.JSON `json:"input_data,omitempty" gorm:"type:jsonb"`
	OutputData   datatypes.JSON `json:"output_data,omitempty" gorm:"type:jsonb"`
	ErrorMessage string         `json:"error_message,omitempty" gorm:"type:text"`
	StartedAt    time.Time      `json:"started_at" gorm:"autoCreateTime;index:,sort:desc"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	DurationMs   int            `json:"duration_ms,omitempty"`
}

// TableName specifies the table name for ExecutionLog
func (ExecutionLog) TableName() string {
	return "automation_logs"
}

// Finish sets the terminal status and computes DurationMs from both timestamps.
func (l *ExecutionLog) Finish(status string) {
	now := time.Now()
	l.Status = status
	l.CompletedAt = &now
	l.DurationMs = int(now.Sub(l.StartedAt).Milliseconds())
}
