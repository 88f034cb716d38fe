package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ScheduledJob is a due-time entry the scheduler polls for. A nil
// CronExpression marks a one-shot delayed action: it is deactivated after
// firing once. A non-nil expression is recurring and always advances NextRunAt.
type ScheduledJob struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	WorkflowID     uuid.UUID      `json:"workflow_id" gorm:"type:uuid;not null;index"`
	TriggerID      *uuid.UUID     `json:"trigger_id,omitempty" gorm:"type:uuid"`
	NextRunAt      time.Time      `json:"next_run_at" gorm:"not null;index"`
	LastRunAt      *time.Time     `json:"last_run_at,omitempty"`
	CronExpression *string        `json:"cron_expression,omitempty" gorm:"type:varchar(100)"`
	Timezone       string         `json:"timezone" gorm:"type:varchar(64);default:'UTC'"`
	IsActive       bool           `json:"is_active" gorm:"default:true;index"`
	Context        datatypes.JSON `json:"context,omitempty" gorm:"type:jsonb"` // execution context snapshot for one-shots
	CreatedAt      time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for ScheduledJob
func (ScheduledJob) TableName() string {
	return "automation_scheduled_jobs"
}

// IsRecurring reports whether the job advances on a cron schedule
func (j *ScheduledJob) IsRecurring() bool {
	return j.CronExpression != nil && *j.CronExpression != ""
}
