package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Workflow represents an automation rule reacting to business events
type Workflow struct {
	ID                  uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name                string         `json:"name" gorm:"type:varchar(255);not null"`
	Description         string         `json:"description" gorm:"type:text"`
	IsActive            bool           `json:"is_active" gorm:"default:true;index"`
	IsTemplate          bool           `json:"is_template" gorm:"default:false"`
	MaxExecutionsPerDay int            `json:"max_executions_per_day" gorm:"default:0"` // 0 = unlimited
	CooldownMinutes     int            `json:"cooldown_minutes" gorm:"default:0"`       // 0 = no cooldown
	CreatedAt           time.Time      `json:"created_at" gorm:"autoCreateTime;index:,sort:desc"`
	UpdatedAt           time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt           gorm.DeletedAt `json:"-" gorm:"index"`

	Triggers []Trigger `json:"triggers,omitempty" gorm:"foreignKey:WorkflowID"`
	Actions  []Action  `json:"actions,omitempty" gorm:"foreignKey:WorkflowID"`
}

// TableName specifies the table name for Workflow
func (Workflow) TableName() string {
	return "automation_workflows"
}

// Trigger represents a condition set under which a workflow fires.
// TriggerType is a business event name ("invoice_overdue", "job_completed", ...)
// or the literal "schedule" for cron-driven workflows.
type Trigger struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	WorkflowID  uuid.UUID      `json:"workflow_id" gorm:"type:uuid;not null;index"`
	TriggerType string         `json:"trigger_type" gorm:"type:varchar(100);not null;index"`
	Config      datatypes.JSON `json:"config" gorm:"type:jsonb;not null;default:'{}'"`
	Conditions  datatypes.JSON `json:"conditions" gorm:"type:jsonb;default:'[]'"` // []workflow.Condition
	SortOrder   int            `json:"sort_order" gorm:"default:0"`
	CreatedAt   time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for Trigger
func (Trigger) TableName() string {
	return "automation_triggers"
}

// Action represents one ordered step in a workflow's response chain
type Action struct {
	ID              uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	WorkflowID      uuid.UUID      `json:"workflow_id" gorm:"type:uuid;not null;index"`
	ActionType      string         `json:"action_type" gorm:"type:varchar(100);not null"`
	Config          datatypes.JSON `json:"config" gorm:"type:jsonb;not null;default:'{}'"`
	DelayMinutes    int            `json:"delay_minutes" gorm:"default:0"`
	SortOrder       int            `json:"sort_order" gorm:"default:0"`
	ContinueOnError bool           `json:"continue_on_error" gorm:"default:false"`
	CreatedAt       time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for Action
func (Action) TableName() string {
	return "automation_actions"
}
