package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is one of the ten field-job lifecycle states
type JobStatus string

const (
	StatusDraft           JobStatus = "draft"
	StatusNeedsPermit     JobStatus = "needs_permit"
	StatusWaitingOnClient JobStatus = "waiting_on_client"
	StatusScheduled       JobStatus = "scheduled"
	StatusWeatherHold     JobStatus = "weather_hold"
	StatusInProgress      JobStatus = "in_progress"
	StatusCompleted       JobStatus = "completed"
	StatusInvoiced        JobStatus = "invoiced"
	StatusPaid            JobStatus = "paid"
	StatusCancelled       JobStatus = "cancelled"
)

// allowedTransitions encodes the state-machine shape. Business gating
// (permits, deposits) is enforced upstream and not modeled here.
var allowedTransitions = map[JobStatus][]JobStatus{
	StatusDraft:           {StatusNeedsPermit, StatusWaitingOnClient, StatusScheduled, StatusCancelled},
	StatusNeedsPermit:     {StatusWaitingOnClient, StatusScheduled, StatusCancelled},
	StatusWaitingOnClient: {StatusNeedsPermit, StatusScheduled, StatusCancelled},
	StatusScheduled:       {StatusWeatherHold, StatusInProgress, StatusWaitingOnClient, StatusCancelled},
	StatusWeatherHold:     {StatusScheduled, StatusInProgress, StatusCancelled},
	StatusInProgress:      {StatusWeatherHold, StatusCompleted, StatusCancelled},
	StatusCompleted:       {StatusInvoiced},
	StatusInvoiced:        {StatusPaid},
	// paid and cancelled are terminal
	StatusPaid:      {},
	StatusCancelled: {},
}

// CanTransition reports whether the state machine permits from -> to
func CanTransition(from, to JobStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status has no outgoing transitions
func IsTerminal(s JobStatus) bool {
	return len(allowedTransitions[s]) == 0
}

// Job is a field-service job whose status is driven by the state machine
type Job struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CustomerName string    `json:"customer_name" gorm:"type:varchar(255)"`
	Description  string    `json:"description" gorm:"type:text"`
	Status       JobStatus `json:"status" gorm:"type:varchar(50);not null;default:'draft';index"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime;index:,sort:desc"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for Job
func (Job) TableName() string {
	return "field_jobs"
}

// JobTransition is the immutable record of one status change
type JobTransition struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	JobID      uuid.UUID `json:"job_id" gorm:"type:uuid;not null;index"`
	FromStatus JobStatus `json:"from_status" gorm:"type:varchar(50);not null"`
	ToStatus   JobStatus `json:"to_status" gorm:"type:varchar(50);not null"`
	ChangedBy  string    `json:"changed_by" gorm:"type:varchar(255)"`
	Reason     string    `json:"reason" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for JobTransition
func (JobTransition) TableName() string {
	return "field_job_transitions"
}
