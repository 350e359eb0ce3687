package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JobQueue names the two downstream queues the core can dispatch to.
type JobQueue string

const (
	QueueSpreadsheetSync  JobQueue = "spreadsheet-sync"
	QueueOperatorNotify   JobQueue = "operator-notify"
)

// JobStatus tracks a JobRun through the transactional-outbox lifecycle:
// a row is written "pending" inside the caller's transaction, flipped to
// "dispatched" once the publisher has pushed it onto the Redis queue,
// "running" once a worker claims it, and "succeeded"/"failed" on completion.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusDispatched JobStatus = "dispatched"
	JobStatusRunning    JobStatus = "running"
	JobStatusSucceeded  JobStatus = "succeeded"
	JobStatusFailed     JobStatus = "failed"
)

// JobRun is the outbox row backing one queued downstream job.
type JobRun struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Queue        JobQueue       `gorm:"column:queue;not null;index" json:"queue"`
	Status       JobStatus      `gorm:"column:status;not null;index" json:"status"`
	Payload      datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	Attempts     int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	MaxAttempts  int            `gorm:"column:max_attempts;not null" json:"max_attempts"`
	LastError    string         `gorm:"column:last_error" json:"last_error,omitempty"`
	DispatchedAt *time.Time     `gorm:"column:dispatched_at;index" json:"dispatched_at,omitempty"`
	LockedAt     *time.Time     `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	HeartbeatAt  *time.Time     `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (JobRun) TableName() string { return "job_run" }
