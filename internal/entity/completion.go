package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CompletionStatus string

// "available" has no constant: it is the absence of a completion row.
const (
	StatusStarted    CompletionStatus = "started"
	StatusVerify     CompletionStatus = "verify"
	StatusValidating CompletionStatus = "validating"
	StatusApproved   CompletionStatus = "approved"
	StatusRejected   CompletionStatus = "rejected"
	StatusClaimed    CompletionStatus = "claimed"
)

func (s CompletionStatus) Valid() bool {
	switch s {
	case StatusStarted, StatusVerify, StatusValidating, StatusApproved, StatusRejected, StatusClaimed:
		return true
	}
	return false
}

func (s CompletionStatus) Terminal() bool {
	return s == StatusClaimed || s == StatusRejected
}

// TaskCompletion is one user's attempt at one task. Task name and points are
// copied at start so the record survives deletion of the task.
type TaskCompletion struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserIdentifier   string           `gorm:"size:64;not null;uniqueIndex:idx_completion_user_task,priority:1" json:"user_identifier"`
	TaskID           uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_completion_user_task,priority:2;index" json:"task_id"`
	TaskName         string           `gorm:"size:150;not null" json:"task_name"`
	TaskPoints       int64            `gorm:"not null" json:"task_points"`
	RequiresEvidence bool             `gorm:"not null" json:"requires_evidence"`
	Status           CompletionStatus `gorm:"size:20;not null;index:idx_completion_queue,priority:1" json:"status"`
	Attempts         int              `gorm:"not null;default:1" json:"attempts"`
	EvidenceURL      *string          `gorm:"type:text" json:"evidence_url,omitempty"`
	StartedAt        time.Time        `gorm:"not null" json:"started_at"`
	ReturnedAt       *time.Time       `json:"returned_at,omitempty"`
	SubmittedAt      *time.Time       `gorm:"index:idx_completion_queue,priority:2" json:"submitted_at,omitempty"`
	DecidedAt        *time.Time       `json:"decided_at,omitempty"`
	DecidedBy        *string          `gorm:"size:64" json:"decided_by,omitempty"`
	ClaimedAt        *time.Time       `json:"claimed_at,omitempty"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *TaskCompletion) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID, err = uuid.NewV7()
	}
	return
}
