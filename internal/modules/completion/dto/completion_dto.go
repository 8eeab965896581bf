package dto

import (
	"time"

	"github.com/google/uuid"

	"pooltap.app/earnhub/internal/entity"
)

type TaskURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type EvidenceRequest struct {
	EvidenceURL string `json:"evidence_url" binding:"required,url"`
}

type CompletionResponse struct {
	ID               uuid.UUID               `json:"id"`
	UserIdentifier   string                  `json:"user_identifier"`
	TaskID           uuid.UUID               `json:"task_id"`
	TaskName         string                  `json:"task_name"`
	TaskPoints       int64                   `json:"task_points"`
	RequiresEvidence bool                    `json:"requires_evidence"`
	Status           entity.CompletionStatus `json:"status"`
	Attempts         int                     `json:"attempts"`
	EvidenceURL      *string                 `json:"evidence_url,omitempty"`
	StartedAt        time.Time               `json:"started_at"`
	ReturnedAt       *time.Time              `json:"returned_at,omitempty"`
	SubmittedAt      *time.Time              `json:"submitted_at,omitempty"`
	DecidedAt        *time.Time              `json:"decided_at,omitempty"`
	DecidedBy        *string                 `json:"decided_by,omitempty"`
	ClaimedAt        *time.Time              `json:"claimed_at,omitempty"`
}

func NewCompletionResponse(c *entity.TaskCompletion) CompletionResponse {
	return CompletionResponse{
		ID:               c.ID,
		UserIdentifier:   c.UserIdentifier,
		TaskID:           c.TaskID,
		TaskName:         c.TaskName,
		TaskPoints:       c.TaskPoints,
		RequiresEvidence: c.RequiresEvidence,
		Status:           c.Status,
		Attempts:         c.Attempts,
		EvidenceURL:      c.EvidenceURL,
		StartedAt:        c.StartedAt,
		ReturnedAt:       c.ReturnedAt,
		SubmittedAt:      c.SubmittedAt,
		DecidedAt:        c.DecidedAt,
		DecidedBy:        c.DecidedBy,
		ClaimedAt:        c.ClaimedAt,
	}
}

func NewCompletionResponses(list []*entity.TaskCompletion) []CompletionResponse {
	out := make([]CompletionResponse, 0, len(list))
	for _, c := range list {
		out = append(out, NewCompletionResponse(c))
	}
	return out
}
