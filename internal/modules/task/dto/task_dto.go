package dto

import (
	"time"

	"github.com/google/uuid"

	"pooltap.app/earnhub/internal/entity"
)

type CreateTaskRequest struct {
	Name             string     `json:"name" binding:"required,max=150"`
	Description      string     `json:"description"`
	Link             string     `json:"link" binding:"required,url"`
	Icon             string     `json:"icon" binding:"max=255"`
	Points           int64      `json:"points" binding:"required,gt=0"`
	ExpiryDate       *time.Time `json:"expiry_date"`
	RequiresEvidence *bool      `json:"requires_evidence"`
}

type UpdateTaskRequest struct {
	Name             *string    `json:"name" binding:"omitempty,min=1,max=150"`
	Description      *string    `json:"description"`
	Link             *string    `json:"link" binding:"omitempty,url"`
	Icon             *string    `json:"icon" binding:"omitempty,max=255"`
	Points           *int64     `json:"points" binding:"omitempty,gt=0"`
	ExpiryDate       *time.Time `json:"expiry_date"`
	ClearExpiry      bool       `json:"clear_expiry"`
	RequiresEvidence *bool      `json:"requires_evidence"`
}

type TaskURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type TaskResponse struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	Slug             string     `json:"slug"`
	Description      string     `json:"description"`
	Link             string     `json:"link"`
	Icon             string     `json:"icon"`
	Points           int64      `json:"points"`
	ExpiryDate       *time.Time `json:"expiry_date,omitempty"`
	RequiresEvidence bool       `json:"requires_evidence"`
	Active           bool       `json:"active"`
}

func NewTaskResponse(t *entity.Task, now time.Time) TaskResponse {
	return TaskResponse{
		ID:               t.ID,
		Name:             t.Name,
		Slug:             t.Slug,
		Description:      t.Description,
		Link:             t.Link,
		Icon:             t.Icon,
		Points:           t.Points,
		ExpiryDate:       t.ExpiryDate,
		RequiresEvidence: t.RequiresEvidence,
		Active:           t.ActiveAt(now),
	}
}
