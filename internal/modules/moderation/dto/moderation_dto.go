package dto

import (
	"github.com/google/uuid"

	completionDto "pooltap.app/earnhub/internal/modules/completion/dto"
	commonDto "pooltap.app/earnhub/pkg/dto"
)

const MaxBulkIDs = 100

type DecideURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type DecideRequest struct {
	Outcome string `json:"outcome" binding:"required,oneof=approved rejected"`
}

type BulkDecideRequest struct {
	IDs     []uuid.UUID `json:"ids" binding:"required,min=1,max=100"`
	Outcome string      `json:"outcome" binding:"required,oneof=approved rejected"`
}

type PendingResponse struct {
	Data []completionDto.CompletionResponse `json:"data"`
	Meta commonDto.PaginationMeta           `json:"meta"`
}

type BulkResult string

const (
	ResultDecided  BulkResult = "decided"
	ResultSkipped  BulkResult = "skipped"
	ResultNotFound BulkResult = "not_found"
	ResultError    BulkResult = "error"
)

type BulkItem struct {
	ID     uuid.UUID  `json:"id"`
	Result BulkResult `json:"result"`
	Status string     `json:"status,omitempty"`
	Error  string     `json:"error,omitempty"`
}

type BulkDecideResponse struct {
	Results []BulkItem `json:"results"`
	Decided int        `json:"decided"`
	Skipped int        `json:"skipped"`
	Failed  int        `json:"failed"`
}
