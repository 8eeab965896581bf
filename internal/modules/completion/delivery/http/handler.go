package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	completionDto "pooltap.app/earnhub/internal/modules/completion/dto"
	completionService "pooltap.app/earnhub/internal/modules/completion/service"
	"pooltap.app/earnhub/pkg/apperror"
	"pooltap.app/earnhub/pkg/response"
)

const maxEvidenceBytes = 5 << 20

type CompletionHandler struct {
	service completionService.CompletionService
}

func NewCompletionHandler(service completionService.CompletionService) *CompletionHandler {
	return &CompletionHandler{service: service}
}

type transitionFunc func(c *gin.Context, identifier string, taskID uuid.UUID) (*completionDto.CompletionResponse, error)

func (h *CompletionHandler) handle(c *gin.Context, fn transitionFunc) {
	identifier, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var uri completionDto.TaskURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.ValidationError(c, err)
		return
	}
	taskID, err := uuid.Parse(uri.ID)
	if err != nil {
		response.ValidationError(c, err)
		return
	}

	completion, err := fn(c, identifier, taskID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, completion)
}

func (h *CompletionHandler) Start(c *gin.Context) {
	h.handle(c, func(c *gin.Context, identifier string, taskID uuid.UUID) (*completionDto.CompletionResponse, error) {
		return h.service.Start(c.Request.Context(), identifier, taskID)
	})
}

func (h *CompletionHandler) MarkReturned(c *gin.Context) {
	h.handle(c, func(c *gin.Context, identifier string, taskID uuid.UUID) (*completionDto.CompletionResponse, error) {
		return h.service.MarkReturned(c.Request.Context(), identifier, taskID)
	})
}

func (h *CompletionHandler) Confirm(c *gin.Context) {
	h.handle(c, func(c *gin.Context, identifier string, taskID uuid.UUID) (*completionDto.CompletionResponse, error) {
		return h.service.Confirm(c.Request.Context(), identifier, taskID)
	})
}

func (h *CompletionHandler) Claim(c *gin.Context) {
	h.handle(c, func(c *gin.Context, identifier string, taskID uuid.UUID) (*completionDto.CompletionResponse, error) {
		return h.service.Claim(c.Request.Context(), identifier, taskID)
	})
}

// SubmitEvidence accepts either JSON {evidence_url} or a multipart "file".
func (h *CompletionHandler) SubmitEvidence(c *gin.Context) {
	h.handle(c, func(c *gin.Context, identifier string, taskID uuid.UUID) (*completionDto.CompletionResponse, error) {
		ctx := c.Request.Context()

		if strings.HasPrefix(c.ContentType(), "multipart/") {
			file, err := c.FormFile("file")
			if err != nil {
				return nil, fmt.Errorf("file is required: %w", apperror.ErrValidation)
			}
			if file.Size > maxEvidenceBytes {
				return nil, apperror.New(http.StatusRequestEntityTooLarge, "", fmt.Errorf("evidence file exceeds 5MB: %w", apperror.ErrValidation))
			}

			f, err := file.Open()
			if err != nil {
				return nil, fmt.Errorf("failed to read file: %w", apperror.ErrValidation)
			}
			defer f.Close()

			return h.service.SubmitEvidenceFile(ctx, identifier, taskID, f, file.Filename)
		}

		var req completionDto.EvidenceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, fmt.Errorf("evidence_url must be a valid url: %w", apperror.ErrValidation)
		}
		return h.service.SubmitEvidence(ctx, identifier, taskID, req.EvidenceURL)
	})
}

func (h *CompletionHandler) ListMine(c *gin.Context) {
	identifier, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	list, err := h.service.ListMine(c.Request.Context(), identifier)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}
