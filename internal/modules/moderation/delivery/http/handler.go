package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	completionService "pooltap.app/earnhub/internal/modules/completion/service"
	moderationDto "pooltap.app/earnhub/internal/modules/moderation/dto"
	moderationService "pooltap.app/earnhub/internal/modules/moderation/service"
	commonDto "pooltap.app/earnhub/pkg/dto"
	"pooltap.app/earnhub/pkg/response"
)

type ModerationHandler struct {
	service moderationService.ModerationService
}

func NewModerationHandler(service moderationService.ModerationService) *ModerationHandler {
	return &ModerationHandler{service: service}
}

func (h *ModerationHandler) ListPending(c *gin.Context) {
	var q commonDto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationError(c, err)
		return
	}

	pending, err := h.service.ListPending(c.Request.Context(), q)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, pending)
}

func (h *ModerationHandler) Decide(c *gin.Context) {
	moderator, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var uri moderationDto.DecideURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.ValidationError(c, err)
		return
	}
	id, err := uuid.Parse(uri.ID)
	if err != nil {
		response.ValidationError(c, err)
		return
	}

	var req moderationDto.DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	completion, err := h.service.Decide(c.Request.Context(), id, completionService.Outcome(req.Outcome), moderator)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, completion)
}

func (h *ModerationHandler) BulkDecide(c *gin.Context) {
	moderator, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req moderationDto.BulkDecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	result, err := h.service.BulkDecide(c.Request.Context(), req.IDs, completionService.Outcome(req.Outcome), moderator)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
