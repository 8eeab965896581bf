package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	ledgerDto "pooltap.app/earnhub/internal/modules/ledger/dto"
	ledgerService "pooltap.app/earnhub/internal/modules/ledger/service"
	commonDto "pooltap.app/earnhub/pkg/dto"
	"pooltap.app/earnhub/pkg/response"
)

type LedgerHandler struct {
	service ledgerService.LedgerService
}

func NewLedgerHandler(service ledgerService.LedgerService) *LedgerHandler {
	return &LedgerHandler{service: service}
}

func (h *LedgerHandler) GetMyScore(c *gin.Context) {
	identifier, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	h.writeScore(c, identifier)
}

func (h *LedgerHandler) GetUserScore(c *gin.Context) {
	h.writeScore(c, c.Param("identifier"))
}

func (h *LedgerHandler) writeScore(c *gin.Context, identifier string) {
	score, err := h.service.GetScore(c.Request.Context(), identifier)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, score)
}

func (h *LedgerHandler) GetMyHistory(c *gin.Context) {
	identifier, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var q commonDto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationError(c, err)
		return
	}

	history, err := h.service.History(c.Request.Context(), identifier, q)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *LedgerHandler) SubmitScore(c *gin.Context) {
	identifier, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req ledgerDto.SubmitScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	total, err := h.service.SubmitGameScore(c.Request.Context(), identifier, req.Score)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, ledgerDto.SubmitScoreResponse{Score: total})
}
