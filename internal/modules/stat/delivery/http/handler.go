package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	statDto "pooltap.app/earnhub/internal/modules/stat/dto"
	statService "pooltap.app/earnhub/internal/modules/stat/service"
	commonDto "pooltap.app/earnhub/pkg/dto"
	"pooltap.app/earnhub/pkg/response"
)

type StatHandler struct {
	service statService.StatService
}

func NewStatHandler(service statService.StatService) *StatHandler {
	return &StatHandler{service: service}
}

func (h *StatHandler) ListUsers(c *gin.Context) {
	var q commonDto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationError(c, err)
		return
	}

	users, err := h.service.PageUsers(c.Request.Context(), q)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *StatHandler) CountUsers(c *gin.Context) {
	count, err := h.service.Count(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, count)
}

func (h *StatHandler) SearchUsers(c *gin.Context) {
	var q statDto.SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationError(c, err)
		return
	}

	users, err := h.service.SearchUsers(c.Request.Context(), q.Username)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}
