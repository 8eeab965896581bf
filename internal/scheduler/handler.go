package scheduler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pooltap.app/earnhub/pkg/response"
)

type Handler struct {
	scheduler *Scheduler
}

func NewHandler(s *Scheduler) *Handler {
	return &Handler{scheduler: s}
}

func (h *Handler) ListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.scheduler.Jobs()})
}

func (h *Handler) RunJob(c *gin.Context) {
	name := c.Param("name")
	if err := h.scheduler.RunJobByName(c.Request.Context(), name); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "job completed", "job": name})
}
