package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	leaderboardDto "pooltap.app/earnhub/internal/modules/leaderboard/dto"
	leaderboardService "pooltap.app/earnhub/internal/modules/leaderboard/service"
	"pooltap.app/earnhub/pkg/response"
)

type LeaderboardHandler struct {
	service leaderboardService.LeaderboardService
}

func NewLeaderboardHandler(service leaderboardService.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{service: service}
}

// GetLeaderboard serves ?timeframe=all_time|weekly (default all_time).
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	var q leaderboardDto.LeaderboardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationError(c, err)
		return
	}

	leaderboard, err := h.service.GetLeaderboard(c.Request.Context(), q.Timeframe, q.Limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, leaderboard)
}

func (h *LeaderboardHandler) GetReferralLeaderboard(c *gin.Context) {
	var q leaderboardDto.LeaderboardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationError(c, err)
		return
	}

	entries, err := h.service.Referrals(c.Request.Context(), q.Limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}
