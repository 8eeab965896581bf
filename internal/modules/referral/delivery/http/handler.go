package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	referralService "pooltap.app/earnhub/internal/modules/referral/service"
	"pooltap.app/earnhub/pkg/response"
)

type ReferralHandler struct {
	service referralService.ReferralService
}

func NewReferralHandler(service referralService.ReferralService) *ReferralHandler {
	return &ReferralHandler{service: service}
}

func (h *ReferralHandler) GetReferrals(c *gin.Context) {
	list, err := h.service.ListReferrals(c.Request.Context(), c.Param("identifier"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *ReferralHandler) GetMyReferrals(c *gin.Context) {
	identifier, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	list, err := h.service.ListReferrals(c.Request.Context(), identifier)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
