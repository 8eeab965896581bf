package dto

import (
	"time"

	"pooltap.app/earnhub/internal/entity"
)

// RegisterRequest carries the raw Telegram Mini App init data. The identifier
// and username are taken from its signed user field.
type RegisterRequest struct {
	InitData     string `json:"init_data" binding:"required"`
	ReferralCode string `json:"referral_code" binding:"omitempty,max=16"`
}

type AdminLoginRequest struct {
	Identifier string `json:"identifier" binding:"required,max=64"`
	Password   string `json:"password" binding:"required"`
}

type UpdateUserRequest struct {
	Username *string `json:"username" binding:"omitempty,min=1,max=100"`
	Role     *string `json:"role" binding:"omitempty,oneof=admin player"`
}

type UserResponse struct {
	Identifier      string    `json:"identifier"`
	Username        string    `json:"username"`
	Role            string    `json:"role"`
	Score           int64     `json:"score"`
	WeeklyScore     int64     `json:"weekly_score"`
	ReferralCode    string    `json:"referral_code"`
	Referrer        *string   `json:"referrer,omitempty"`
	ReferralCount   int       `json:"referral_count"`
	WeeklyReferrals int       `json:"weekly_referrals"`
	CreatedAt       time.Time `json:"created_at"`
}

type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	Scope       string       `json:"scope"`
	Created     bool         `json:"created"`
	User        UserResponse `json:"user"`
}

// NewUserResponse hides weekly counters left over from a window that has
// already closed.
func NewUserResponse(u *entity.User, now time.Time) UserResponse {
	resp := UserResponse{
		Identifier:      u.Identifier,
		Username:        u.Username,
		Role:            u.Role,
		Score:           u.Score,
		WeeklyScore:     u.WeeklyScore,
		ReferralCode:    u.ReferralCode,
		Referrer:        u.Referrer,
		ReferralCount:   u.ReferralCount,
		WeeklyReferrals: u.WeeklyReferrals,
		CreatedAt:       u.CreatedAt,
	}
	if u.WeekStart.Before(entity.WeekWindowStart(now)) {
		resp.WeeklyScore = 0
		resp.WeeklyReferrals = 0
	}
	return resp
}
