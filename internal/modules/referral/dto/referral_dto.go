package dto

import "time"

type ReferralResponse struct {
	Identifier string    `json:"identifier"`
	Username   string    `json:"username"`
	Score      int64     `json:"score"`
	ReferredAt time.Time `json:"timestamp"`
}

type ReferralListResponse struct {
	Referrals     []ReferralResponse `json:"referrals"`
	ReferralCount int                `json:"referral_count"`
	ReferralCode  string             `json:"referral_code"`
	Earnings      int64              `json:"earnings"`
}
