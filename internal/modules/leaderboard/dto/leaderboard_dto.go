package dto

const (
	TimeframeAllTime = "all_time"
	TimeframeWeekly  = "weekly"

	MaxAllTime   = 50
	MaxWeekly    = 20
	MaxReferrals = 10
)

type LeaderboardQuery struct {
	Timeframe string `form:"timeframe" binding:"omitempty,oneof=all_time weekly"`
	Limit     int    `form:"limit" binding:"omitempty,min=1"`
}

// LeaderboardEntry is one ranked user. Position is 1-based.
type LeaderboardEntry struct {
	Position   int    `json:"position"`
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Score      int64  `json:"score"`
	Tier       string `json:"tier"`
}

type ReferralEntry struct {
	Position        int    `json:"position"`
	Identifier      string `json:"identifier"`
	Username        string `json:"username"`
	WeeklyReferrals int    `json:"weekly_referrals"`
	ReferralCount   int    `json:"referral_count"`
}

type LeaderboardResponse struct {
	Timeframe string             `json:"timeframe"`
	Data      []LeaderboardEntry `json:"data"`
}
