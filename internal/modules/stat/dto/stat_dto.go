package dto

import (
	"pooltap.app/earnhub/internal/entity"
	commonDto "pooltap.app/earnhub/pkg/dto"
)

const TopPerformers = 3

type SearchQuery struct {
	Username string `form:"username" binding:"required"`
}

type UserSummary struct {
	Identifier    string `json:"identifier"`
	Username      string `json:"username"`
	Score         int64  `json:"score"`
	ReferralCount int    `json:"referral_count"`
}

type Stats struct {
	TotalScore    int64         `json:"totalScore"`
	AverageScore  float64       `json:"averageScore"`
	TopPerformers []UserSummary `json:"topPerformers"`
}

type CountStats struct {
	TotalScore   int64   `json:"totalScore"`
	AverageScore float64 `json:"averageScore"`
}

type UsersResponse struct {
	Users []UserSummary             `json:"users"`
	Stats Stats                     `json:"stats"`
	Meta  *commonDto.PaginationMeta `json:"meta,omitempty"`
}

type CountResponse struct {
	Count int64      `json:"count"`
	Stats CountStats `json:"stats"`
}

func NewUserSummaries(users []*entity.User) []UserSummary {
	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, UserSummary{
			Identifier:    u.Identifier,
			Username:      u.Username,
			Score:         u.Score,
			ReferralCount: u.ReferralCount,
		})
	}
	return out
}

// Average is total/count, or 0 for an empty set.
func Average(total, count int64) float64 {
	if count == 0 {
		return 0
	}
	return float64(total) / float64(count)
}
