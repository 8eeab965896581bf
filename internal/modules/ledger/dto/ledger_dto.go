package dto

import (
	"time"

	commonDto "pooltap.app/earnhub/pkg/dto"
)

type ScoreResponse struct {
	Identifier  string `json:"identifier"`
	Score       int64  `json:"score"`
	WeeklyScore int64  `json:"weekly_score"`
}

type ScoreEventResponse struct {
	Score     int64     `json:"score"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

type HistoryResponse struct {
	Data []ScoreEventResponse   `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}

type SubmitScoreRequest struct {
	Score int64 `json:"score" binding:"gte=0"`
}

type SubmitScoreResponse struct {
	Score int64 `json:"score"`
}
