package dto

const TypeUserCount = "user_count"

type UserCountMessage struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}
