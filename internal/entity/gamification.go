package entity

import (
	"time"
)

const (
	ReasonTaskClaim     = "task_claim"
	ReasonGame          = "game"
	ReasonReferralBonus = "referral_bonus"
	ReasonAdjustment    = "admin_adjustment"
)

// ScoreEvent is one append-only entry of a user's score history.
type ScoreEvent struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserIdentifier string    `gorm:"size:64;not null;index:idx_score_events_user_date,priority:1" json:"user_identifier"`
	Score          int64     `gorm:"not null" json:"score"`
	Reason         string    `gorm:"size:50;not null" json:"reason"`
	ReferenceID    *string   `gorm:"size:80;uniqueIndex" json:"reference_id,omitempty"` // dedup key, e.g. completion id
	CreatedAt      time.Time `gorm:"not null;index:idx_score_events_user_date,priority:2" json:"timestamp"`
}

// ReferralEdge records that Referral signed up with Referrer's code.
// A user is referred at most once.
type ReferralEdge struct {
	ID                 uint      `gorm:"primaryKey" json:"-"`
	ReferrerIdentifier string    `gorm:"size:64;not null;index" json:"referrer_id"`
	ReferralIdentifier string    `gorm:"size:64;not null;uniqueIndex" json:"referral_id"`
	CreatedAt          time.Time `gorm:"not null" json:"timestamp"`
}

// Weekly windows open every Sunday at 12:00 UTC.
const (
	WeekResetWeekday = time.Sunday
	WeekResetHour    = 12
)

// WeekWindowStart returns the start of the weekly window containing now.
func WeekWindowStart(now time.Time) time.Time {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), WeekResetHour, 0, 0, 0, time.UTC)
	offset := (int(now.Weekday()) - int(WeekResetWeekday) + 7) % 7
	start = start.AddDate(0, 0, -offset)
	if start.After(now) {
		start = start.AddDate(0, 0, -7)
	}
	return start
}
