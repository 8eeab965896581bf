package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin  = "admin"
	RolePlayer = "player"
)

type User struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Identifier      string    `gorm:"size:64;uniqueIndex;not null" json:"identifier"`
	Username        string    `gorm:"size:100;index;not null" json:"username"`
	Role            string    `gorm:"size:20;not null" json:"role"`
	PasswordHash    string    `gorm:"size:255" json:"-"`
	Score           int64     `gorm:"not null;default:0;index" json:"score"`
	WeeklyScore     int64     `gorm:"not null;default:0;index" json:"weekly_score"`
	ScoreVersion    int64     `gorm:"not null;default:0" json:"-"`
	WeekStart       time.Time `gorm:"not null" json:"week_start"`
	ReferralCode    string    `gorm:"size:16;uniqueIndex;not null" json:"referral_code"`
	Referrer        *string   `gorm:"size:64;index" json:"referrer,omitempty"`
	ReferralCount   int       `gorm:"not null;default:0" json:"referral_count"`
	WeeklyReferrals int       `gorm:"not null;default:0;index" json:"weekly_referrals"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Scores    []ScoreEvent   `gorm:"foreignKey:UserIdentifier;references:Identifier;constraint:OnDelete:CASCADE" json:"scores,omitempty"`
	Referrals []ReferralEdge `gorm:"foreignKey:ReferrerIdentifier;references:Identifier;constraint:OnDelete:CASCADE" json:"referrals,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RolePlayer
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
