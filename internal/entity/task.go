package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Task struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name             string     `gorm:"size:150;not null" json:"name"`
	Slug             string     `gorm:"size:180;uniqueIndex;not null" json:"slug"`
	Description      string     `gorm:"type:text" json:"description"`
	Link             string     `gorm:"type:text;not null" json:"link"`
	Icon             string     `gorm:"size:255" json:"icon"`
	Points           int64      `gorm:"not null" json:"points"`
	ExpiryDate       *time.Time `gorm:"index" json:"expiry_date,omitempty"`
	RequiresEvidence bool       `gorm:"not null" json:"requires_evidence"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID, err = uuid.NewV7()
	}
	return
}

// ActiveAt reports whether new completions may be started at now.
func (t *Task) ActiveAt(now time.Time) bool {
	return t.ExpiryDate == nil || !t.ExpiryDate.Before(now)
}
