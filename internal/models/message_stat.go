package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageStat is one captured group message, reduced to its length.
// User is a fixed-width pseudonym, not a Telegram user id.
type MessageStat struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	Chat      uuid.UUID `gorm:"type:char(36);index;not null"`
	User      uuid.UUID `gorm:"type:char(36);index;not null"`
	Length    int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (MessageStat) TableName() string { return "message_stats" }
