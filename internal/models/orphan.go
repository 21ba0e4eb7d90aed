package models

import "time"

// Orphan records a Telegram channel that was created but whose owning chat
// record never learned of it (the guarded update lost its race), or whose
// deletion was deferred by a flood wait. The sweep deletes these later.
type Orphan struct {
	TelegramID int64 `gorm:"primaryKey;autoIncrement:false"`
	AccessHash int64 `gorm:"not null"`
	CreatedAt  time.Time
}

func (Orphan) TableName() string { return "orphans" }
