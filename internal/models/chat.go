package models

import (
	"github.com/google/uuid"
)

// ChatType determines what the Telegram object is used for. Immutable after creation.
type ChatType string

const (
	ChatTypeStudents ChatType = "students"
	ChatTypeTA       ChatType = "ta"
	ChatTypeChannel  ChatType = "channel"
)

func ParseChatType(s string) (ChatType, bool) {
	switch ChatType(s) {
	case ChatTypeStudents, ChatTypeTA, ChatTypeChannel:
		return ChatType(s), true
	}
	return "", false
}

type SlowMode string

const (
	SlowModeDisabled SlowMode = "disabled"
	SlowModeMinimal  SlowMode = "minimal"
	SlowModeMedium   SlowMode = "medium"
	SlowModeLong     SlowMode = "long"
)

// Seconds maps the slow mode level to the Telegram slow-mode delay.
func (m SlowMode) Seconds() int {
	switch m {
	case SlowModeMinimal:
		return 10
	case SlowModeMedium:
		return 30
	case SlowModeLong:
		return 60
	default:
		return 0
	}
}

func SlowModeFromSeconds(seconds int) (SlowMode, bool) {
	switch seconds {
	case 0:
		return SlowModeDisabled, true
	case 10:
		return SlowModeMinimal, true
	case 30:
		return SlowModeMedium, true
	case 60:
		return SlowModeLong, true
	}
	return "", false
}

type ChatStatus string

const (
	ChatStatusCreating ChatStatus = "creating"
	ChatStatusUpdating ChatStatus = "updating"
	ChatStatusSynced   ChatStatus = "synced"
	ChatStatusDeleting ChatStatus = "deleting"
)

// Chat is the desired state of one Telegram group or channel bound to a course.
// UpdatedMs is the optimistic concurrency version: every persisted mutation
// advances it, and conditional writes match against the value read.
type Chat struct {
	ID                 uuid.UUID  `gorm:"type:char(36);primaryKey"`
	Title              string     `gorm:"type:varchar(255);not null"`
	Course             string     `gorm:"type:varchar(64);index;not null"`
	Type               ChatType   `gorm:"type:varchar(16);not null"`
	Description        string     `gorm:"type:text"`
	SlowMode           SlowMode   `gorm:"type:varchar(16);not null;default:'disabled'"`
	AllReactions       bool       `gorm:"not null;default:false"`
	Status             ChatStatus `gorm:"type:varchar(16);not null"`
	TelegramID         *int64     `gorm:"index"`
	TelegramAccessHash *int64
	InviteLink         *string `gorm:"type:varchar(255)"`
	UpdatedMs          int64   `gorm:"index;not null"`
}

func (Chat) TableName() string { return "chats" }

// Clone returns a deep copy, including pointer fields.
func (c *Chat) Clone() *Chat {
	clone := *c
	if c.TelegramID != nil {
		v := *c.TelegramID
		clone.TelegramID = &v
	}
	if c.TelegramAccessHash != nil {
		v := *c.TelegramAccessHash
		clone.TelegramAccessHash = &v
	}
	if c.InviteLink != nil {
		v := *c.InviteLink
		clone.InviteLink = &v
	}
	return &clone
}

// Equal compares all fields by value, pointer fields by pointee.
func (c *Chat) Equal(o *Chat) bool {
	return c.ID == o.ID &&
		c.Title == o.Title &&
		c.Course == o.Course &&
		c.Type == o.Type &&
		c.Description == o.Description &&
		c.SlowMode == o.SlowMode &&
		c.AllReactions == o.AllReactions &&
		c.Status == o.Status &&
		equalInt64Ptr(c.TelegramID, o.TelegramID) &&
		equalInt64Ptr(c.TelegramAccessHash, o.TelegramAccessHash) &&
		equalStringPtr(c.InviteLink, o.InviteLink) &&
		c.UpdatedMs == o.UpdatedMs
}

func equalInt64Ptr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
