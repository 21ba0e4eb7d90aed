package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tg-coursesync/internal/models"
)

// ChatFilter narrows a Filter scan. The zero value scans everything.
type ChatFilter struct {
	Course        string
	ExcludeSynced bool
}

// ChatRepository handles database operations for Chat with optimistic
// concurrency on the updated_ms column.
type ChatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new ChatRepository
func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Get(id uuid.UUID) (*models.Chat, error) {
	var chat models.Chat
	result := r.db.Where("id = ?", id).First(&chat)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return &chat, nil
}

func (r *ChatRepository) GetByTelegramID(telegramID int64) (*models.Chat, error) {
	var chat models.Chat
	result := r.db.Where("telegram_id = ?", telegramID).First(&chat)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return &chat, nil
}

// Filter streams chats ordered by ascending updated_ms (stalest first)
// through yield. The scan uses a cursor, so the sequence is unbounded;
// a non-nil error from yield stops the scan.
func (r *ChatRepository) Filter(filter ChatFilter, yield func(*models.Chat) error) error {
	query := r.db.Model(&models.Chat{}).Order("updated_ms ASC")
	if filter.Course != "" {
		query = query.Where("course = ?", filter.Course)
	}
	if filter.ExcludeSynced {
		query = query.Where("status <> ?", models.ChatStatusSynced)
	}

	rows, err := query.Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var chat models.Chat
		if err := r.db.ScanRows(rows, &chat); err != nil {
			return err
		}
		if err := yield(&chat); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *ChatRepository) Insert(chat *models.Chat) error {
	err := r.db.Create(chat).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("chat %s: %w", chat.ID, ErrConflict)
	}
	return err
}

// Update runs mutate against a copy of the stored chat and commits the
// result with a single conditional write matching both id and the
// updated_ms value read. If another writer committed in between, the write
// matches zero rows and ErrModifiedConcurrently is returned; the mutation
// is discarded. If mutate changes nothing, no write happens and the
// version stays untouched.
func (r *ChatRepository) Update(id uuid.UUID, mutate func(*models.Chat) error) error {
	old, err := r.Get(id)
	if err != nil {
		return err
	}

	next := old.Clone()
	if err := mutate(next); err != nil {
		return err
	}

	if next.Equal(old) {
		return nil
	}

	next.UpdatedMs = time.Now().UnixMilli()
	if next.UpdatedMs <= old.UpdatedMs {
		next.UpdatedMs = old.UpdatedMs + 1
	}

	result := r.db.Model(&models.Chat{}).
		Where("id = ? AND updated_ms = ?", old.ID, old.UpdatedMs).
		Select("*").Omit("id").
		Updates(next)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("chat %s: %w", id, ErrModifiedConcurrently)
	}
	return nil
}

// Delete removes the row unconditionally. Returns false if it was absent.
func (r *ChatRepository) Delete(id uuid.UUID) (bool, error) {
	result := r.db.Where("id = ?", id).Delete(&models.Chat{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
