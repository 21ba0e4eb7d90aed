package chats

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tg-coursesync/internal/models"
	"tg-coursesync/internal/storage"
)

var (
	// ErrCannotModify is returned for illegal transitions: changing the
	// chat type, or mutating a chat already marked for deletion.
	ErrCannotModify = errors.New("chat cannot be modified")

	// ErrInvalid is returned for domain rule violations.
	ErrInvalid = errors.New("invalid chat")
)

// Store is the persistence contract the service needs. Implemented by
// storage.ChatRepository (MySQL) and storage.MemoryChatStore.
type Store interface {
	Get(id uuid.UUID) (*models.Chat, error)
	GetByTelegramID(telegramID int64) (*models.Chat, error)
	Filter(filter storage.ChatFilter, yield func(*models.Chat) error) error
	Insert(chat *models.Chat) error
	Update(id uuid.UUID, mutate func(*models.Chat) error) error
	Delete(id uuid.UUID) (bool, error)
}

// Service guards the chat lifecycle on top of the store's optimistic
// updates. It vetoes illegal mutations; target statuses are always chosen
// by the caller.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Get(id uuid.UUID) (*models.Chat, error) {
	return s.store.Get(id)
}

func (s *Service) GetByTelegramID(telegramID int64) (*models.Chat, error) {
	return s.store.GetByTelegramID(telegramID)
}

func (s *Service) Filter(filter storage.ChatFilter, yield func(*models.Chat) error) error {
	return s.store.Filter(filter, yield)
}

// Create inserts a new chat in creating status. Channels must keep slow
// mode disabled.
func (s *Service) Create(chat *models.Chat) error {
	if chat.SlowMode == "" {
		chat.SlowMode = models.SlowModeDisabled
	}
	if chat.Type == models.ChatTypeChannel && chat.SlowMode != models.SlowModeDisabled {
		return fmt.Errorf("channel cannot have slow mode: %w", ErrInvalid)
	}

	if chat.ID == uuid.Nil {
		chat.ID = uuid.New()
	}
	chat.Status = models.ChatStatusCreating
	chat.UpdatedMs = time.Now().UnixMilli()

	return s.store.Insert(chat)
}

// Update opens a guarded mutation. The callback receives a mutable copy;
// after it returns, type changes are rejected, channels with slow mode are
// rejected, and any field change against a chat already in deleting status
// is rejected. The commit itself is the store's conditional write.
func (s *Service) Update(id uuid.UUID, mutate func(*models.Chat) error) error {
	return s.store.Update(id, func(chat *models.Chat) error {
		old := chat.Clone()

		if err := mutate(chat); err != nil {
			return err
		}

		if chat.SlowMode == "" {
			chat.SlowMode = models.SlowModeDisabled
		}
		if chat.Type != old.Type {
			return fmt.Errorf("chat type is immutable: %w", ErrCannotModify)
		}
		if chat.Type == models.ChatTypeChannel && chat.SlowMode != models.SlowModeDisabled {
			return fmt.Errorf("channel cannot have slow mode: %w", ErrInvalid)
		}
		if !chat.Equal(old) && old.Status == models.ChatStatusDeleting {
			return fmt.Errorf("chat is marked for deletion: %w", ErrCannotModify)
		}
		return nil
	})
}

// Delete soft-deletes by default: the chat is marked deleting and the sync
// engine tears down its Telegram object before removing the row. Forced
// deletion removes the row outright and is used once the Telegram side is
// resolved (or never existed).
func (s *Service) Delete(id uuid.UUID, forced bool) error {
	if forced {
		deleted, err := s.store.Delete(id)
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("chat %s: %w", id, storage.ErrNotFound)
		}
		return nil
	}

	return s.store.Update(id, func(chat *models.Chat) error {
		chat.Status = models.ChatStatusDeleting
		return nil
	})
}
