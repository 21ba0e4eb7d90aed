package stats

import (
	"crypto/md5"
	"errors"
	"strconv"
	"unicode/utf8"

	"github.com/google/uuid"

	"tg-coursesync/internal/models"
	"tg-coursesync/internal/storage"
	"tg-coursesync/internal/telegram"
)

// ChatLookup resolves a Telegram chat id to a managed chat record.
type ChatLookup interface {
	GetByTelegramID(telegramID int64) (*models.Chat, error)
}

// Store persists message statistics.
type Store interface {
	Insert(stat *models.MessageStat) error
}

// Recorder captures per-message statistics for managed chats. Messages from
// chats we do not manage are dropped without error.
type Recorder struct {
	chats ChatLookup
	store Store
}

func NewRecorder(chats ChatLookup, store Store) *Recorder {
	return &Recorder{chats: chats, store: store}
}

func (r *Recorder) HandleMessage(msg telegram.Message) error {
	chat, err := r.chats.GetByTelegramID(msg.ChatID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	return r.store.Insert(&models.MessageStat{
		ID:   uuid.New(),
		Chat: chat.ID,
		User: Pseudonym(msg.UserID),
		// Characters, not bytes; byte counts inflate non-ASCII messages.
		Length:    utf8.RuneCountInString(msg.Body),
		CreatedAt: msg.CreatedAt,
	})
}

// Pseudonym derives a stable opaque id from a Telegram user id, so stats
// never store the raw id.
func Pseudonym(userID int64) uuid.UUID {
	return uuid.UUID(md5.Sum([]byte(strconv.FormatInt(userID, 10))))
}
