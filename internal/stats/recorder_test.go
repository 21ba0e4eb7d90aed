package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-coursesync/internal/chats"
	"tg-coursesync/internal/models"
	"tg-coursesync/internal/storage"
	"tg-coursesync/internal/telegram"
)

// TestHandleMessageRecordsManagedChat stores one entry with the message
// length and a pseudonymous user id.
func TestHandleMessageRecordsManagedChat(t *testing.T) {
	chatStore := storage.NewMemoryChatStore()
	chatService := chats.NewService(chatStore)
	statsStore := storage.NewMemoryStatsStore()
	recorder := NewRecorder(chatService, statsStore)

	telegramID := int64(123456)
	chat := &models.Chat{Title: "OS", Course: "OS-101", Type: models.ChatTypeStudents}
	require.NoError(t, chatService.Create(chat))
	require.NoError(t, chatService.Update(chat.ID, func(c *models.Chat) error {
		c.TelegramID = &telegramID
		return nil
	}))

	sent := time.Now().Truncate(time.Second)
	require.NoError(t, recorder.HandleMessage(telegram.Message{
		ChatID:    telegramID,
		UserID:    777,
		Body:      "hello there",
		CreatedAt: sent,
	}))

	entries := statsStore.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, chat.ID, entries[0].Chat)
	assert.Equal(t, len("hello there"), entries[0].Length)
	assert.Equal(t, sent, entries[0].CreatedAt)
	assert.Equal(t, Pseudonym(777), entries[0].User)
}

// TestHandleMessageCountsCharacters records the character count, not the
// byte count, for non-ASCII messages.
func TestHandleMessageCountsCharacters(t *testing.T) {
	chatService := chats.NewService(storage.NewMemoryChatStore())
	statsStore := storage.NewMemoryStatsStore()
	recorder := NewRecorder(chatService, statsStore)

	telegramID := int64(555)
	chat := &models.Chat{Title: "RU", Course: "RU-101", Type: models.ChatTypeStudents}
	require.NoError(t, chatService.Create(chat))
	require.NoError(t, chatService.Update(chat.ID, func(c *models.Chat) error {
		c.TelegramID = &telegramID
		return nil
	}))

	require.NoError(t, recorder.HandleMessage(telegram.Message{
		ChatID: telegramID,
		UserID: 9,
		Body:   "привет",
	}))

	entries := statsStore.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, 6, entries[0].Length, "six characters, twelve bytes")
}

// TestHandleMessageDropsUnknownChat silently ignores chats outside the
// registry.
func TestHandleMessageDropsUnknownChat(t *testing.T) {
	recorder := NewRecorder(chats.NewService(storage.NewMemoryChatStore()), storage.NewMemoryStatsStore())

	err := recorder.HandleMessage(telegram.Message{ChatID: 42, UserID: 1, Body: "spam"})
	assert.NoError(t, err)
}

// TestPseudonymStableAndDistinct keeps the same user on the same pseudonym
// while separating different users.
func TestPseudonymStableAndDistinct(t *testing.T) {
	assert.Equal(t, Pseudonym(1001), Pseudonym(1001))
	assert.NotEqual(t, Pseudonym(1001), Pseudonym(1002))
}
