package bot

import (
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-coursesync/internal/chats"
	"tg-coursesync/internal/models"
	"tg-coursesync/internal/stats"
	"tg-coursesync/internal/storage"
)

// TestChannelIDStripsBotAPIPrefix converts the Bot API -100 form into the
// bare channel id and leaves legacy group ids alone.
func TestChannelIDStripsBotAPIPrefix(t *testing.T) {
	assert.Equal(t, int64(1234), channelID(-1000000001234))
	assert.Equal(t, int64(987654321), channelID(-1000987654321))
	assert.Equal(t, int64(-4567), channelID(-4567), "legacy group ids have no prefix")
}

// TestGroupMessageFilters drops private chats and anonymous messages, and
// normalizes the chat id of what it keeps.
func TestGroupMessageFilters(t *testing.T) {
	from := &telego.User{ID: 777}

	_, ok := groupMessage(telego.Message{
		Chat: telego.Chat{ID: 777, Type: telego.ChatTypePrivate},
		From: from,
	})
	assert.False(t, ok)

	_, ok = groupMessage(telego.Message{
		Chat: telego.Chat{ID: -1000000001234, Type: telego.ChatTypeSupergroup},
	})
	assert.False(t, ok, "messages without a sender are dropped")

	msg, ok := groupMessage(telego.Message{
		Chat: telego.Chat{ID: -1000000001234, Type: telego.ChatTypeSupergroup},
		From: from,
		Text: "hello",
	})
	require.True(t, ok)
	assert.Equal(t, int64(1234), msg.ChatID)
	assert.Equal(t, int64(777), msg.UserID)
	assert.Equal(t, "hello", msg.Body)
}

// TestGroupMessageReachesRecorder delivers a supergroup message in Bot API
// form and checks it lands as a statistics entry for the chat stored under
// the bare channel id.
func TestGroupMessageReachesRecorder(t *testing.T) {
	chatService := chats.NewService(storage.NewMemoryChatStore())
	statsStore := storage.NewMemoryStatsStore()
	recorder := stats.NewRecorder(chatService, statsStore)

	telegramID := int64(1234)
	chat := &models.Chat{Title: "OS", Course: "OS-101", Type: models.ChatTypeStudents}
	require.NoError(t, chatService.Create(chat))
	require.NoError(t, chatService.Update(chat.ID, func(c *models.Chat) error {
		c.TelegramID = &telegramID
		return nil
	}))

	msg, ok := groupMessage(telego.Message{
		Chat: telego.Chat{ID: -1000000001234, Type: telego.ChatTypeSupergroup},
		From: &telego.User{ID: 42},
		Text: "lecture notes are up",
	})
	require.True(t, ok)
	require.NoError(t, recorder.HandleMessage(msg))

	entries := statsStore.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, chat.ID, entries[0].Chat)
}

// TestWebhookSecretShortToken keeps short tokens from panicking the suffix
// slice.
func TestWebhookSecretShortToken(t *testing.T) {
	assert.Equal(t, "capture_webhook_token_abc", webhookSecret("abc"))
	assert.Equal(t, "capture_webhook_token_XYZ789", webhookSecret("123456:ABC-XYZ789"))
}
