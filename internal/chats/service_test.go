package chats

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-coursesync/internal/models"
	"tg-coursesync/internal/storage"
)

func newTestService() (*Service, *storage.MemoryChatStore) {
	store := storage.NewMemoryChatStore()
	return NewService(store), store
}

func studentChat() *models.Chat {
	return &models.Chat{
		Title:    "Databases",
		Course:   "DB-201",
		Type:     models.ChatTypeStudents,
		SlowMode: models.SlowModeDisabled,
	}
}

// TestCreateAssignsIDAndStatus gives a new chat an id, creating status and a
// version stamp.
func TestCreateAssignsIDAndStatus(t *testing.T) {
	service, _ := newTestService()

	chat := studentChat()
	require.NoError(t, service.Create(chat))

	assert.NotEqual(t, uuid.Nil, chat.ID)
	assert.Equal(t, models.ChatStatusCreating, chat.Status)
	assert.Greater(t, chat.UpdatedMs, int64(0))

	stored, err := service.Get(chat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Databases", stored.Title)
}

// TestCreateRejectsChannelWithSlowMode enforces that channels never carry a
// slow mode.
func TestCreateRejectsChannelWithSlowMode(t *testing.T) {
	service, _ := newTestService()

	chat := studentChat()
	chat.Type = models.ChatTypeChannel
	chat.SlowMode = models.SlowModeMinimal

	err := service.Create(chat)
	assert.ErrorIs(t, err, ErrInvalid)
}

// TestCreateChannelDefaultsSlowMode treats the zero-value slow mode as
// disabled, so a channel created without one is accepted.
func TestCreateChannelDefaultsSlowMode(t *testing.T) {
	service, _ := newTestService()

	chat := &models.Chat{
		Title:  "Announcements",
		Course: "ANN-1",
		Type:   models.ChatTypeChannel,
	}
	require.NoError(t, service.Create(chat))
	assert.Equal(t, models.SlowModeDisabled, chat.SlowMode)

	stored, err := service.Get(chat.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SlowModeDisabled, stored.SlowMode)
}

// TestUpdateRejectsTypeChange keeps the chat type immutable.
func TestUpdateRejectsTypeChange(t *testing.T) {
	service, _ := newTestService()

	chat := studentChat()
	require.NoError(t, service.Create(chat))

	err := service.Update(chat.ID, func(c *models.Chat) error {
		c.Type = models.ChatTypeTA
		return nil
	})
	assert.ErrorIs(t, err, ErrCannotModify)

	stored, err := service.Get(chat.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChatTypeStudents, stored.Type)
}

// TestUpdateRejectsSlowModeOnChannel applies the channel rule on update too.
func TestUpdateRejectsSlowModeOnChannel(t *testing.T) {
	service, _ := newTestService()

	chat := studentChat()
	chat.Type = models.ChatTypeChannel
	chat.SlowMode = models.SlowModeDisabled
	require.NoError(t, service.Create(chat))

	err := service.Update(chat.ID, func(c *models.Chat) error {
		c.SlowMode = models.SlowModeLong
		return nil
	})
	assert.ErrorIs(t, err, ErrInvalid)
}

// TestUpdateRejectsMutationWhileDeleting blocks field changes once a chat is
// marked for deletion.
func TestUpdateRejectsMutationWhileDeleting(t *testing.T) {
	service, _ := newTestService()

	chat := studentChat()
	require.NoError(t, service.Create(chat))
	require.NoError(t, service.Delete(chat.ID, false))

	err := service.Update(chat.ID, func(c *models.Chat) error {
		c.Title = "Renamed"
		return nil
	})
	assert.ErrorIs(t, err, ErrCannotModify)
}

// TestUpdateNoChangeKeepsVersion commits nothing when the callback leaves
// every field as it was.
func TestUpdateNoChangeKeepsVersion(t *testing.T) {
	service, _ := newTestService()

	chat := studentChat()
	require.NoError(t, service.Create(chat))

	before, err := service.Get(chat.ID)
	require.NoError(t, err)

	require.NoError(t, service.Update(chat.ID, func(c *models.Chat) error {
		return nil
	}))

	after, err := service.Get(chat.ID)
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedMs, after.UpdatedMs)
}

// TestUpdateDetectsConcurrentWriter fails the commit when the record changed
// between read and write.
func TestUpdateDetectsConcurrentWriter(t *testing.T) {
	service, store := newTestService()

	chat := studentChat()
	require.NoError(t, service.Create(chat))

	err := service.Update(chat.ID, func(c *models.Chat) error {
		// Interleave a competing write while this update is in flight.
		return store.Update(chat.ID, func(other *models.Chat) error {
			other.Description = "written by someone else"
			return nil
		})
	})
	require.NoError(t, err, "the inner write itself must succeed")

	err = service.Update(chat.ID, func(c *models.Chat) error {
		c.Description = "stale"
		// Second interleaved write to invalidate this one's version.
		return store.Update(chat.ID, func(other *models.Chat) error {
			other.Title = "moved on"
			return nil
		})
	})
	assert.ErrorIs(t, err, storage.ErrModifiedConcurrently)
}

// TestSoftDeleteMarksDeleting leaves the record in place with deleting
// status for the sync engine to tear down.
func TestSoftDeleteMarksDeleting(t *testing.T) {
	service, _ := newTestService()

	chat := studentChat()
	require.NoError(t, service.Create(chat))
	require.NoError(t, service.Delete(chat.ID, false))

	stored, err := service.Get(chat.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChatStatusDeleting, stored.Status)
}

// TestForcedDeleteRemovesRecord drops the row outright and reports a missing
// chat afterwards.
func TestForcedDeleteRemovesRecord(t *testing.T) {
	service, _ := newTestService()

	chat := studentChat()
	require.NoError(t, service.Create(chat))
	require.NoError(t, service.Delete(chat.ID, true))

	_, err := service.Get(chat.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = service.Delete(chat.ID, true)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
