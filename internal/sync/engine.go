package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tg-coursesync/internal/config"
	"tg-coursesync/internal/logger"
	"tg-coursesync/internal/models"
	"tg-coursesync/internal/storage"
	"tg-coursesync/internal/telegram"
)

// ChatStore is the chat surface the engine converges. Satisfied by
// chats.Service, so every engine write goes through the lifecycle guard and
// the store's conditional commit.
type ChatStore interface {
	Get(id uuid.UUID) (*models.Chat, error)
	Filter(filter storage.ChatFilter, yield func(*models.Chat) error) error
	Update(id uuid.UUID, mutate func(*models.Chat) error) error
	Delete(id uuid.UUID, forced bool) error
}

// CourseStore supplies course metadata for folder classification.
type CourseStore interface {
	Get(id string) (*models.Course, error)
}

// OrphanStore records Telegram objects whose database commit failed, so a
// later pass can delete them.
type OrphanStore interface {
	Add(telegramID, accessHash int64) error
	Remove(telegramID int64) error
	List() ([]models.Orphan, error)
}

// skipConverge aborts a guarded update without committing anything.
var skipConverge = errors.New("skip convergence")

// Engine reconciles stored chats against Telegram. Each pass walks the
// candidate set, converges every chat under a guarded update, sweeps
// orphans and, when membership changed, recomputes the dialog folders.
type Engine struct {
	platform telegram.Platform
	chats    ChatStore
	courses  CourseStore
	orphans  OrphanStore

	floodPause time.Duration
	folders    config.FolderConfig
}

func NewEngine(platform telegram.Platform, chats ChatStore, courses CourseStore, orphans OrphanStore, floodPause time.Duration, folders config.FolderConfig) *Engine {
	return &Engine{
		platform:   platform,
		chats:      chats,
		courses:    courses,
		orphans:    orphans,
		floodPause: floodPause,
		folders:    folders,
	}
}

// Sync runs one reconciliation pass. An incremental pass only visits chats
// not yet in synced status; a full pass visits everything and always
// recomputes folders.
func (e *Engine) Sync(ctx context.Context, full bool) error {
	var candidates []uuid.UUID
	err := e.chats.Filter(storage.ChatFilter{ExcludeSynced: !full}, func(chat *models.Chat) error {
		candidates = append(candidates, chat.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("listing sync candidates: %w", err)
	}

	var created, removed, failed int
	for _, id := range candidates {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		didCreate, didRemove, err := e.syncChat(ctx, id)
		if err != nil {
			failed++
			logger.Errorf("Sync of chat %s failed: %v", id, err)
		}
		if didCreate {
			created++
		}
		if didRemove {
			removed++
		}
	}

	e.sweepOrphans(ctx)

	if created > 0 || removed > 0 || full {
		e.updateFolders(ctx)
	}

	if len(candidates) > 0 || failed > 0 {
		logger.Infof("Sync pass done: %d candidates, %d created, %d removed, %d failed",
			len(candidates), created, removed, failed)
	}
	return nil
}

// syncChat converges a single chat and reports whether a Telegram object was
// created or a chat record removed.
func (e *Engine) syncChat(ctx context.Context, id uuid.UUID) (didCreate, didRemove bool, err error) {
	chat, err := e.chats.Get(id)
	if errors.Is(err, storage.ErrNotFound) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}

	if chat.Status == models.ChatStatusDeleting {
		removed, err := e.teardown(ctx, chat)
		return false, removed, err
	}

	// converge runs inside the guarded update so the commit fails when the
	// record changed underneath us. If the commit fails after a create, the
	// new Telegram object has no surviving reference and is recorded as an
	// orphan for the sweep to remove.
	var createdRef *telegram.Ref
	err = e.chats.Update(id, func(chat *models.Chat) error {
		return e.converge(ctx, chat, &createdRef)
	})
	if errors.Is(err, skipConverge) {
		return false, false, nil
	}
	if err != nil {
		if createdRef != nil {
			if orphanErr := e.orphans.Add(createdRef.ID, createdRef.AccessHash); orphanErr != nil {
				logger.Errorf("Failed to record orphan %d: %v", createdRef.ID, orphanErr)
			}
		}
		return false, false, err
	}
	return createdRef != nil, false, nil
}

// teardown deletes the Telegram object of a chat marked deleting and then
// drops the record. A flood wait converts the object into an orphan so the
// record can still go away now.
func (e *Engine) teardown(ctx context.Context, chat *models.Chat) (bool, error) {
	if chat.TelegramID != nil {
		ref := refOf(chat)
		err := e.platform.Delete(ctx, ref)
		if errors.Is(err, telegram.ErrRateLimited) {
			logger.Warningf("Rate limited deleting chat %s, deferring to orphan sweep", chat.ID)
			if orphanErr := e.orphans.Add(ref.ID, ref.AccessHash); orphanErr != nil {
				return false, orphanErr
			}
		} else if err != nil {
			return false, err
		}
	}

	err := e.chats.Delete(chat.ID, true)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) converge(ctx context.Context, chat *models.Chat, createdRef **telegram.Ref) error {
	// The record may have flipped to deleting between the candidate scan
	// and this re-read; the next pass handles it.
	if chat.Status == models.ChatStatusDeleting {
		return skipConverge
	}

	var snapshot *telegram.Snapshot
	if chat.TelegramID != nil {
		var err error
		snapshot, err = e.platform.Get(ctx, refOf(chat))
		if err != nil && !errors.Is(err, telegram.ErrNotFound) {
			return err
		}
		// Not found means the object vanished externally; recreate it.
	}

	if snapshot == nil {
		created, err := e.platform.Create(ctx, telegram.CreateRequest{
			Title:       ExternalTitle(chat),
			Description: chat.Description,
			Broadcast:   chat.Type == models.ChatTypeChannel,
		})
		if err != nil {
			return err
		}
		*createdRef = &created.Ref

		chat.TelegramID = &created.Ref.ID
		chat.TelegramAccessHash = &created.Ref.AccessHash
		chat.Status = models.ChatStatusUpdating
		if created.InviteLink != "" {
			link := created.InviteLink
			chat.InviteLink = &link
		}
		return nil
	}

	if err := e.pause(ctx); err != nil {
		return err
	}

	req := diff(chat, snapshot)
	if !req.IsEmpty() {
		if err := e.platform.Update(ctx, req); err != nil {
			return err
		}
	}

	chat.Status = models.ChatStatusSynced
	if snapshot.InviteLink != "" {
		link := snapshot.InviteLink
		chat.InviteLink = &link
	}
	return nil
}

// diff computes the partial update that brings the observed state to the
// desired one.
func diff(chat *models.Chat, snapshot *telegram.Snapshot) telegram.UpdateRequest {
	req := telegram.UpdateRequest{Ref: snapshot.Ref}

	if title := ExternalTitle(chat); snapshot.Title != title {
		req.Title = &title
	}
	if snapshot.Description != chat.Description {
		description := chat.Description
		req.Description = &description
	}
	if snapshot.AllReactions != chat.AllReactions {
		allReactions := chat.AllReactions
		req.AllReactions = &allReactions
	}
	if seconds := chat.SlowMode.Seconds(); snapshot.SlowModeSeconds != seconds {
		req.SlowModeSeconds = &seconds
	}
	return req
}

// sweepOrphans tries to delete every recorded orphan. Rate limiting stops
// the sweep for this pass; anything else keeps the orphan for the next one.
func (e *Engine) sweepOrphans(ctx context.Context) {
	orphans, err := e.orphans.List()
	if err != nil {
		logger.Errorf("Failed to list orphans: %v", err)
		return
	}

	for _, orphan := range orphans {
		if ctx.Err() != nil {
			return
		}

		ref := telegram.Ref{ID: orphan.TelegramID, AccessHash: orphan.AccessHash}
		err := e.platform.Delete(ctx, ref)
		if errors.Is(err, telegram.ErrRateLimited) {
			logger.Warningf("Rate limited sweeping orphans, stopping for this pass")
			return
		}
		if err != nil {
			logger.Errorf("Failed to delete orphan %d: %v", ref.ID, err)
			continue
		}
		if err := e.orphans.Remove(ref.ID); err != nil {
			logger.Errorf("Failed to drop orphan record %d: %v", ref.ID, err)
		}
	}
}

// updateFolders recomputes the three dialog folders from current
// membership. Every folder is pushed inside its own failure boundary so one
// rejected filter does not block the others.
func (e *Engine) updateFolders(ctx context.Context) {
	var core, electives, other []telegram.Ref

	err := e.chats.Filter(storage.ChatFilter{}, func(chat *models.Chat) error {
		if chat.TelegramID == nil || chat.Status == models.ChatStatusDeleting {
			return nil
		}
		ref := refOf(chat)

		course, err := e.courses.Get(chat.Course)
		if errors.Is(err, storage.ErrNotFound) {
			other = append(other, ref)
			return nil
		}
		if err != nil {
			return err
		}

		switch course.Type {
		case models.CourseTypeCore:
			core = append(core, ref)
		case models.CourseTypeTechnicalElective, models.CourseTypeHumanitarianElective:
			electives = append(electives, ref)
		default:
			other = append(other, ref)
		}
		return nil
	})
	if err != nil {
		logger.Errorf("Failed to classify chats for folders: %v", err)
		return
	}

	for _, folder := range []struct {
		title string
		refs  []telegram.Ref
	}{
		{e.folders.Core, core},
		{e.folders.Electives, electives},
		{e.folders.Other, other},
	} {
		if err := e.platform.UpdateFolder(ctx, folder.title, folder.refs); err != nil {
			logger.Errorf("Failed to update folder %q: %v", folder.title, err)
		}
	}
}

// pause spaces out write requests to stay under Telegram flood limits.
func (e *Engine) pause(ctx context.Context) error {
	if e.floodPause <= 0 {
		return nil
	}
	select {
	case <-time.After(e.floodPause):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExternalTitle derives the Telegram-facing title from the chat record.
func ExternalTitle(chat *models.Chat) string {
	switch chat.Type {
	case models.ChatTypeStudents:
		return chat.Title + " Students"
	case models.ChatTypeTA:
		return chat.Title + " TAs"
	default:
		return chat.Title
	}
}

func refOf(chat *models.Chat) telegram.Ref {
	ref := telegram.Ref{ID: *chat.TelegramID}
	if chat.TelegramAccessHash != nil {
		ref.AccessHash = *chat.TelegramAccessHash
	}
	return ref
}
