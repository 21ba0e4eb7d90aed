package storage

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tg-coursesync/internal/models"
)

// In-memory counterparts of the gorm repositories, with the same contracts
// (including the conditional-write semantics of MemoryChatStore.Update).
// Used by tests and by local runs without a database.

type MemoryChatStore struct {
	mu    sync.Mutex
	chats map[uuid.UUID]*models.Chat
}

func NewMemoryChatStore() *MemoryChatStore {
	return &MemoryChatStore{chats: make(map[uuid.UUID]*models.Chat)}
}

func (s *MemoryChatStore) Get(id uuid.UUID) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[id]
	if !ok {
		return nil, ErrNotFound
	}
	return chat.Clone(), nil
}

func (s *MemoryChatStore) GetByTelegramID(telegramID int64) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chat := range s.chats {
		if chat.TelegramID != nil && *chat.TelegramID == telegramID {
			return chat.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryChatStore) Filter(filter ChatFilter, yield func(*models.Chat) error) error {
	s.mu.Lock()
	matched := make([]*models.Chat, 0, len(s.chats))
	for _, chat := range s.chats {
		if filter.Course != "" && chat.Course != filter.Course {
			continue
		}
		if filter.ExcludeSynced && chat.Status == models.ChatStatusSynced {
			continue
		}
		matched = append(matched, chat.Clone())
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].UpdatedMs < matched[j].UpdatedMs })

	for _, chat := range matched {
		if err := yield(chat); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryChatStore) Insert(chat *models.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[chat.ID]; ok {
		return fmt.Errorf("chat %s: %w", chat.ID, ErrConflict)
	}
	s.chats[chat.ID] = chat.Clone()
	return nil
}

func (s *MemoryChatStore) Update(id uuid.UUID, mutate func(*models.Chat) error) error {
	old, err := s.Get(id)
	if err != nil {
		return err
	}

	// The lock is not held across mutate: the callback may re-enter the
	// store (the engine force-deletes the row for DELETING chats), and the
	// conditional commit below detects interleaved writers anyway.
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

	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.chats[id]
	if !ok || stored.UpdatedMs != old.UpdatedMs {
		return fmt.Errorf("chat %s: %w", id, ErrModifiedConcurrently)
	}
	s.chats[id] = next.Clone()
	return nil
}

func (s *MemoryChatStore) Delete(id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[id]; !ok {
		return false, nil
	}
	delete(s.chats, id)
	return true, nil
}

type MemoryCourseStore struct {
	mu      sync.Mutex
	courses map[string]*models.Course
}

func NewMemoryCourseStore() *MemoryCourseStore {
	return &MemoryCourseStore{courses: make(map[string]*models.Course)}
}

func (s *MemoryCourseStore) Get(id string) (*models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	course, ok := s.courses[id]
	if !ok {
		return nil, fmt.Errorf("course %s: %w", id, ErrNotFound)
	}
	clone := *course
	return &clone, nil
}

func (s *MemoryCourseStore) Upsert(course *models.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *course
	s.courses[course.ID] = &clone
	return nil
}

func (s *MemoryCourseStore) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[id]; !ok {
		return false, nil
	}
	delete(s.courses, id)
	return true, nil
}

func (s *MemoryCourseStore) ForEach(yield func(*models.Course) error) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.courses))
	for id := range s.courses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	courses := make([]*models.Course, 0, len(ids))
	for _, id := range ids {
		clone := *s.courses[id]
		courses = append(courses, &clone)
	}
	s.mu.Unlock()

	for _, course := range courses {
		if err := yield(course); err != nil {
			return err
		}
	}
	return nil
}

type MemoryOrphanStore struct {
	mu      sync.Mutex
	orphans map[int64]models.Orphan
}

func NewMemoryOrphanStore() *MemoryOrphanStore {
	return &MemoryOrphanStore{orphans: make(map[int64]models.Orphan)}
}

func (s *MemoryOrphanStore) Add(telegramID, accessHash int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orphans[telegramID]; ok {
		return nil
	}
	s.orphans[telegramID] = models.Orphan{
		TelegramID: telegramID,
		AccessHash: accessHash,
		CreatedAt:  time.Now(),
	}
	return nil
}

func (s *MemoryOrphanStore) Remove(telegramID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.orphans, telegramID)
	return nil
}

func (s *MemoryOrphanStore) List() ([]models.Orphan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	orphans := make([]models.Orphan, 0, len(s.orphans))
	for _, orphan := range s.orphans {
		orphans = append(orphans, orphan)
	}
	sort.Slice(orphans, func(i, j int) bool { return orphans[i].TelegramID < orphans[j].TelegramID })
	return orphans, nil
}

type MemoryStatsStore struct {
	mu      sync.Mutex
	entries []models.MessageStat
}

func NewMemoryStatsStore() *MemoryStatsStore {
	return &MemoryStatsStore{}
}

func (s *MemoryStatsStore) Insert(entry *models.MessageStat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *MemoryStatsStore) Entries() []models.MessageStat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.MessageStat(nil), s.entries...)
}
