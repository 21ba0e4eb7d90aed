package courses

import (
	"context"
	"fmt"

	"tg-coursesync/internal/logger"
	"tg-coursesync/internal/models"
	"tg-coursesync/internal/storage"
)

// Store is the persistence contract for courses. Implemented by
// storage.CourseRepository and storage.MemoryCourseStore.
type Store interface {
	Get(id string) (*models.Course, error)
	Upsert(course *models.Course) error
	Delete(id string) (bool, error)
	ForEach(yield func(*models.Course) error) error
}

// Fetcher pulls the full course list from the academic records service.
type Fetcher interface {
	FetchCourses(ctx context.Context) ([]models.Course, error)
}

// Service owns course metadata. Courses are imported from the LMS and read
// by the sync engine for folder classification; nothing here ever touches
// chat records.
type Service struct {
	store   Store
	fetcher Fetcher
}

func NewService(store Store, fetcher Fetcher) *Service {
	return &Service{store: store, fetcher: fetcher}
}

func (s *Service) Get(id string) (*models.Course, error) {
	return s.store.Get(id)
}

func (s *Service) Upsert(course *models.Course) error {
	return s.store.Upsert(course)
}

func (s *Service) Delete(id string) error {
	deleted, err := s.store.Delete(id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("course %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Service) ForEach(yield func(*models.Course) error) error {
	return s.store.ForEach(yield)
}

// Sync imports the current LMS course list, upserting every record.
func (s *Service) Sync(ctx context.Context) error {
	if s.fetcher == nil {
		return fmt.Errorf("no course fetcher configured")
	}

	logger.Infof("Importing courses from LMS...")
	courses, err := s.fetcher.FetchCourses(ctx)
	if err != nil {
		return fmt.Errorf("fetching courses: %w", err)
	}

	for i := range courses {
		if err := s.store.Upsert(&courses[i]); err != nil {
			return fmt.Errorf("upserting course %s: %w", courses[i].ID, err)
		}
	}

	logger.Infof("Imported %d courses", len(courses))
	return nil
}
