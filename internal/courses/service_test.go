package courses

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-coursesync/internal/models"
	"tg-coursesync/internal/storage"
)

type fakeFetcher struct {
	courses []models.Course
	err     error
	calls   int
}

func (f *fakeFetcher) FetchCourses(ctx context.Context) ([]models.Course, error) {
	f.calls++
	return f.courses, f.err
}

// TestSyncUpsertsEveryCourse imports the fetched list, replacing existing
// records.
func TestSyncUpsertsEveryCourse(t *testing.T) {
	store := storage.NewMemoryCourseStore()
	require.NoError(t, store.Upsert(&models.Course{ID: "OS-101", FullName: "Old name"}))

	fetcher := &fakeFetcher{courses: []models.Course{
		{ID: "OS-101", FullName: "Operating Systems", Type: models.CourseTypeCore},
		{ID: "ML-501", FullName: "Machine Learning", Type: models.CourseTypeTechnicalElective},
	}}
	service := NewService(store, fetcher)

	require.NoError(t, service.Sync(context.Background()))
	assert.Equal(t, 1, fetcher.calls)

	os, err := service.Get("OS-101")
	require.NoError(t, err)
	assert.Equal(t, "Operating Systems", os.FullName)

	ml, err := service.Get("ML-501")
	require.NoError(t, err)
	assert.Equal(t, models.CourseTypeTechnicalElective, ml.Type)
}

// TestSyncPropagatesFetchError keeps the store untouched when the fetch
// fails.
func TestSyncPropagatesFetchError(t *testing.T) {
	store := storage.NewMemoryCourseStore()
	fetcher := &fakeFetcher{err: errors.New("lms down")}
	service := NewService(store, fetcher)

	err := service.Sync(context.Background())
	assert.Error(t, err)

	_, err = service.Get("OS-101")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// TestDeleteUnknownCourse maps a missing row onto ErrNotFound.
func TestDeleteUnknownCourse(t *testing.T) {
	service := NewService(storage.NewMemoryCourseStore(), nil)

	err := service.Delete("GONE-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
