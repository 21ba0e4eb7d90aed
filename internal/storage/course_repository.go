package storage

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tg-coursesync/internal/models"
)

// CourseRepository handles database operations for Course
type CourseRepository struct {
	db *gorm.DB
}

// NewCourseRepository creates a new CourseRepository
func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) Get(id string) (*models.Course, error) {
	var course models.Course
	result := r.db.Where("id = ?", id).First(&course)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("course %s: %w", id, ErrNotFound)
		}
		return nil, result.Error
	}
	return &course, nil
}

func (r *CourseRepository) Upsert(course *models.Course) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(course).Error
}

func (r *CourseRepository) Delete(id string) (bool, error) {
	result := r.db.Where("id = ?", id).Delete(&models.Course{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *CourseRepository) ForEach(yield func(*models.Course) error) error {
	rows, err := r.db.Model(&models.Course{}).Order("id ASC").Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var course models.Course
		if err := r.db.ScanRows(rows, &course); err != nil {
			return err
		}
		if err := yield(&course); err != nil {
			return err
		}
	}
	return rows.Err()
}
