package storage

import (
	"gorm.io/gorm"

	"tg-coursesync/internal/models"
)

// StatsRepository is the write-only sink for message statistics.
type StatsRepository struct {
	db *gorm.DB
}

// NewStatsRepository creates a new StatsRepository
func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) Insert(entry *models.MessageStat) error {
	return r.db.Create(entry).Error
}
