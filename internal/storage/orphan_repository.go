package storage

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tg-coursesync/internal/models"
)

// OrphanRepository is the durable side-table of Telegram channels pending
// confirmed deletion. Add is idempotent so re-recording the same channel
// during concurrent sweeps is harmless.
type OrphanRepository struct {
	db *gorm.DB
}

// NewOrphanRepository creates a new OrphanRepository
func NewOrphanRepository(db *gorm.DB) *OrphanRepository {
	return &OrphanRepository{db: db}
}

func (r *OrphanRepository) Add(telegramID, accessHash int64) error {
	orphan := &models.Orphan{
		TelegramID: telegramID,
		AccessHash: accessHash,
		CreatedAt:  time.Now(),
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		DoNothing: true,
	}).Create(orphan).Error
}

func (r *OrphanRepository) Remove(telegramID int64) error {
	return r.db.Where("telegram_id = ?", telegramID).Delete(&models.Orphan{}).Error
}

func (r *OrphanRepository) List() ([]models.Orphan, error) {
	var orphans []models.Orphan
	if err := r.db.Order("created_at ASC").Find(&orphans).Error; err != nil {
		return nil, err
	}
	return orphans, nil
}
