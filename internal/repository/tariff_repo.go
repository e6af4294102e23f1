package repository

import (
	"context"

	"github.com/coworkly/coworking-core/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TariffRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Tariff, error)
	Upsert(ctx context.Context, tariff *models.Tariff) error
}

type tariffRepository struct {
	db *gorm.DB
}

func NewTariffRepository(db *gorm.DB) TariffRepository {
	return &tariffRepository{db: db}
}

func (r *tariffRepository) FindByID(ctx context.Context, id uint) (*models.Tariff, error) {
	var tariff models.Tariff
	if err := r.db.WithContext(ctx).First(&tariff, id).Error; err != nil {
		return nil, err
	}
	return &tariff, nil
}

// Upsert syncs a tariff from the catalog feed. Type is immutable after
// creation, so it is excluded from the conflict update.
func (r *tariffRepository) Upsert(ctx context.Context, tariff *models.Tariff) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "duration_days", "included_minutes", "price", "space_id", "active", "updated_at"}),
	}).Create(tariff).Error
}
