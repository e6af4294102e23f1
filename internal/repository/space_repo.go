package repository

import (
	"context"

	"github.com/coworkly/coworking-core/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SpaceRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Space, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Space, error)
	ListActive(ctx context.Context) ([]models.Space, error)
	Upsert(ctx context.Context, space *models.Space) error
}

type spaceRepository struct {
	db *gorm.DB
}

func NewSpaceRepository(db *gorm.DB) SpaceRepository {
	return &spaceRepository{db: db}
}

func (r *spaceRepository) FindByID(ctx context.Context, id uint) (*models.Space, error) {
	var space models.Space
	if err := r.db.WithContext(ctx).First(&space, id).Error; err != nil {
		return nil, err
	}
	return &space, nil
}

// FindByIDForUpdate acquires a row-level lock on the space within the given
// transaction. All booking creation for a space funnels through this lock,
// which serializes the overlap check against concurrent inserts.
func (r *spaceRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Space, error) {
	var space models.Space
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&space, id).Error; err != nil {
		return nil, err
	}
	return &space, nil
}

func (r *spaceRepository) ListActive(ctx context.Context) ([]models.Space, error) {
	var spaces []models.Space
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("id ASC").Find(&spaces).Error; err != nil {
		return nil, err
	}
	return spaces, nil
}

// Upsert syncs a space from the catalog feed (same ID from the catalog service).
func (r *spaceRepository) Upsert(ctx context.Context, space *models.Space) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "capacity", "active", "updated_at"}),
	}).Create(space).Error
}
