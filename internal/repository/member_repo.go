package repository

import (
	"context"

	"github.com/coworkly/coworking-core/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MemberRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Member, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Member, error)
	AdjustBalance(ctx context.Context, tx *gorm.DB, memberID uint, delta decimal.Decimal) error
	UpsertDirectory(ctx context.Context, member *models.Member) error
}

type memberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) FindByID(ctx context.Context, id uint) (*models.Member, error) {
	var member models.Member
	if err := r.db.WithContext(ctx).First(&member, id).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// FindByIDForUpdate locks the member row; the ledger takes this lock before
// every balance check and mutation.
func (r *memberRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Member, error) {
	var member models.Member
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&member, id).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// AdjustBalance applies a signed delta. Callers hold the FOR UPDATE lock and
// run inside the same transaction that appends the matching Transaction row.
func (r *memberRepository) AdjustBalance(ctx context.Context, tx *gorm.DB, memberID uint, delta decimal.Decimal) error {
	return tx.WithContext(ctx).
		Model(&models.Member{}).
		Where("id = ?", memberID).
		Update("balance", gorm.Expr("balance + ?", delta)).Error
}

// UpsertDirectory syncs directory fields from the member catalog feed.
// Balance is deliberately absent from the update list: it belongs to the ledger.
func (r *memberRepository) UpsertDirectory(ctx context.Context, member *models.Member) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "phone", "staff", "updated_at"}),
	}).Create(member).Error
}
