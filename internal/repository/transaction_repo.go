package repository

import (
	"context"

	"github.com/coworkly/coworking-core/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionRepository is append-only: there is no update or delete.
// Corrections are made with refund rows, never edits.
type TransactionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, t *models.Transaction) error
	FindByID(ctx context.Context, id uint) (*models.Transaction, error)
	ListByMember(ctx context.Context, memberID uint) ([]models.Transaction, error)
	SumSignedByMember(ctx context.Context, memberID uint) (decimal.Decimal, error)
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, tx *gorm.DB, t *models.Transaction) error {
	return tx.WithContext(ctx).Create(t).Error
}

func (r *transactionRepository) FindByID(ctx context.Context, id uint) (*models.Transaction, error) {
	var t models.Transaction
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transactionRepository) ListByMember(ctx context.Context, memberID uint) ([]models.Transaction, error) {
	var txs []models.Transaction
	if err := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("id ASC").
		Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

// SumSignedByMember folds the member's ledger into one signed total.
// The result must always equal the cached Member.Balance column.
func (r *transactionRepository) SumSignedByMember(ctx context.Context, memberID uint) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select(`COALESCE(SUM(CASE WHEN kind IN ('payment','withdrawal') THEN -amount ELSE amount END), 0)`).
		Where("member_id = ?", memberID).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}
