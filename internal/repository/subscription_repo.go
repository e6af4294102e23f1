package repository

import (
	"context"
	"time"

	"github.com/coworkly/coworking-core/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, sub *models.Subscription) error
	FindByID(ctx context.Context, id uint) (*models.Subscription, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Subscription, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.SubscriptionStatus) error
	SetPaymentTransaction(ctx context.Context, tx *gorm.DB, id, transactionID uint) error
	AddMinutes(ctx context.Context, tx *gorm.DB, id uint, minutes int) error
	ExpireDue(ctx context.Context, today time.Time) (int64, error)
	ListByMember(ctx context.Context, memberID uint) ([]models.Subscription, error)
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(ctx context.Context, tx *gorm.DB, sub *models.Subscription) error {
	return tx.WithContext(ctx).Create(sub).Error
}

func (r *subscriptionRepository) FindByID(ctx context.Context, id uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).Preload("Tariff").First(&sub, id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindByIDForUpdate locks the subscription row for draw-down and cancellation.
func (r *subscriptionRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&sub, id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.SubscriptionStatus) error {
	return tx.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *subscriptionRepository) SetPaymentTransaction(ctx context.Context, tx *gorm.DB, id, transactionID uint) error {
	return tx.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", id).
		Update("payment_transaction_id", transactionID).Error
}

// AddMinutes applies a signed minute delta to a finite pool. The guard in the
// WHERE clause keeps the unlimited sentinel untouched and a decrement from
// ever pushing the pool negative, even if a caller raced past its own check.
func (r *subscriptionRepository) AddMinutes(ctx context.Context, tx *gorm.DB, id uint, minutes int) error {
	return tx.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ? AND remaining_minutes > 0 AND remaining_minutes + ? >= 0", id, minutes).
		Update("remaining_minutes", gorm.Expr("remaining_minutes + ?", minutes)).Error
}

// ExpireDue flips every active subscription past its end date to expired.
// The UPDATE is idempotent: a second sweep matches no rows.
func (r *subscriptionRepository) ExpireDue(ctx context.Context, today time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("status = ? AND end_date < ?", models.SubActive, today).
		Update("status", models.SubExpired)
	return res.RowsAffected, res.Error
}

func (r *subscriptionRepository) ListByMember(ctx context.Context, memberID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	if err := r.db.WithContext(ctx).
		Preload("Tariff").
		Where("member_id = ?", memberID).
		Order("start_date DESC, id DESC").
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}
