package repository

import (
	"context"
	"time"

	"github.com/coworkly/coworking-core/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	FindByID(ctx context.Context, id uint) (*models.Booking, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error)
	CountOverlapping(ctx context.Context, tx *gorm.DB, spaceID uint, start, end time.Time, excludeID uint) (int64, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, bookingID uint, status models.BookingStatus) error
	ListConfirmedBySubscription(ctx context.Context, tx *gorm.DB, subscriptionID uint) ([]models.Booking, error)
	FindInRange(ctx context.Context, from, to time.Time) ([]models.Booking, error)
	ListInvolvingMember(ctx context.Context, memberID uint) ([]models.Booking, error)
	ReplaceParticipants(ctx context.Context, tx *gorm.DB, bookingID uint, memberIDs []uint) error
	IsParticipant(ctx context.Context, bookingID, memberID uint) (bool, error)
	CreateOneOff(ctx context.Context, tx *gorm.DB, oneOff *models.OneOff) error
	FindOneOffByBooking(ctx context.Context, tx *gorm.DB, bookingID uint) (*models.OneOff, error)
	GetDB() *gorm.DB
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *bookingRepository) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	return tx.WithContext(ctx).Create(booking).Error
}

func (r *bookingRepository) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).Preload("Participants").First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// CountOverlapping counts confirmed bookings on the space whose half-open
// interval intersects [start, end). Touching boundaries do not intersect.
// Must run inside the transaction that holds the space row lock, otherwise
// the check races with concurrent inserts.
func (r *bookingRepository) CountOverlapping(ctx context.Context, tx *gorm.DB, spaceID uint, start, end time.Time, excludeID uint) (int64, error) {
	var count int64
	q := tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("space_id = ? AND status = ? AND start_time < ? AND end_time > ?",
			spaceID, models.StatusConfirmed, end, start)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&count).Error
	return count, err
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, bookingID uint, status models.BookingStatus) error {
	return tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", bookingID).
		Update("status", status).Error
}

// ListConfirmedBySubscription gathers the bookings a subscription cancel
// must cascade to. Runs inside the cancelling transaction.
func (r *bookingRepository) ListConfirmedBySubscription(ctx context.Context, tx *gorm.DB, subscriptionID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := tx.WithContext(ctx).
		Where("subscription_id = ? AND status = ?", subscriptionID, models.StatusConfirmed).
		Order("id ASC").
		Find(&bookings).Error
	return bookings, err
}

func (r *bookingRepository) FindInRange(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("start_time < ? AND end_time > ?", to, from).
		Order("start_time ASC, id ASC").
		Find(&bookings).Error
	return bookings, err
}

// ListInvolvingMember returns bookings the member created or participates in.
func (r *bookingRepository) ListInvolvingMember(ctx context.Context, memberID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("member_id = ? OR id IN (?)", memberID,
			r.db.Model(&models.Participant{}).Select("booking_id").Where("member_id = ?", memberID)).
		Order("start_time DESC, id DESC").
		Find(&bookings).Error
	return bookings, err
}

// ReplaceParticipants swaps the full participant set in one go.
func (r *bookingRepository) ReplaceParticipants(ctx context.Context, tx *gorm.DB, bookingID uint, memberIDs []uint) error {
	if err := tx.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Delete(&models.Participant{}).Error; err != nil {
		return err
	}
	if len(memberIDs) == 0 {
		return nil
	}
	rows := make([]models.Participant, 0, len(memberIDs))
	for _, id := range memberIDs {
		rows = append(rows, models.Participant{BookingID: bookingID, MemberID: id})
	}
	return tx.WithContext(ctx).Create(&rows).Error
}

func (r *bookingRepository) IsParticipant(ctx context.Context, bookingID, memberID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Participant{}).
		Where("booking_id = ? AND member_id = ?", bookingID, memberID).
		Count(&count).Error
	return count > 0, err
}

func (r *bookingRepository) CreateOneOff(ctx context.Context, tx *gorm.DB, oneOff *models.OneOff) error {
	return tx.WithContext(ctx).Create(oneOff).Error
}

func (r *bookingRepository) FindOneOffByBooking(ctx context.Context, tx *gorm.DB, bookingID uint) (*models.OneOff, error) {
	var oneOff models.OneOff
	if err := tx.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		First(&oneOff).Error; err != nil {
		return nil, err
	}
	return &oneOff, nil
}
