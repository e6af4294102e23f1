package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coworkly/coworking-core/internal/models"
	"github.com/coworkly/coworking-core/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateBookingParams struct {
	MemberID       uint
	SpaceID        uint
	Type           models.BookingType
	StartTime      time.Time
	EndTime        time.Time
	SubscriptionID uint   // required for subscription bookings
	TariffID       uint   // required for one_time bookings
	ParticipantIDs []uint // creator is dropped, duplicates collapsed
}

type StaffCancelParams struct {
	ReturnMinutes bool            // subscription bookings: restore drawn-down minutes
	ReturnMoney   bool            // one_time bookings: refund the original charge
	RefundAmount  decimal.Decimal // fix bookings: partial refund of the subscription payment
}

type BookingService interface {
	Create(ctx context.Context, p CreateBookingParams) (*models.Booking, error)
	Cancel(ctx context.Context, bookingID, actingMemberID uint) (*models.Booking, error)
	StaffCancel(ctx context.Context, bookingID uint, p StaffCancelParams) (*models.Booking, error)
	UpdateParticipants(ctx context.Context, bookingID, actorID uint, staff bool, memberIDs []uint) (*models.Booking, error)
	Get(ctx context.Context, id uint) (*models.Booking, error)
}

type bookingService struct {
	bookingRepo     repository.BookingRepository
	spaceRepo       repository.SpaceRepository
	subRepo         repository.SubscriptionRepository
	tariffRepo      repository.TariffRepository
	transactionRepo repository.TransactionRepository
	subscriptions   SubscriptionService
	ledger          Ledger
	scheduler       *Scheduler
	publisher       EventPublisher
	cancelBefore    time.Duration
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	spaceRepo repository.SpaceRepository,
	subRepo repository.SubscriptionRepository,
	tariffRepo repository.TariffRepository,
	transactionRepo repository.TransactionRepository,
	subscriptions SubscriptionService,
	ledger Ledger,
	scheduler *Scheduler,
	publisher EventPublisher,
	cancelBeforeHours int,
) BookingService {
	return &bookingService{
		bookingRepo:     bookingRepo,
		spaceRepo:       spaceRepo,
		subRepo:         subRepo,
		tariffRepo:      tariffRepo,
		transactionRepo: transactionRepo,
		subscriptions:   subscriptions,
		ledger:          ledger,
		scheduler:       scheduler,
		publisher:       publisher,
		cancelBefore:    time.Duration(cancelBeforeHours) * time.Hour,
	}
}

// Create books a slot, pays for it, and links participants as one atomic
// unit. Any failure, including an insufficient balance or minute pool at the
// very last step, rolls back every row written so far.
func (s *bookingService) Create(ctx context.Context, p CreateBookingParams) (*models.Booking, error) {
	if err := s.scheduler.ValidateSlot(p.StartTime, p.EndTime); err != nil {
		return nil, err
	}

	var result *models.Booking

	err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The space row lock serializes every create on this space, so the
		// overlap check below cannot race a concurrent insert.
		space, err := s.spaceRepo.FindByIDForUpdate(ctx, tx, p.SpaceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSpaceNotFound
			}
			return err
		}
		if !space.Active {
			return ErrSpaceNotFound
		}

		if err := s.scheduler.EnsureAvailable(ctx, tx, p.SpaceID, p.StartTime, p.EndTime, 0); err != nil {
			return err
		}

		booking := &models.Booking{
			SpaceID:   p.SpaceID,
			MemberID:  p.MemberID,
			Type:      p.Type,
			StartTime: p.StartTime,
			EndTime:   p.EndTime,
			Status:    models.StatusConfirmed,
		}

		switch p.Type {
		case models.BookingSubscription:
			if err := s.createOnSubscription(ctx, tx, booking, p.SubscriptionID); err != nil {
				return err
			}
		case models.BookingOneTime:
			if err := s.createOneTime(ctx, tx, booking, p.TariffID); err != nil {
				return err
			}
		default:
			return fmt.Errorf("booking: unsupported type %q", p.Type)
		}

		extras := dedupeParticipants(p.ParticipantIDs, p.MemberID)
		if len(extras) > 0 {
			if err := s.bookingRepo.ReplaceParticipants(ctx, tx, booking.ID, extras); err != nil {
				return err
			}
		}

		result = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish("booking.confirmed", result)
	return result, nil
}

func (s *bookingService) createOnSubscription(ctx context.Context, tx *gorm.DB, booking *models.Booking, subscriptionID uint) error {
	sub, err := s.subRepo.FindByIDForUpdate(ctx, tx, subscriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubscriptionNotEligible
		}
		return err
	}
	if sub.MemberID != booking.MemberID || sub.Status != models.SubActive || sub.ExpiredByDate(time.Now()) {
		return ErrSubscriptionNotEligible
	}

	minutes := booking.DurationMinutes()
	if !sub.Unlimited() && sub.RemainingMinutes < minutes {
		return ErrInsufficientMinutes
	}

	booking.SubscriptionID = &sub.ID
	if err := s.bookingRepo.Create(ctx, tx, booking); err != nil {
		return err
	}
	return s.subscriptions.DrawDown(ctx, tx, sub, minutes)
}

func (s *bookingService) createOneTime(ctx context.Context, tx *gorm.DB, booking *models.Booking, tariffID uint) error {
	tariff, err := s.tariffRepo.FindByID(ctx, tariffID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTariffNotFound
		}
		return err
	}
	if tariff.Type != models.TariffHourly || !tariff.Active {
		return ErrTariffNotEligible
	}

	minutes := booking.DurationMinutes()
	price := hourlyPrice(tariff.Price, minutes)

	if err := s.bookingRepo.Create(ctx, tx, booking); err != nil {
		return err
	}

	desc := fmt.Sprintf("Booking #%d: space %d, %s, %d min at tariff %q",
		booking.ID, booking.SpaceID, booking.StartTime.Format("2006-01-02 15:04"), minutes, tariff.Name)
	payment, err := s.ledger.Charge(ctx, tx, booking.MemberID, price, models.KindPayment, desc)
	if err != nil {
		return err
	}

	return s.bookingRepo.CreateOneOff(ctx, tx, &models.OneOff{
		BookingID:     booking.ID,
		MemberID:      booking.MemberID,
		TariffID:      tariff.ID,
		Minutes:       minutes,
		TransactionID: &payment.ID,
	})
}

// hourlyPrice bills minutes at an hourly rate, rounded half-up to cents.
func hourlyPrice(pricePerHour decimal.Decimal, minutes int) decimal.Decimal {
	return pricePerHour.
		Mul(decimal.NewFromInt(int64(minutes))).
		Div(decimal.NewFromInt(60)).
		Round(2)
}

// Cancel is the member-initiated path: creator or participant, before the
// booking starts, with the configured lead time in hand. It never refunds
// money or returns minutes; that is the staff path.
func (s *bookingService) Cancel(ctx context.Context, bookingID, actingMemberID uint) (*models.Booking, error) {
	var result *models.Booking

	err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if booking.Status == models.StatusCancelled {
			return ErrAlreadyCancelled
		}

		if booking.MemberID != actingMemberID {
			participant, err := s.bookingRepo.IsParticipant(ctx, bookingID, actingMemberID)
			if err != nil {
				return err
			}
			if !participant {
				return ErrNotAuthorized
			}
		}

		now := time.Now()
		if !now.Before(booking.StartTime) || booking.StartTime.Sub(now) < s.cancelBefore {
			return ErrCancelWindowClosed
		}

		if err := s.bookingRepo.UpdateStatus(ctx, tx, bookingID, models.StatusCancelled); err != nil {
			return err
		}
		booking.Status = models.StatusCancelled
		result = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish("booking.cancelled", result)
	return result, nil
}

// StaffCancel has no time-window restriction. Subscription bookings may get
// their minutes back; fix bookings cancel the whole subscription (with an
// optional partial refund of its payment); one_time bookings may get the
// original charge refunded.
func (s *bookingService) StaffCancel(ctx context.Context, bookingID uint, p StaffCancelParams) (*models.Booking, error) {
	var result *models.Booking

	err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if booking.Status == models.StatusCancelled {
			return ErrAlreadyCancelled
		}

		switch booking.Type {
		case models.BookingSubscription:
			if err := s.staffCancelSubscription(ctx, tx, booking, p); err != nil {
				return err
			}
		case models.BookingOneTime:
			if err := s.staffCancelOneTime(ctx, tx, booking, p); err != nil {
				return err
			}
		}

		booking.Status = models.StatusCancelled
		result = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish("booking.cancelled", result)
	return result, nil
}

func (s *bookingService) staffCancelSubscription(ctx context.Context, tx *gorm.DB, booking *models.Booking, p StaffCancelParams) error {
	if booking.SubscriptionID == nil {
		return s.bookingRepo.UpdateStatus(ctx, tx, booking.ID, models.StatusCancelled)
	}

	sub, err := s.subRepo.FindByIDForUpdate(ctx, tx, *booking.SubscriptionID)
	if err != nil {
		return err
	}

	tariff, err := s.tariffRepo.FindByID(ctx, sub.TariffID)
	if err != nil {
		return err
	}

	// A fix booking is the subscription's reservation itself: cancelling it
	// cancels the subscription, which cascades back to this booking row.
	if tariff.Type == models.TariffFixed {
		_, err := s.subscriptions.CancelInTx(ctx, tx, sub.ID, p.RefundAmount)
		return err
	}

	if p.ReturnMinutes && !sub.Unlimited() {
		if err := s.subRepo.AddMinutes(ctx, tx, sub.ID, booking.DurationMinutes()); err != nil {
			return err
		}
	}
	return s.bookingRepo.UpdateStatus(ctx, tx, booking.ID, models.StatusCancelled)
}

func (s *bookingService) staffCancelOneTime(ctx context.Context, tx *gorm.DB, booking *models.Booking, p StaffCancelParams) error {
	if p.ReturnMoney {
		oneOff, err := s.bookingRepo.FindOneOffByBooking(ctx, tx, booking.ID)
		if err != nil {
			return err
		}
		if oneOff.TransactionID != nil {
			payment, err := s.transactionRepo.FindByID(ctx, *oneOff.TransactionID)
			if err != nil {
				return err
			}
			desc := fmt.Sprintf("Refund for booking #%d", booking.ID)
			if _, err := s.ledger.Charge(ctx, tx, booking.MemberID, payment.Amount, models.KindRefund, desc); err != nil {
				return err
			}
		}
	}
	return s.bookingRepo.UpdateStatus(ctx, tx, booking.ID, models.StatusCancelled)
}

// UpdateParticipants replaces the full participant set. Member path requires
// the creator; staff may edit any booking. Cancelled bookings are frozen.
func (s *bookingService) UpdateParticipants(ctx context.Context, bookingID, actorID uint, staff bool, memberIDs []uint) (*models.Booking, error) {
	var result *models.Booking

	err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if booking.EffectiveStatus(time.Now()) != models.StatusConfirmed {
			return ErrAlreadyCancelled
		}
		if !staff && booking.MemberID != actorID {
			return ErrNotAuthorized
		}

		extras := dedupeParticipants(memberIDs, booking.MemberID)
		if err := s.bookingRepo.ReplaceParticipants(ctx, tx, bookingID, extras); err != nil {
			return err
		}
		result = booking
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.bookingRepo.FindByID(ctx, result.ID)
}

func (s *bookingService) Get(ctx context.Context, id uint) (*models.Booking, error) {
	booking, err := s.bookingRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

func (s *bookingService) publish(routingKey string, payload any) {
	if s.publisher != nil {
		_ = s.publisher.Publish(routingKey, payload)
	}
}

func dedupeParticipants(ids []uint, creatorID uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == creatorID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
