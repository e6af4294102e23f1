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

// EventPublisher is the outbound side of the RabbitMQ topic exchange.
// Services treat a nil publisher as "don't publish" so unit tests and
// offline runs need no broker.
type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

type IssueParams struct {
	MemberID         uint
	TariffID         uint
	StartDate        time.Time
	EndDate          time.Time
	RemainingMinutes int
}

type SubscriptionService interface {
	Issue(ctx context.Context, p IssueParams) (*models.Subscription, error)
	IssueWithPayment(ctx context.Context, p IssueParams) (*models.Subscription, error)
	DrawDown(ctx context.Context, tx *gorm.DB, sub *models.Subscription, minutes int) error
	SweepExpired(ctx context.Context) error
	Cancel(ctx context.Context, subscriptionID uint, refundAmount decimal.Decimal) (*models.Subscription, error)
	CancelInTx(ctx context.Context, tx *gorm.DB, subscriptionID uint, refundAmount decimal.Decimal) (*models.Subscription, error)
	Get(ctx context.Context, id uint) (*models.Subscription, error)
	ListByMember(ctx context.Context, memberID uint) ([]models.Subscription, error)
}

type subscriptionService struct {
	subRepo         repository.SubscriptionRepository
	tariffRepo      repository.TariffRepository
	spaceRepo       repository.SpaceRepository
	bookingRepo     repository.BookingRepository
	transactionRepo repository.TransactionRepository
	ledger          Ledger
	scheduler       *Scheduler
	publisher       EventPublisher
}

func NewSubscriptionService(
	subRepo repository.SubscriptionRepository,
	tariffRepo repository.TariffRepository,
	spaceRepo repository.SpaceRepository,
	bookingRepo repository.BookingRepository,
	transactionRepo repository.TransactionRepository,
	ledger Ledger,
	scheduler *Scheduler,
	publisher EventPublisher,
) SubscriptionService {
	return &subscriptionService{
		subRepo:         subRepo,
		tariffRepo:      tariffRepo,
		spaceRepo:       spaceRepo,
		bookingRepo:     bookingRepo,
		transactionRepo: transactionRepo,
		ledger:          ledger,
		scheduler:       scheduler,
		publisher:       publisher,
	}
}

func (s *subscriptionService) Issue(ctx context.Context, p IssueParams) (*models.Subscription, error) {
	var result *models.Subscription

	err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.create(ctx, tx, p)
		if err != nil {
			return err
		}
		result = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish("subscription.issued", result)
	return result, nil
}

// IssueWithPayment issues the subscription and charges the tariff price in
// the same transaction, linking payment to subscription 1:1. A fixed tariff
// bound to one space additionally reserves that space for the whole period
// with a fix booking, which competes in the overlap check like any other.
func (s *subscriptionService) IssueWithPayment(ctx context.Context, p IssueParams) (*models.Subscription, error) {
	var result *models.Subscription

	err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tariff, err := s.tariffRepo.FindByID(ctx, p.TariffID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTariffNotFound
			}
			return err
		}

		sub, err := s.create(ctx, tx, p)
		if err != nil {
			return err
		}

		// Same lock order as booking creation: space row before member row.
		// Both flows can run concurrently for one member and space; taking
		// the locks in the same order keeps them from deadlocking.
		fixed := tariff.Type == models.TariffFixed && tariff.SpaceID != nil
		if fixed {
			if _, err := s.spaceRepo.FindByIDForUpdate(ctx, tx, *tariff.SpaceID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrSpaceNotFound
				}
				return err
			}
		}

		desc := fmt.Sprintf("Subscription #%d: %s (%s - %s)",
			sub.ID, tariff.Name, p.StartDate.Format("2006-01-02"), p.EndDate.Format("2006-01-02"))
		payment, err := s.ledger.Charge(ctx, tx, p.MemberID, tariff.Price, models.KindPayment, desc)
		if err != nil {
			return err
		}
		if err := s.subRepo.SetPaymentTransaction(ctx, tx, sub.ID, payment.ID); err != nil {
			return err
		}
		sub.PaymentTransactionID = &payment.ID

		if fixed {
			if err := s.createFixBooking(ctx, tx, sub, *tariff.SpaceID); err != nil {
				return err
			}
		}

		result = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish("subscription.issued", result)
	return result, nil
}

func (s *subscriptionService) create(ctx context.Context, tx *gorm.DB, p IssueParams) (*models.Subscription, error) {
	tariff, err := s.tariffRepo.FindByID(ctx, p.TariffID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTariffNotFound
		}
		return nil, err
	}
	if !tariff.Active {
		return nil, ErrTariffNotEligible
	}

	sub := &models.Subscription{
		MemberID:         p.MemberID,
		TariffID:         p.TariffID,
		StartDate:        p.StartDate,
		EndDate:          p.EndDate,
		RemainingMinutes: p.RemainingMinutes,
		Status:           models.SubActive,
	}
	if err := s.subRepo.Create(ctx, tx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// createFixBooking reserves the bound space for the subscription's full
// date range, end date inclusive. The caller already holds the space
// row lock.
func (s *subscriptionService) createFixBooking(ctx context.Context, tx *gorm.DB, sub *models.Subscription, spaceID uint) error {
	start := startOfDay(sub.StartDate)
	end := startOfDay(sub.EndDate).Add(24 * time.Hour)
	if err := s.scheduler.EnsureAvailable(ctx, tx, spaceID, start, end, 0); err != nil {
		return err
	}

	booking := &models.Booking{
		SpaceID:        spaceID,
		MemberID:       sub.MemberID,
		Type:           models.BookingSubscription,
		StartTime:      start,
		EndTime:        end,
		Status:         models.StatusConfirmed,
		SubscriptionID: &sub.ID,
	}
	return s.bookingRepo.Create(ctx, tx, booking)
}

// DrawDown pays for minutes out of the pool. The caller holds the
// subscription row lock and runs inside its own transaction. The unlimited
// sentinel (0) is never decremented.
func (s *subscriptionService) DrawDown(ctx context.Context, tx *gorm.DB, sub *models.Subscription, minutes int) error {
	if minutes <= 0 {
		return errors.New("subscription: draw-down minutes must be positive")
	}
	if sub.Unlimited() {
		return nil
	}
	if sub.RemainingMinutes < minutes {
		return ErrInsufficientMinutes
	}
	if err := s.subRepo.AddMinutes(ctx, tx, sub.ID, -minutes); err != nil {
		return err
	}
	sub.RemainingMinutes -= minutes
	return nil
}

// SweepExpired lazily transitions active subscriptions past their end date
// to expired. Idempotent; called from every subscription read path.
func (s *subscriptionService) SweepExpired(ctx context.Context) error {
	_, err := s.subRepo.ExpireDue(ctx, startOfDay(time.Now()))
	return err
}

// Cancel transitions the subscription to cancelled from active or expired,
// optionally refunding part of the original payment, and cancels every
// confirmed booking still linked to it. One transaction: the booking ids are
// gathered first, then all rows flip together.
func (s *subscriptionService) Cancel(ctx context.Context, subscriptionID uint, refundAmount decimal.Decimal) (*models.Subscription, error) {
	var result *models.Subscription

	err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.CancelInTx(ctx, tx, subscriptionID, refundAmount)
		if err != nil {
			return err
		}
		result = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish("subscription.cancelled", result)
	return result, nil
}

// CancelInTx is the cancellation body for callers that already hold a
// transaction, such as a staff cancel of a fix booking.
func (s *subscriptionService) CancelInTx(ctx context.Context, tx *gorm.DB, subscriptionID uint, refundAmount decimal.Decimal) (*models.Subscription, error) {
	sub, err := s.subRepo.FindByIDForUpdate(ctx, tx, subscriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	if sub.Status == models.SubCancelled {
		return nil, ErrAlreadyCancelled
	}

	if refundAmount.IsPositive() {
		if err := s.refund(ctx, tx, sub, refundAmount); err != nil {
			return nil, err
		}
	}

	linked, err := s.bookingRepo.ListConfirmedBySubscription(ctx, tx, sub.ID)
	if err != nil {
		return nil, err
	}
	for _, b := range linked {
		if err := s.bookingRepo.UpdateStatus(ctx, tx, b.ID, models.StatusCancelled); err != nil {
			return nil, err
		}
	}

	if err := s.subRepo.UpdateStatus(ctx, tx, sub.ID, models.SubCancelled); err != nil {
		return nil, err
	}
	sub.Status = models.SubCancelled
	return sub, nil
}

func (s *subscriptionService) refund(ctx context.Context, tx *gorm.DB, sub *models.Subscription, amount decimal.Decimal) error {
	if sub.PaymentTransactionID == nil {
		return ErrRefundExceedsPayment
	}
	payment, err := s.transactionRepo.FindByID(ctx, *sub.PaymentTransactionID)
	if err != nil {
		return err
	}
	if amount.GreaterThan(payment.Amount) {
		return ErrRefundExceedsPayment
	}
	desc := fmt.Sprintf("Refund for subscription #%d", sub.ID)
	_, err = s.ledger.Charge(ctx, tx, sub.MemberID, amount, models.KindRefund, desc)
	return err
}

func (s *subscriptionService) Get(ctx context.Context, id uint) (*models.Subscription, error) {
	if err := s.SweepExpired(ctx); err != nil {
		return nil, err
	}
	sub, err := s.subRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return sub, nil
}

func (s *subscriptionService) ListByMember(ctx context.Context, memberID uint) ([]models.Subscription, error) {
	if err := s.SweepExpired(ctx); err != nil {
		return nil, err
	}
	return s.subRepo.ListByMember(ctx, memberID)
}

func (s *subscriptionService) publish(routingKey string, payload any) {
	if s.publisher != nil {
		_ = s.publisher.Publish(routingKey, payload)
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
