package dto

import (
	"time"

	"github.com/coworkly/coworking-core/internal/models"
	"github.com/shopspring/decimal"
)

type BookingResponse struct {
	ID             uint                 `json:"id"`
	SpaceID        uint                 `json:"space_id"`
	MemberID       uint                 `json:"member_id"`
	Type           models.BookingType   `json:"type"`
	StartTime      time.Time            `json:"start_time"`
	EndTime        time.Time            `json:"end_time"`
	Status         models.BookingStatus `json:"status"`
	SubscriptionID *uint                `json:"subscription_id,omitempty"`
	ParticipantIDs []uint               `json:"participant_ids"`
	CreatedAt      time.Time            `json:"created_at"`
}

type SubscriptionResponse struct {
	ID                   uint                      `json:"id"`
	MemberID             uint                      `json:"member_id"`
	TariffID             uint                      `json:"tariff_id"`
	StartDate            time.Time                 `json:"start_date"`
	EndDate              time.Time                 `json:"end_date"`
	RemainingMinutes     int                       `json:"remaining_minutes"`
	Status               models.SubscriptionStatus `json:"status"`
	PaymentTransactionID *uint                     `json:"payment_transaction_id,omitempty"`
	CreatedAt            time.Time                 `json:"created_at"`
}

type BalanceResponse struct {
	MemberID   uint            `json:"member_id"`
	Balance    decimal.Decimal `json:"balance"`
	LedgerSum  decimal.Decimal `json:"ledger_sum"`
	Consistent bool            `json:"consistent"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func ToBookingResponse(b *models.Booking) BookingResponse {
	participantIDs := make([]uint, 0, len(b.Participants))
	for _, p := range b.Participants {
		participantIDs = append(participantIDs, p.MemberID)
	}
	return BookingResponse{
		ID:             b.ID,
		SpaceID:        b.SpaceID,
		MemberID:       b.MemberID,
		Type:           b.Type,
		StartTime:      b.StartTime,
		EndTime:        b.EndTime,
		Status:         b.EffectiveStatus(time.Now()),
		SubscriptionID: b.SubscriptionID,
		ParticipantIDs: participantIDs,
		CreatedAt:      b.CreatedAt,
	}
}

func ToSubscriptionResponse(s *models.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:                   s.ID,
		MemberID:             s.MemberID,
		TariffID:             s.TariffID,
		StartDate:            s.StartDate,
		EndDate:              s.EndDate,
		RemainingMinutes:     s.RemainingMinutes,
		Status:               s.Status,
		PaymentTransactionID: s.PaymentTransactionID,
		CreatedAt:            s.CreatedAt,
	}
}
