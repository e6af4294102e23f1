package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateBookingRequest struct {
	MemberID       uint      `json:"member_id" validate:"required"`
	SpaceID        uint      `json:"space_id" validate:"required"`
	Type           string    `json:"type" validate:"required,oneof=one_time subscription"`
	StartTime      time.Time `json:"start_time" validate:"required"`
	EndTime        time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	SubscriptionID uint      `json:"subscription_id,omitempty"`
	TariffID       uint      `json:"tariff_id,omitempty"`
	ParticipantIDs []uint    `json:"participant_ids,omitempty"`
}

type CancelBookingRequest struct {
	MemberID uint `json:"member_id" validate:"required"`
}

type StaffCancelBookingRequest struct {
	ReturnMinutes bool            `json:"return_minutes"`
	ReturnMoney   bool            `json:"return_money"`
	RefundAmount  decimal.Decimal `json:"refund_amount"`
}

type UpdateParticipantsRequest struct {
	ActorID        uint   `json:"actor_id" validate:"required"`
	Staff          bool   `json:"staff"`
	ParticipantIDs []uint `json:"participant_ids"`
}

type IssueSubscriptionRequest struct {
	MemberID         uint      `json:"member_id" validate:"required"`
	TariffID         uint      `json:"tariff_id" validate:"required"`
	StartDate        time.Time `json:"start_date" validate:"required"`
	EndDate          time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
	RemainingMinutes int       `json:"remaining_minutes" validate:"gte=0"`
}

type CancelSubscriptionRequest struct {
	RefundAmount decimal.Decimal `json:"refund_amount"`
}
