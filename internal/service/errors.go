package service

import "errors"

// Business failures surfaced to handlers as typed sentinels. The HTTP layer
// maps them to status codes; anything else is treated as an infrastructure
// error and aborts with 500.
var (
	ErrInvalidSlot             = errors.New("booking interval is not aligned to the slot grid")
	ErrSlotConflict            = errors.New("space is already booked for this interval")
	ErrInsufficientBalance     = errors.New("member balance is insufficient")
	ErrInsufficientMinutes     = errors.New("subscription minute pool is insufficient")
	ErrSubscriptionNotEligible = errors.New("subscription is not active or not owned by this member")
	ErrTariffNotEligible       = errors.New("tariff type does not allow this operation")
	ErrNotAuthorized           = errors.New("actor is not the creator, a participant, or staff")
	ErrAlreadyCancelled        = errors.New("already cancelled")
	ErrRefundExceedsPayment    = errors.New("refund amount exceeds the original payment")
	ErrCancelWindowClosed      = errors.New("cancellation window has closed")

	ErrMemberNotFound       = errors.New("member not found")
	ErrSpaceNotFound        = errors.New("space not found")
	ErrTariffNotFound       = errors.New("tariff not found")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)
