package models

import (
	"fmt"
	"strings"
	"time"
)

type BookingStatus string

const (
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

func ParseBookingStatus(s string) (BookingStatus, error) {
	switch BookingStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusConfirmed:
		return StatusConfirmed, nil
	case StatusCancelled:
		return StatusCancelled, nil
	case StatusCompleted:
		return StatusCompleted, nil
	}
	return "", fmt.Errorf("unknown booking status %q", s)
}

type BookingType string

const (
	BookingOneTime      BookingType = "one_time"
	BookingSubscription BookingType = "subscription"
)

func ParseBookingType(s string) (BookingType, error) {
	switch BookingType(strings.ToLower(strings.TrimSpace(s))) {
	case BookingOneTime:
		return BookingOneTime, nil
	case BookingSubscription:
		return BookingSubscription, nil
	}
	return "", fmt.Errorf("unknown booking type %q", s)
}

// Booking occupies a space for the half-open interval [StartTime, EndTime),
// both boundaries quantized to the slot granularity. Completed is derived
// at read time via EffectiveStatus and never written to the row.
type Booking struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	SpaceID        uint          `gorm:"not null;index" json:"space_id"`
	MemberID       uint          `gorm:"not null;index" json:"member_id"`
	Type           BookingType   `gorm:"type:varchar(20);not null" json:"type"`
	StartTime      time.Time     `gorm:"not null" json:"start_time"`
	EndTime        time.Time     `gorm:"not null" json:"end_time"`
	Status         BookingStatus `gorm:"type:varchar(20);not null;default:'confirmed'" json:"status"`
	SubscriptionID *uint         `gorm:"index" json:"subscription_id,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`

	Participants []Participant `gorm:"foreignKey:BookingID" json:"participants,omitempty"`
}

// EffectiveStatus maps a confirmed booking whose interval has fully
// elapsed to completed. Stored status is authoritative otherwise.
func (b *Booking) EffectiveStatus(now time.Time) BookingStatus {
	if b.Status == StatusConfirmed && !b.EndTime.After(now) {
		return StatusCompleted
	}
	return b.Status
}

// DurationMinutes is the billable length of the interval.
func (b *Booking) DurationMinutes() int {
	return int(b.EndTime.Sub(b.StartTime) / time.Minute)
}

// Participant joins extra members to a booking. The creator is implicit
// and never stored as a participant row.
type Participant struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	BookingID uint `gorm:"not null;uniqueIndex:idx_booking_participant" json:"booking_id"`
	MemberID  uint `gorm:"not null;uniqueIndex:idx_booking_participant" json:"member_id"`
}

// OneOff is the billable unit of a one_time booking: which tariff was
// applied, for how many minutes, and the payment transaction that covers it.
type OneOff struct {
	ID            uint  `gorm:"primaryKey" json:"id"`
	BookingID     uint  `gorm:"not null;uniqueIndex" json:"booking_id"`
	MemberID      uint  `gorm:"not null" json:"member_id"`
	TariffID      uint  `gorm:"not null" json:"tariff_id"`
	Minutes       int   `gorm:"not null" json:"minutes"`
	TransactionID *uint `json:"transaction_id,omitempty"`
}
