package models

import (
	"fmt"
	"strings"
	"time"
)

type SubscriptionStatus string

const (
	SubActive    SubscriptionStatus = "active"
	SubExpired   SubscriptionStatus = "expired"
	SubCancelled SubscriptionStatus = "cancelled"
)

func ParseSubscriptionStatus(s string) (SubscriptionStatus, error) {
	switch SubscriptionStatus(strings.ToLower(strings.TrimSpace(s))) {
	case SubActive:
		return SubActive, nil
	case SubExpired:
		return SubExpired, nil
	case SubCancelled:
		return SubCancelled, nil
	}
	return "", fmt.Errorf("unknown subscription status %q", s)
}

// Subscription is a member's minute pool under a tariff.
// RemainingMinutes == 0 is the unlimited sentinel and is never decremented;
// a finite pool only shrinks until refill or cancellation.
// PaymentTransactionID links the issuing payment 1:1 when one was made.
type Subscription struct {
	ID                   uint               `gorm:"primaryKey" json:"id"`
	MemberID             uint               `gorm:"not null;index" json:"member_id"`
	TariffID             uint               `gorm:"not null;index" json:"tariff_id"`
	StartDate            time.Time          `gorm:"not null" json:"start_date"`
	EndDate              time.Time          `gorm:"not null" json:"end_date"`
	RemainingMinutes     int                `gorm:"not null;default:0" json:"remaining_minutes"`
	Status               SubscriptionStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	PaymentTransactionID *uint              `json:"payment_transaction_id,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`

	Tariff *Tariff `gorm:"foreignKey:TariffID" json:"tariff,omitempty"`
}

// Unlimited reports whether the minute pool is the unlimited sentinel.
func (s *Subscription) Unlimited() bool {
	return s.RemainingMinutes == 0
}

// ExpiredByDate reports whether the subscription has run past its end
// date even if the lazy sweep has not flipped its status yet.
func (s *Subscription) ExpiredByDate(now time.Time) bool {
	return s.EndDate.Before(truncateToDay(now))
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
