package service

import (
	"context"
	"time"

	"github.com/coworkly/coworking-core/internal/repository"
	"gorm.io/gorm"
)

// Scheduler validates booking intervals against the slot grid and detects
// space/time conflicts. It has no side effects; conflict checks must run
// inside the transaction that holds the space row lock.
type Scheduler struct {
	slotMinutes int
	bookingRepo repository.BookingRepository
}

func NewScheduler(slotMinutes int, bookingRepo repository.BookingRepository) *Scheduler {
	return &Scheduler{slotMinutes: slotMinutes, bookingRepo: bookingRepo}
}

// ValidateSlot enforces the slot grid: end after start, both boundaries
// aligned to the granularity, duration an exact multiple of it.
func (s *Scheduler) ValidateSlot(start, end time.Time) error {
	if !end.After(start) {
		return ErrInvalidSlot
	}
	if !s.aligned(start) || !s.aligned(end) {
		return ErrInvalidSlot
	}
	if int(end.Sub(start)/time.Minute)%s.slotMinutes != 0 {
		return ErrInvalidSlot
	}
	return nil
}

func (s *Scheduler) aligned(t time.Time) bool {
	if t.Second() != 0 || t.Nanosecond() != 0 {
		return false
	}
	minutesOfDay := t.Hour()*60 + t.Minute()
	return minutesOfDay%s.slotMinutes == 0
}

// EnsureAvailable rejects the interval if any confirmed booking on the space
// overlaps it. Intervals are half-open, so a booking ending exactly at start
// (or starting exactly at end) is not a conflict. excludeID lets an edit
// ignore its own row; pass 0 on create.
func (s *Scheduler) EnsureAvailable(ctx context.Context, tx *gorm.DB, spaceID uint, start, end time.Time, excludeID uint) error {
	count, err := s.bookingRepo.CountOverlapping(ctx, tx, spaceID, start, end, excludeID)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrSlotConflict
	}
	return nil
}
