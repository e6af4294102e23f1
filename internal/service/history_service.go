package service

import (
	"context"
	"time"

	"github.com/coworkly/coworking-core/internal/models"
	"github.com/coworkly/coworking-core/internal/repository"
)

// TimelineEntry is one booking on the occupancy timeline. For bookings the
// viewer is not involved in, identity fields are redacted: the slot shows as
// occupied, but not by whom. That is a privacy rule, not an access failure.
type TimelineEntry struct {
	ID             uint                 `json:"id"`
	SpaceID        uint                 `json:"space_id"`
	StartTime      time.Time            `json:"start_time"`
	EndTime        time.Time            `json:"end_time"`
	Status         models.BookingStatus `json:"status"`
	Type           models.BookingType   `json:"type"`
	Own            bool                 `json:"own"`
	MemberID       uint                 `json:"member_id,omitempty"`
	ParticipantIDs []uint               `json:"participant_ids,omitempty"`
}

// MemberHistory partitions a member's bookings and subscriptions into what
// is still ahead or running versus what has ended, each newest-first.
type MemberHistory struct {
	CurrentBookings       []models.Booking      `json:"current_bookings"`
	ArchivedBookings      []models.Booking      `json:"archived_bookings"`
	CurrentSubscriptions  []models.Subscription `json:"current_subscriptions"`
	ArchivedSubscriptions []models.Subscription `json:"archived_subscriptions"`
}

type ReadModelService interface {
	Timeline(ctx context.Context, from, to time.Time, viewerID uint) ([]TimelineEntry, error)
	History(ctx context.Context, memberID uint) (*MemberHistory, error)
	Spaces(ctx context.Context) ([]models.Space, error)
}

type readModelService struct {
	bookingRepo   repository.BookingRepository
	spaceRepo     repository.SpaceRepository
	subscriptions SubscriptionService
}

func NewReadModelService(bookingRepo repository.BookingRepository, spaceRepo repository.SpaceRepository, subscriptions SubscriptionService) ReadModelService {
	return &readModelService{bookingRepo: bookingRepo, spaceRepo: spaceRepo, subscriptions: subscriptions}
}

// Spaces lists the bookable spaces currently synced from the catalog.
func (s *readModelService) Spaces(ctx context.Context) ([]models.Space, error) {
	return s.spaceRepo.ListActive(ctx)
}

func (s *readModelService) Timeline(ctx context.Context, from, to time.Time, viewerID uint) ([]TimelineEntry, error) {
	bookings, err := s.bookingRepo.FindInRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	entries := make([]TimelineEntry, 0, len(bookings))
	for i := range bookings {
		entries = append(entries, toTimelineEntry(&bookings[i], viewerID, now))
	}
	return entries, nil
}

func toTimelineEntry(b *models.Booking, viewerID uint, now time.Time) TimelineEntry {
	entry := TimelineEntry{
		ID:        b.ID,
		SpaceID:   b.SpaceID,
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		Status:    b.EffectiveStatus(now),
		Type:      b.Type,
	}

	involved := b.MemberID == viewerID
	participantIDs := make([]uint, 0, len(b.Participants))
	for _, p := range b.Participants {
		participantIDs = append(participantIDs, p.MemberID)
		if p.MemberID == viewerID {
			involved = true
		}
	}

	if involved {
		entry.Own = true
		entry.MemberID = b.MemberID
		entry.ParticipantIDs = participantIDs
	}
	return entry
}

func (s *readModelService) History(ctx context.Context, memberID uint) (*MemberHistory, error) {
	// Lazy sweep keeps subscription statuses honest on every read.
	subs, err := s.subscriptions.ListByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	bookings, err := s.bookingRepo.ListInvolvingMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	h := &MemberHistory{
		CurrentBookings:       []models.Booking{},
		ArchivedBookings:      []models.Booking{},
		CurrentSubscriptions:  []models.Subscription{},
		ArchivedSubscriptions: []models.Subscription{},
	}

	for _, b := range bookings {
		b.Status = b.EffectiveStatus(now)
		if b.Status == models.StatusConfirmed {
			h.CurrentBookings = append(h.CurrentBookings, b)
		} else {
			h.ArchivedBookings = append(h.ArchivedBookings, b)
		}
	}

	for _, sub := range subs {
		if sub.Status == models.SubActive {
			h.CurrentSubscriptions = append(h.CurrentSubscriptions, sub)
		} else {
			h.ArchivedSubscriptions = append(h.ArchivedSubscriptions, sub)
		}
	}
	return h, nil
}
