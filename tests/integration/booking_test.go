//go:build integration

package integration

import (
	"sync"
	"testing"
	"time"

	"github.com/coworkly/coworking-core/internal/models"
	"github.com/coworkly/coworking-core/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two concurrent creates on the same space and overlapping intervals:
// exactly one wins, the other gets a slot conflict.
func TestConcurrentOverlappingBookings(t *testing.T) {
	cleanTables()
	svcs := newServices()

	space := createTestSpace(t, "Meeting Room A")
	tariff := createTestTariff(t, "Hourly", models.TariffHourly, "100.00", nil)
	alice := createTestMember(t, "alice", "1000.00")
	bob := createTestMember(t, "bob", "1000.00")

	start, end := slotAt(1, 10, 90)

	attempts := []uint{alice.ID, bob.ID}
	var wg sync.WaitGroup
	errs := make([]error, len(attempts))

	wg.Add(len(attempts))
	for i, memberID := range attempts {
		go func(i int, memberID uint) {
			defer wg.Done()
			_, errs[i] = svcs.bookings.Create(t.Context(), service.CreateBookingParams{
				MemberID:  memberID,
				SpaceID:   space.ID,
				Type:      models.BookingOneTime,
				TariffID:  tariff.ID,
				StartTime: start,
				EndTime:   end,
			})
		}(i, memberID)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, service.ErrSlotConflict)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one of two racing bookings should win")

	var confirmed int64
	testDB.Model(&models.Booking{}).
		Where("space_id = ? AND status = ?", space.ID, models.StatusConfirmed).
		Count(&confirmed)
	assert.Equal(t, int64(1), confirmed)
}

// Half-open intervals: [10:00,11:00) and [11:00,12:00) touch but do not overlap.
func TestTouchingIntervalsBothSucceed(t *testing.T) {
	cleanTables()
	svcs := newServices()

	space := createTestSpace(t, "Meeting Room B")
	tariff := createTestTariff(t, "Hourly", models.TariffHourly, "100.00", nil)
	alice := createTestMember(t, "alice", "1000.00")
	bob := createTestMember(t, "bob", "1000.00")

	startA, endA := slotAt(1, 10, 60)
	startB, endB := slotAt(1, 11, 60)
	require.Equal(t, endA, startB)

	_, err := svcs.bookings.Create(t.Context(), service.CreateBookingParams{
		MemberID: alice.ID, SpaceID: space.ID, Type: models.BookingOneTime,
		TariffID: tariff.ID, StartTime: startA, EndTime: endA,
	})
	require.NoError(t, err)

	_, err = svcs.bookings.Create(t.Context(), service.CreateBookingParams{
		MemberID: bob.ID, SpaceID: space.ID, Type: models.BookingOneTime,
		TariffID: tariff.ID, StartTime: startB, EndTime: endB,
	})
	assert.NoError(t, err, "touching at a boundary is not a conflict")
}

// Day Pass scenario: 200.00/hr, 90 minutes, balance 500.00 → charge 300.00,
// balance 200.00, one payment transaction, booking confirmed.
func TestOneTimeBookingChargesHourlyPrice(t *testing.T) {
	cleanTables()
	svcs := newServices()

	space := createTestSpace(t, "Space 7")
	tariff := createTestTariff(t, "Day Pass", models.TariffHourly, "200.00", nil)
	member := createTestMember(t, "carol", "500.00")

	start, end := slotAt(1, 10, 90)

	booking, err := svcs.bookings.Create(t.Context(), service.CreateBookingParams{
		MemberID: member.ID, SpaceID: space.ID, Type: models.BookingOneTime,
		TariffID: tariff.ID, StartTime: start, EndTime: end,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, booking.Status)

	var updated models.Member
	require.NoError(t, testDB.First(&updated, member.ID).Error)
	assert.True(t, updated.Balance.Equal(decimal.RequireFromString("200.00")),
		"balance should be 200.00, got %s", updated.Balance)

	var txs []models.Transaction
	require.NoError(t, testDB.Where("member_id = ?", member.ID).Find(&txs).Error)
	require.Len(t, txs, 1)
	assert.Equal(t, models.KindPayment, txs[0].Kind)
	assert.True(t, txs[0].Amount.Equal(decimal.RequireFromString("300.00")))

	var oneOff models.OneOff
	require.NoError(t, testDB.Where("booking_id = ?", booking.ID).First(&oneOff).Error)
	assert.Equal(t, 90, oneOff.Minutes)
	require.NotNil(t, oneOff.TransactionID)
	assert.Equal(t, txs[0].ID, *oneOff.TransactionID)
}

// A create that fails at the charge step leaves no booking row, no one-off
// row, no transaction row, and the balance untouched.
func TestCreateRollsBackOnInsufficientBalance(t *testing.T) {
	cleanTables()
	svcs := newServices()

	space := createTestSpace(t, "Space 9")
	tariff := createTestTariff(t, "Premium", models.TariffHourly, "400.00", nil)
	member := createTestMember(t, "dave", "100.00")

	start, end := slotAt(1, 10, 90)

	_, err := svcs.bookings.Create(t.Context(), service.CreateBookingParams{
		MemberID: member.ID, SpaceID: space.ID, Type: models.BookingOneTime,
		TariffID: tariff.ID, StartTime: start, EndTime: end,
	})
	assert.ErrorIs(t, err, service.ErrInsufficientBalance)

	var bookings, oneOffs, txs int64
	testDB.Model(&models.Booking{}).Count(&bookings)
	testDB.Model(&models.OneOff{}).Count(&oneOffs)
	testDB.Model(&models.Transaction{}).Count(&txs)
	assert.Zero(t, bookings, "no partial booking")
	assert.Zero(t, oneOffs, "no partial one-off")
	assert.Zero(t, txs, "no partial transaction")

	var updated models.Member
	require.NoError(t, testDB.First(&updated, member.ID).Error)
	assert.True(t, updated.Balance.Equal(decimal.RequireFromString("100.00")))
}

func TestInvalidSlotRejected(t *testing.T) {
	cleanTables()
	svcs := newServices()

	space := createTestSpace(t, "Space 11")
	tariff := createTestTariff(t, "Hourly", models.TariffHourly, "100.00", nil)
	member := createTestMember(t, "erin", "1000.00")

	start, _ := slotAt(1, 10, 60)

	// Off-grid start
	_, err := svcs.bookings.Create(t.Context(), service.CreateBookingParams{
		MemberID: member.ID, SpaceID: space.ID, Type: models.BookingOneTime,
		TariffID: tariff.ID, StartTime: start.Add(7 * time.Minute), EndTime: start.Add(67 * time.Minute),
	})
	assert.ErrorIs(t, err, service.ErrInvalidSlot)

	// End before start
	_, err = svcs.bookings.Create(t.Context(), service.CreateBookingParams{
		MemberID: member.ID, SpaceID: space.ID, Type: models.BookingOneTime,
		TariffID: tariff.ID, StartTime: start, EndTime: start.Add(-time.Hour),
	})
	assert.ErrorIs(t, err, service.ErrInvalidSlot)
}

func TestMemberCancelRules(t *testing.T) {
	cleanTables()
	svcs := newServices()

	space := createTestSpace(t, "Space 13")
	tariff := createTestTariff(t, "Hourly", models.TariffHourly, "100.00", nil)
	creator := createTestMember(t, "frank", "1000.00")
	participant := createTestMember(t, "grace", "1000.00")
	stranger := createTestMember(t, "heidi", "1000.00")

	start, end := slotAt(2, 10, 60)

	booking, err := svcs.bookings.Create(t.Context(), service.CreateBookingParams{
		MemberID: creator.ID, SpaceID: space.ID, Type: models.BookingOneTime,
		TariffID: tariff.ID, StartTime: start, EndTime: end,
		ParticipantIDs: []uint{participant.ID},
	})
	require.NoError(t, err)

	// A bystander cannot cancel.
	_, err = svcs.bookings.Cancel(t.Context(), booking.ID, stranger.ID)
	assert.ErrorIs(t, err, service.ErrNotAuthorized)

	// A participant can.
	cancelled, err := svcs.bookings.Cancel(t.Context(), booking.ID, participant.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	// Cancelling again reports the terminal state and mutates nothing.
	_, err = svcs.bookings.Cancel(t.Context(), booking.ID, creator.ID)
	assert.ErrorIs(t, err, service.ErrAlreadyCancelled)

	// Member cancellation never refunds: the charge stands.
	rec, err := svcs.ledger.Reconcile(t.Context(), creator.ID)
	require.NoError(t, err)
	assert.True(t, rec.Balance.Equal(decimal.RequireFromString("900.00")))
}

func TestCancelWindowEnforced(t *testing.T) {
	cleanTables()
	svcs := newServices()

	space := createTestSpace(t, "Space 15")
	member := createTestMember(t, "ivan", "1000.00")
	tariff := createTestTariff(t, "Pool", models.TariffPackage, "0.00", nil)
	sub := createTestSubscription(t, member.ID, tariff.ID, 0)

	// Booking starting within the 2h lead time.
	start := time.Now().UTC().Truncate(15 * time.Minute).Add(30 * time.Minute)
	end := start.Add(time.Hour)

	booking, err := svcs.bookings.Create(t.Context(), service.CreateBookingParams{
		MemberID: member.ID, SpaceID: space.ID, Type: models.BookingSubscription,
		SubscriptionID: sub.ID, StartTime: start, EndTime: end,
	})
	require.NoError(t, err)

	_, err = svcs.bookings.Cancel(t.Context(), booking.ID, member.ID)
	assert.ErrorIs(t, err, service.ErrCancelWindowClosed)

	var stored models.Booking
	require.NoError(t, testDB.First(&stored, booking.ID).Error)
	assert.Equal(t, models.StatusConfirmed, stored.Status)
}

// Staff cancel of a fix booking cancels the whole subscription: a 150.00
// partial refund is credited and the booking row flips via the cascade.
func TestStaffCancelFixBookingCancelsSubscription(t *testing.T) {
	cleanTables()
	svcs := newServices()

	space := createTestSpace(t, "Office 21")
	tariff := createTestTariff(t, "Private Office", models.TariffFixed, "300.00", &space.ID)
	member := createTestMember(t, "nina", "500.00")

	start := time.Now().UTC().AddDate(0, 0, -1)
	sub, err := svcs.subscriptions.IssueWithPayment(t.Context(), service.IssueParams{
		MemberID:  member.ID,
		TariffID:  tariff.ID,
		StartDate: start,
		EndDate:   start.AddDate(0, 1, 0),
	})
	require.NoError(t, err)

	var standing models.Booking
	require.NoError(t, testDB.Where("subscription_id = ?", sub.ID).First(&standing).Error)

	cancelled, err := svcs.bookings.StaffCancel(t.Context(), standing.ID, service.StaffCancelParams{
		RefundAmount: decimal.RequireFromString("150.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	var storedBooking models.Booking
	require.NoError(t, testDB.First(&storedBooking, standing.ID).Error)
	assert.Equal(t, models.StatusCancelled, storedBooking.Status)

	var storedSub models.Subscription
	require.NoError(t, testDB.First(&storedSub, sub.ID).Error)
	assert.Equal(t, models.SubCancelled, storedSub.Status)

	var refundTx models.Transaction
	require.NoError(t, testDB.
		Where("member_id = ? AND kind = ?", member.ID, models.KindRefund).
		First(&refundTx).Error)
	assert.True(t, refundTx.Amount.Equal(decimal.RequireFromString("150.00")))

	var updated models.Member
	require.NoError(t, testDB.First(&updated, member.ID).Error)
	// 500 - 300 purchase + 150 refund
	assert.True(t, updated.Balance.Equal(decimal.RequireFromString("350.00")),
		"expected 350.00, got %s", updated.Balance)

	// The space is bookable again once the standing reservation is gone.
	hourly := createTestTariff(t, "Hourly", models.TariffHourly, "100.00", nil)
	bStart, bEnd := slotAt(3, 10, 60)
	_, err = svcs.bookings.Create(t.Context(), service.CreateBookingParams{
		MemberID: member.ID, SpaceID: space.ID, Type: models.BookingOneTime,
		TariffID: hourly.ID, StartTime: bStart, EndTime: bEnd,
	})
	assert.NoError(t, err)
}

// Staff cancel with ReturnMinutes restores the drawn-down pool; the
// subscription itself stays active.
func TestStaffCancelReturnsMinutesToPool(t *testing.T) {
	cleanTables()
	svcs := newServices()

	space := createTestSpace(t, "Desk 23")
	tariff := createTestTariff(t, "Starter", models.TariffPackage, "0.00", nil)
	member := createTestMember(t, "oscar", "0.00")
	sub := createTestSubscription(t, member.ID, tariff.ID, 240)

	start, end := slotAt(1, 9, 90)
	booking, err := svcs.bookings.Create(t.Context(), service.CreateBookingParams{
		MemberID: member.ID, SpaceID: space.ID, Type: models.BookingSubscription,
		SubscriptionID: sub.ID, StartTime: start, EndTime: end,
	})
	require.NoError(t, err)

	var drained models.Subscription
	require.NoError(t, testDB.First(&drained, sub.ID).Error)
	require.Equal(t, 150, drained.RemainingMinutes)

	cancelled, err := svcs.bookings.StaffCancel(t.Context(), booking.ID, service.StaffCancelParams{
		ReturnMinutes: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	var restored models.Subscription
	require.NoError(t, testDB.First(&restored, sub.ID).Error)
	assert.Equal(t, 240, restored.RemainingMinutes)
	assert.Equal(t, models.SubActive, restored.Status)
}

// Without ReturnMinutes the drawn-down pool stays spent.
func TestStaffCancelKeepsMinutesByDefault(t *testing.T) {
	cleanTables()
	svcs := newServices()

	space := createTestSpace(t, "Desk 25")
	tariff := createTestTariff(t, "Starter", models.TariffPackage, "0.00", nil)
	member := createTestMember(t, "peggy", "0.00")
	sub := createTestSubscription(t, member.ID, tariff.ID, 240)

	start, end := slotAt(1, 9, 60)
	booking, err := svcs.bookings.Create(t.Context(), service.CreateBookingParams{
		MemberID: member.ID, SpaceID: space.ID, Type: models.BookingSubscription,
		SubscriptionID: sub.ID, StartTime: start, EndTime: end,
	})
	require.NoError(t, err)

	_, err = svcs.bookings.StaffCancel(t.Context(), booking.ID, service.StaffCancelParams{})
	require.NoError(t, err)

	var stored models.Subscription
	require.NoError(t, testDB.First(&stored, sub.ID).Error)
	assert.Equal(t, 180, stored.RemainingMinutes)
}

func TestParticipantsDedupedAndCreatorExcluded(t *testing.T) {
	cleanTables()
	svcs := newServices()

	space := createTestSpace(t, "Space 17")
	tariff := createTestTariff(t, "Hourly", models.TariffHourly, "100.00", nil)
	creator := createTestMember(t, "judy", "1000.00")
	other := createTestMember(t, "mallory", "1000.00")

	start, end := slotAt(1, 14, 60)

	booking, err := svcs.bookings.Create(t.Context(), service.CreateBookingParams{
		MemberID: creator.ID, SpaceID: space.ID, Type: models.BookingOneTime,
		TariffID: tariff.ID, StartTime: start, EndTime: end,
		ParticipantIDs: []uint{other.ID, creator.ID, other.ID},
	})
	require.NoError(t, err)

	var participants []models.Participant
	require.NoError(t, testDB.Where("booking_id = ?", booking.ID).Find(&participants).Error)
	require.Len(t, participants, 1)
	assert.Equal(t, other.ID, participants[0].MemberID)
}
