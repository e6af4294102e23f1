//go:build integration

package integration

import (
	"sync"
	"testing"

	"github.com/coworkly/coworking-core/internal/models"
	"github.com/coworkly/coworking-core/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func charge(t *testing.T, svcs *services, memberID uint, amount string, kind models.TransactionKind) *models.Transaction {
	t.Helper()
	var tx *models.Transaction
	err := testDB.Transaction(func(dbTx *gorm.DB) error {
		var err error
		tx, err = svcs.ledger.Charge(t.Context(), dbTx, memberID, decimal.RequireFromString(amount), kind, "test")
		return err
	})
	require.NoError(t, err)
	return tx
}

// Balance must equal the signed sum of the transaction log after any mix of
// credits and debits.
func TestBalanceMatchesLedgerSum(t *testing.T) {
	cleanTables()
	svcs := newServices()

	member := createTestMember(t, "alice", "0.00")

	charge(t, svcs, member.ID, "500.00", models.KindDeposit)
	charge(t, svcs, member.ID, "120.50", models.KindPayment)
	charge(t, svcs, member.ID, "25.00", models.KindBonus)
	charge(t, svcs, member.ID, "20.50", models.KindRefund)
	charge(t, svcs, member.ID, "100.00", models.KindWithdrawal)

	rec, err := svcs.ledger.Reconcile(t.Context(), member.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent(), "balance %s vs ledger sum %s", rec.Balance, rec.LedgerSum)
	assert.True(t, rec.Balance.Equal(decimal.RequireFromString("325.00")))
}

// The invariant survives the full booking lifecycle, not just raw charges.
func TestReconciliationAfterBookingFlow(t *testing.T) {
	cleanTables()
	svcs := newServices()

	space := createTestSpace(t, "Desk R")
	tariff := createTestTariff(t, "Hourly", models.TariffHourly, "80.00", nil)
	member := createTestMember(t, "bob", "0.00")

	charge(t, svcs, member.ID, "1000.00", models.KindDeposit)

	start, end := slotAt(1, 10, 90)
	booking, err := svcs.bookings.Create(t.Context(), service.CreateBookingParams{
		MemberID: member.ID, SpaceID: space.ID, Type: models.BookingOneTime,
		TariffID: tariff.ID, StartTime: start, EndTime: end,
	})
	require.NoError(t, err)

	_, err = svcs.bookings.StaffCancel(t.Context(), booking.ID, service.StaffCancelParams{ReturnMoney: true})
	require.NoError(t, err)

	rec, err := svcs.ledger.Reconcile(t.Context(), member.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent(), "balance %s vs ledger sum %s", rec.Balance, rec.LedgerSum)
	assert.True(t, rec.Balance.Equal(decimal.RequireFromString("1000.00")),
		"charge plus full refund should restore the deposit")

	history, err := svcs.ledger.History(t.Context(), member.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
}

// A debit that would overdraw fails and writes nothing.
func TestDebitNeverOverdraws(t *testing.T) {
	cleanTables()
	svcs := newServices()

	member := createTestMember(t, "carol", "50.00")

	err := testDB.Transaction(func(dbTx *gorm.DB) error {
		_, err := svcs.ledger.Charge(t.Context(), dbTx, member.ID,
			decimal.RequireFromString("50.01"), models.KindPayment, "test")
		return err
	})
	assert.ErrorIs(t, err, service.ErrInsufficientBalance)

	var txs int64
	testDB.Model(&models.Transaction{}).Count(&txs)
	assert.Zero(t, txs)

	var updated models.Member
	require.NoError(t, testDB.First(&updated, member.ID).Error)
	assert.True(t, updated.Balance.Equal(decimal.RequireFromString("50.00")))
}

// Concurrent debits against the same member are serialized by the row lock:
// combined they can spend at most the balance.
func TestConcurrentDebitsSerialized(t *testing.T) {
	cleanTables()
	svcs := newServices()

	member := createTestMember(t, "dave", "100.00")

	const workers = 4
	var wg sync.WaitGroup
	errs := make([]error, workers)

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			errs[i] = testDB.Transaction(func(dbTx *gorm.DB) error {
				_, err := svcs.ledger.Charge(t.Context(), dbTx, member.ID,
					decimal.RequireFromString("40.00"), models.KindPayment, "test")
				return err
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, service.ErrInsufficientBalance)
		}
	}
	assert.Equal(t, 2, succeeded, "only two 40.00 debits fit in 100.00")

	rec, err := svcs.ledger.Reconcile(t.Context(), member.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent())
	assert.True(t, rec.Balance.Equal(decimal.RequireFromString("20.00")))
}

func TestChargeUnknownMember(t *testing.T) {
	cleanTables()
	svcs := newServices()

	err := testDB.Transaction(func(dbTx *gorm.DB) error {
		_, err := svcs.ledger.Charge(t.Context(), dbTx, 999999,
			decimal.RequireFromString("10.00"), models.KindDeposit, "test")
		return err
	})
	assert.ErrorIs(t, err, service.ErrMemberNotFound)
}
