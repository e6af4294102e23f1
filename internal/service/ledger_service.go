package service

import (
	"context"
	"errors"

	"github.com/coworkly/coworking-core/internal/models"
	"github.com/coworkly/coworking-core/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Ledger pairs every balance mutation with exactly one appended Transaction
// row. Charge is designed for in-transaction use: callers pass the enclosing
// tx so a failed booking or subscription write rolls the charge back with it.
type Ledger interface {
	Charge(ctx context.Context, tx *gorm.DB, memberID uint, amount decimal.Decimal, kind models.TransactionKind, description string) (*models.Transaction, error)
	Reconcile(ctx context.Context, memberID uint) (*Reconciliation, error)
	History(ctx context.Context, memberID uint) ([]models.Transaction, error)
}

// Reconciliation compares the cached balance column against the signed sum
// of the member's transaction log. The two must always agree.
type Reconciliation struct {
	MemberID  uint            `json:"member_id"`
	Balance   decimal.Decimal `json:"balance"`
	LedgerSum decimal.Decimal `json:"ledger_sum"`
}

func (r *Reconciliation) Consistent() bool {
	return r.Balance.Equal(r.LedgerSum)
}

type ledger struct {
	memberRepo      repository.MemberRepository
	transactionRepo repository.TransactionRepository
}

func NewLedger(memberRepo repository.MemberRepository, transactionRepo repository.TransactionRepository) Ledger {
	return &ledger{memberRepo: memberRepo, transactionRepo: transactionRepo}
}

func (l *ledger) Charge(ctx context.Context, tx *gorm.DB, memberID uint, amount decimal.Decimal, kind models.TransactionKind, description string) (*models.Transaction, error) {
	if amount.IsNegative() {
		return nil, errors.New("ledger: amount must not be negative")
	}

	// Lock the member row, then re-check funds under the lock. A pre-check
	// outside the transaction is advisory only; this one is authoritative.
	member, err := l.memberRepo.FindByIDForUpdate(ctx, tx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	if kind.Debit() && member.Balance.LessThan(amount) {
		return nil, ErrInsufficientBalance
	}

	t := &models.Transaction{
		MemberID:    memberID,
		Amount:      amount.Round(2),
		Kind:        kind,
		Description: description,
		Reference:   uuid.NewString(),
	}
	if err := l.transactionRepo.Create(ctx, tx, t); err != nil {
		return nil, err
	}
	if err := l.memberRepo.AdjustBalance(ctx, tx, memberID, t.Signed()); err != nil {
		return nil, err
	}
	return t, nil
}

func (l *ledger) Reconcile(ctx context.Context, memberID uint) (*Reconciliation, error) {
	member, err := l.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	sum, err := l.transactionRepo.SumSignedByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	return &Reconciliation{MemberID: memberID, Balance: member.Balance, LedgerSum: sum}, nil
}

func (l *ledger) History(ctx context.Context, memberID uint) ([]models.Transaction, error) {
	return l.transactionRepo.ListByMember(ctx, memberID)
}
