package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	KindDeposit    TransactionKind = "deposit"
	KindPayment    TransactionKind = "payment"
	KindRefund     TransactionKind = "refund"
	KindBonus      TransactionKind = "bonus"
	KindWithdrawal TransactionKind = "withdrawal"
)

// ParseTransactionKind decodes any textual representation of a kind
// (driver strings, JSON payloads). Unknown values are a decode error,
// not a crash.
func ParseTransactionKind(s string) (TransactionKind, error) {
	switch TransactionKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindDeposit:
		return KindDeposit, nil
	case KindPayment:
		return KindPayment, nil
	case KindRefund:
		return KindRefund, nil
	case KindBonus:
		return KindBonus, nil
	case KindWithdrawal:
		return KindWithdrawal, nil
	}
	return "", fmt.Errorf("unknown transaction kind %q", s)
}

// Debit reports whether the kind decreases the member balance.
func (k TransactionKind) Debit() bool {
	return k == KindPayment || k == KindWithdrawal
}

// Transaction is an append-only ledger row. Amount is a positive
// magnitude; the sign of its balance effect comes from Kind.
// There is no update or delete path for transactions anywhere.
type Transaction struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	MemberID    uint            `gorm:"not null;index" json:"member_id"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Kind        TransactionKind `gorm:"type:varchar(20);not null" json:"kind"`
	Description string          `json:"description"`
	Reference   string          `gorm:"uniqueIndex;not null" json:"reference"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Signed returns the amount with the sign implied by Kind.
func (t *Transaction) Signed() decimal.Decimal {
	if t.Kind.Debit() {
		return t.Amount.Neg()
	}
	return t.Amount
}
