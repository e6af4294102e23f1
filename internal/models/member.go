package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Member mirrors the member directory plus the ledger-owned balance.
// Balance is written only by the ledger inside the transaction that
// appends the matching Transaction row; the directory sync never touches it.
type Member struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"not null" json:"name"`
	Email     string          `gorm:"uniqueIndex;not null" json:"email"`
	Phone     string          `gorm:"uniqueIndex;not null" json:"phone"`
	Balance   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"balance"`
	Staff     bool            `gorm:"not null;default:false" json:"staff"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
