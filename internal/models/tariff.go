package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TariffType string

const (
	TariffFixed   TariffType = "fixed"
	TariffHourly  TariffType = "hourly"
	TariffPackage TariffType = "package"
)

func ParseTariffType(s string) (TariffType, error) {
	switch TariffType(strings.ToLower(strings.TrimSpace(s))) {
	case TariffFixed:
		return TariffFixed, nil
	case TariffHourly:
		return TariffHourly, nil
	case TariffPackage:
		return TariffPackage, nil
	}
	return "", fmt.Errorf("unknown tariff type %q", s)
}

// Tariff is a local copy of the tariff catalog, synced over RabbitMQ.
// Type is immutable after creation; the sync upsert never overwrites it.
// DurationDays is 0 for hourly tariffs; IncludedMinutes 0 means unlimited.
// SpaceID is set for fixed tariffs bound to one space.
type Tariff struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Name            string          `gorm:"uniqueIndex;not null" json:"name"`
	Type            TariffType      `gorm:"type:varchar(20);not null" json:"type"`
	DurationDays    int             `gorm:"not null;default:0" json:"duration_days"`
	IncludedMinutes int             `gorm:"not null;default:0" json:"included_minutes"`
	Price           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	SpaceID         *uint           `json:"space_id,omitempty"`
	Active          bool            `gorm:"not null;default:true" json:"active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
