package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 6, 1, hour, minute, 0, 0, time.UTC)
}

func TestValidateSlot(t *testing.T) {
	s := NewScheduler(15, nil)

	tests := []struct {
		name    string
		start   time.Time
		end     time.Time
		wantErr error
	}{
		{"aligned 90 minutes", at(10, 0), at(11, 30), nil},
		{"single slot", at(10, 15), at(10, 30), nil},
		{"end equals start", at(10, 0), at(10, 0), ErrInvalidSlot},
		{"end before start", at(11, 0), at(10, 0), ErrInvalidSlot},
		{"start off-grid", at(10, 7), at(11, 7), ErrInvalidSlot},
		{"end off-grid", at(10, 0), at(11, 5), ErrInvalidSlot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.ValidateSlot(tt.start, tt.end)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSlot_SubMinuteComponents(t *testing.T) {
	s := NewScheduler(15, nil)

	start := time.Date(2024, 6, 1, 10, 0, 30, 0, time.UTC)
	assert.ErrorIs(t, s.ValidateSlot(start, at(11, 0)), ErrInvalidSlot)

	start = time.Date(2024, 6, 1, 10, 0, 0, 500, time.UTC)
	assert.ErrorIs(t, s.ValidateSlot(start, at(11, 0)), ErrInvalidSlot)
}

func TestValidateSlot_CoarserGranularity(t *testing.T) {
	s := NewScheduler(30, nil)

	assert.NoError(t, s.ValidateSlot(at(10, 0), at(11, 30)))
	// 10:15 is on the 15-minute grid but off the 30-minute grid
	assert.ErrorIs(t, s.ValidateSlot(at(10, 15), at(11, 15)), ErrInvalidSlot)
}

func TestHourlyPrice(t *testing.T) {
	tests := []struct {
		name    string
		price   string
		minutes int
		want    string
	}{
		{"day pass 90 minutes", "200.00", 90, "300"},
		{"exact hour", "200.00", 60, "200"},
		{"single slot", "200.00", 15, "50"},
		{"rounds half up", "0.01", 30, "0.01"}, // 0.005 rounds away from zero
		{"repeating fraction", "100.00", 20, "33.33"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price := hourlyPrice(decimal.RequireFromString(tt.price), tt.minutes)
			assert.True(t, price.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", price, tt.want)
		})
	}
}

func TestDedupeParticipants(t *testing.T) {
	got := dedupeParticipants([]uint{3, 1, 3, 2, 1}, 2)
	assert.Equal(t, []uint{3, 1}, got)

	assert.Empty(t, dedupeParticipants([]uint{7}, 7))
	assert.Empty(t, dedupeParticipants(nil, 7))
}
