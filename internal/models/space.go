package models

import "time"

// Space is a local copy of the space catalog, synced over RabbitMQ.
// The space row doubles as the lock anchor for booking creation: the
// booking service takes FOR UPDATE on it to serialize overlap checks.
type Space struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Capacity  int       `gorm:"not null;default:1" json:"capacity"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
