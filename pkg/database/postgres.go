package database

import (
	"log"

	"github.com/coworkly/coworking-core/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Space{},
		&models.Member{},
		&models.Tariff{},
		&models.Transaction{},
		&models.Subscription{},
		&models.Booking{},
		&models.Participant{},
		&models.OneOff{},
	); err != nil {
		log.Fatalf("failed to auto-migrate: %v", err)
	}

	ApplyConstraints(db)

	return db
}

// ApplyConstraints installs the database-level backstops the application
// logic relies on. The exclusion constraint rejects any pair of confirmed
// bookings on the same space with intersecting [start, end) ranges, so a
// race the row lock somehow missed becomes a failed insert instead of a
// double booking. tsrange is half-open by default, matching the overlap rule.
func ApplyConstraints(db *gorm.DB) {
	db.Exec(`CREATE EXTENSION IF NOT EXISTS btree_gist`)
	db.Exec(`
		DO $$ BEGIN
			ALTER TABLE bookings ADD CONSTRAINT bookings_confirmed_no_overlap
				EXCLUDE USING gist (
					space_id WITH =,
					tsrange(start_time, end_time) WITH &&
				) WHERE (status = 'confirmed');
		EXCEPTION WHEN duplicate_object OR duplicate_table THEN NULL;
		END $$
	`)
}
