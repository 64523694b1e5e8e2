package database

import (
	"fmt"
	"log"
	"time"

	"github.com/anjiri1684/tutor_marketplace/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ConnectDB opens the PostgreSQL connection pool.
func ConnectDB(dsn string, production bool) (*gorm.DB, error) {
	logLevel := logger.Info
	if production {
		logLevel = logger.Warn
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("✅ Database connected successfully")
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Subject{},
		&models.TeacherProfile{},
		&models.AvailabilitySlot{},
		&models.Booking{},
		&models.BookingEvent{},
		&models.Payment{},
		&models.Review{},
		&models.Conversation{},
		&models.Message{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if db.Dialector.Name() == "postgres" {
		if err := installBookingOverlapGuard(db); err != nil {
			return err
		}
	}

	log.Println("✅ Database migration successful")
	return nil
}

const bookingOverlapConstraint = "bookings_no_confirmed_overlap"

// installBookingOverlapGuard makes PostgreSQL reject two confirmed bookings of the
// same teacher whose [start, end) ranges intersect.
func installBookingOverlapGuard(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS btree_gist").Error; err != nil {
		return fmt.Errorf("failed to enable btree_gist: %w", err)
	}

	var count int64
	err := db.Raw("SELECT COUNT(*) FROM pg_constraint WHERE conname = ?", bookingOverlapConstraint).Scan(&count).Error
	if err != nil {
		return fmt.Errorf("failed to inspect constraints: %w", err)
	}
	if count > 0 {
		return nil
	}

	stmt := fmt.Sprintf(`ALTER TABLE bookings ADD CONSTRAINT %s EXCLUDE USING gist (
		teacher_profile_id WITH =,
		tstzrange(start_time, end_time, '[)') WITH &&
	) WHERE (status = 'confirmed')`, bookingOverlapConstraint)
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("failed to add booking overlap constraint: %w", err)
	}
	return nil
}

var defaultSubjects = []string{
	"Mathematics", "English", "Physics", "Chemistry", "Biology",
	"History", "Geography", "Computer Science", "French", "Music",
}

// SeedSubjects inserts the default subject catalogue. Existing names are left alone.
func SeedSubjects(db *gorm.DB) error {
	subjects := make([]models.Subject, 0, len(defaultSubjects))
	for _, name := range defaultSubjects {
		subjects = append(subjects, models.Subject{Name: name})
	}
	err := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).Create(&subjects).Error
	if err != nil {
		return fmt.Errorf("failed to seed subjects: %w", err)
	}
	log.Println("✅ Subjects seeded successfully")
	return nil
}
