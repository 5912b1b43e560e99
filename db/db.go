package db

import (
	"fmt"
	"log"
	"os"

	"github.com/Ashnagdarc/Nest-sub004/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func ConnectDB() *gorm.DB {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatal("Failed to migrate models: ", err)
	}
	log.Println("Database connected")
	return DB
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Invite{},
		&models.Gear{},
		&models.GearRequest{},
		&models.RequestLine{},
		&models.RequestStatusHistory{},
		&models.CheckinRecord{},
		&models.Notification{},
	); err != nil {
		return err
	}

	// Fast lookup of the pending rows a group action re-derives.
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_pending_by_request
	  ON %s (request_id)
	  WHERE status = 'PendingApproval';
	`, models.CheckinTable, models.CheckinTable)).Error; err != nil {
		return err
	}

	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_pending_by_user_date
	  ON %s (user_id, checkin_date)
	  WHERE status = 'PendingApproval' AND request_id IS NULL;
	`, models.CheckinTable, models.CheckinTable)).Error; err != nil {
		return err
	}

	// Open requests per user drive the overdue sweep and listings.
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_open_by_due
	  ON %s (due_at)
	  WHERE status IN ('CheckedOut', 'PartiallyReturned');
	`, models.RequestTable, models.RequestTable)).Error; err != nil {
		return err
	}

	return nil
}
