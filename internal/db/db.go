package db

import (
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/salon-platform/internal/config"
	"github.com/BruksfildServices01/salon-platform/internal/models"
	"github.com/BruksfildServices01/salon-platform/internal/timezone"
)

func NewDB(cfg *config.Config, log logrus.FieldLogger) *gorm.DB {
	db, err := gorm.Open(postgres.Open(cfg.DBUrl), &gorm.Config{
		PrepareStmt:    true,
		TranslateError: true,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to connect database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.WithError(err).Fatal("failed to get sql.DB")
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := Migrate(db); err != nil {
		log.WithError(err).Fatal("failed to migrate")
	}

	db.Exec(`
        UPDATE tenants
        SET timezone = ?
        WHERE timezone IS NULL OR timezone = ''
    `, timezone.DefaultTimezone)

	return db
}

// Migrate creates or updates every table the platform owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.Service{},
		&models.WorkingHours{},
		&models.Customer{},
		&models.Appointment{},
		&models.AuditLog{},
		&models.PaymentProvider{},
		&models.Payment{},
		&models.CalendarConnection{},
	)
}
