package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/sessionforge/authgate/internal/models"
)

// Migrate runs database migrations.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.Session{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	return nil
}
