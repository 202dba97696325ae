package models

import "time"

// User represents an account mirrored from the identity provider.
type User struct {
	ID string `gorm:"primaryKey;type:text"` // Identity provider user ID.

	Email string `gorm:"type:text;not null;uniqueIndex"` // Email address.
	Name  string `gorm:"type:text"`                      // Display name.

	Role Role `gorm:"type:text;not null;default:USER"` // Assigned privilege level.

	EmailVerified *time.Time // When the provider confirmed the email, if ever.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
