package models

import "time"

// Session is this service's own record of an active login, distinct from the
// identity provider's session. At most one row exists per (token, device).
type Session struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Token    string `gorm:"type:text;not null;uniqueIndex:idx_sessions_token_device;index"` // Access token of the login.
	DeviceID string `gorm:"type:text;not null;uniqueIndex:idx_sessions_token_device"`       // Client-generated device ID.

	UserID string `gorm:"type:text;not null;index"` // Owning user ID.

	ExpiresAt    time.Time `gorm:"not null"` // Hard expiry of the row.
	LastActivity time.Time `gorm:"not null"` // Last sign-in or resync time.

	UserAgent string `gorm:"type:text"` // User agent of the latest sync.
	IPAddress string `gorm:"type:text"` // Source IP of the latest sync.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
