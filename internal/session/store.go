package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sessionforge/authgate/internal/models"
)

// DefaultTTL is how long a synced session row stays valid.
const DefaultTTL = 24 * time.Hour

// DefaultStaleAfter is the inactivity threshold for cleanup.
const DefaultStaleAfter = 24 * time.Hour

// ErrSessionNotFound indicates no session row exists for the given token.
var ErrSessionNotFound = errors.New("session: not found")

// RequestMeta carries per-request attributes recorded on the session row.
type RequestMeta struct {
	UserAgent  string
	IPAddress  string
	LastSignIn *time.Time
}

// Store persists server-owned session rows.
type Store struct {
	db         *gorm.DB
	ttl        time.Duration
	staleAfter time.Duration
	nowFn      func() time.Time
}

// NewStore constructs a Store. Non-positive durations fall back to defaults.
func NewStore(db *gorm.DB, ttl, staleAfter time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Store{db: db, ttl: ttl, staleAfter: staleAfter, nowFn: time.Now}
}

// Upsert creates or refreshes the row for (token, deviceID) as a single
// conditional insert-or-update, so concurrent sign-ins from the same device
// cannot produce duplicate rows. Expiry is always rewritten to now+TTL and
// last-activity to the principal's last sign-in time (or now when absent).
func (s *Store) Upsert(ctx context.Context, token, deviceID, userID string, meta RequestMeta) (*models.Session, error) {
	now := s.nowFn().UTC()
	lastActivity := now
	if meta.LastSignIn != nil {
		lastActivity = meta.LastSignIn.UTC()
	}

	row := models.Session{
		Token:        token,
		DeviceID:     deviceID,
		UserID:       userID,
		ExpiresAt:    now.Add(s.ttl),
		LastActivity: lastActivity,
		UserAgent:    meta.UserAgent,
		IPAddress:    meta.IPAddress,
		CreatedAt:    now,
	}
	errUpsert := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "token"}, {Name: "device_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id", "expires_at", "last_activity", "user_agent", "ip_address",
		}),
	}).Create(&row).Error
	if errUpsert != nil {
		return nil, fmt.Errorf("session: upsert: %w", errUpsert)
	}

	var stored models.Session
	errFind := s.db.WithContext(ctx).
		Where("token = ? AND device_id = ?", token, deviceID).
		First(&stored).Error
	if errFind != nil {
		return nil, fmt.Errorf("session: read back: %w", errFind)
	}
	return &stored, nil
}

// RefreshExpiry rewrites expiry and last-activity for the session behind
// token; used by the token-refresh path.
func (s *Store) RefreshExpiry(ctx context.Context, token string, expiresAt time.Time) (*models.Session, error) {
	now := s.nowFn().UTC()
	result := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("token = ?", token).
		Updates(map[string]any{
			"expires_at":    expiresAt.UTC(),
			"last_activity": now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("session: refresh expiry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrSessionNotFound
	}

	var stored models.Session
	if errFind := s.db.WithContext(ctx).Where("token = ?", token).First(&stored).Error; errFind != nil {
		return nil, fmt.Errorf("session: read back: %w", errFind)
	}
	return &stored, nil
}

// DeleteByToken removes all rows for token. Deleting zero rows is not an
// error.
func (s *Store) DeleteByToken(ctx context.Context, token string) error {
	if errDelete := s.db.WithContext(ctx).Where("token = ?", token).Delete(&models.Session{}).Error; errDelete != nil {
		return fmt.Errorf("session: delete by token: %w", errDelete)
	}
	return nil
}

// CleanupStale deletes rows for (deviceID, userID) that are past expiry or
// inactive beyond the staleness threshold. Hygiene only; auth decisions never
// depend on it.
func (s *Store) CleanupStale(ctx context.Context, deviceID, userID string) (int64, error) {
	now := s.nowFn().UTC()
	result := s.db.WithContext(ctx).
		Where("device_id = ? AND user_id = ?", deviceID, userID).
		Where("expires_at < ? OR last_activity < ?", now, now.Add(-s.staleAfter)).
		Delete(&models.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("session: cleanup stale: %w", result.Error)
	}
	return result.RowsAffected, nil
}
