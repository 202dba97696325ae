package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sessionforge/authgate/internal/models"
	"github.com/sessionforge/authgate/internal/roles"
)

// ErrUserNotFound indicates no user row exists for the given ID.
var ErrUserNotFound = errors.New("session: user not found")

// UserStore persists user rows mirrored from the identity provider.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore constructs a UserStore.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// SyncParams describes a sign-in sync for a user row.
type SyncParams struct {
	ID            string
	Email         string
	Name          string
	EmailVerified *time.Time
	RoleHint      models.Role
}

// Sync creates or updates the user row. The role column is written only on
// insert (hint or USER); a later sync never silently overwrites a stored
// role, which keeps the database the source of truth. The upsert is a single
// conditional statement, not a read-then-write.
func (s *UserStore) Sync(ctx context.Context, params SyncParams) (*models.User, error) {
	row := models.User{
		ID:            params.ID,
		Email:         params.Email,
		Name:          params.Name,
		Role:          roles.Resolve("", params.RoleHint),
		EmailVerified: params.EmailVerified,
	}
	errUpsert := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email", "name", "email_verified", "updated_at",
		}),
	}).Create(&row).Error
	if errUpsert != nil {
		return nil, fmt.Errorf("session: sync user: %w", errUpsert)
	}
	return s.Find(ctx, params.ID)
}

// Find returns the user row for id.
func (s *UserStore) Find(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	errFind := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if errFind != nil {
		return nil, fmt.Errorf("session: find user: %w", errFind)
	}
	return &user, nil
}

// List returns all users except SUPER_ADMIN, newest first.
func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	var rows []models.User
	errFind := s.db.WithContext(ctx).
		Where("role <> ?", models.RoleSuperAdmin).
		Order("created_at DESC").
		Find(&rows).Error
	if errFind != nil {
		return nil, fmt.Errorf("session: list users: %w", errFind)
	}
	return rows, nil
}

// UpdateRole sets the role for id. Only an explicit administrative call goes
// through here; SUPER_ADMIN is never an assignable target and is rejected
// before this layer.
func (s *UserStore) UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("role", role)
	if result.Error != nil {
		return nil, fmt.Errorf("session: update role: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}
	return s.Find(ctx, id)
}
