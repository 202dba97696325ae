package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sessionforge/authgate/internal/models"
)

func TestSyncCreatesUserWithHintedRole(t *testing.T) {
	conn := openTestDB(t)
	users := NewUserStore(conn)
	ctx := context.Background()

	user, errSync := users.Sync(ctx, SyncParams{
		ID:       "u1",
		Email:    "u1@example.com",
		Name:     "First",
		RoleHint: models.RoleAdmin,
	})
	if errSync != nil {
		t.Fatalf("sync: %v", errSync)
	}
	if user.Role != models.RoleAdmin {
		t.Fatalf("expected hinted role ADMIN on new user, got %s", user.Role)
	}
}

func TestSyncDefaultsRoleToUser(t *testing.T) {
	conn := openTestDB(t)
	users := NewUserStore(conn)

	user, errSync := users.Sync(context.Background(), SyncParams{ID: "u1", Email: "u1@example.com"})
	if errSync != nil {
		t.Fatalf("sync: %v", errSync)
	}
	if user.Role != models.RoleUser {
		t.Fatalf("expected default role USER, got %s", user.Role)
	}
}

func TestSyncNeverOverwritesStoredRole(t *testing.T) {
	conn := openTestDB(t)
	users := NewUserStore(conn)
	ctx := context.Background()

	if _, errSync := users.Sync(ctx, SyncParams{ID: "u1", Email: "u1@example.com", RoleHint: models.RoleAdmin}); errSync != nil {
		t.Fatalf("first sync: %v", errSync)
	}

	// A later sign-in carrying a higher hint must not touch the stored role.
	verified := time.Now().UTC()
	user, errSync := users.Sync(ctx, SyncParams{
		ID:            "u1",
		Email:         "new@example.com",
		Name:          "Renamed",
		EmailVerified: &verified,
		RoleHint:      models.RoleSuperAdmin,
	})
	if errSync != nil {
		t.Fatalf("second sync: %v", errSync)
	}
	if user.Role != models.RoleAdmin {
		t.Fatalf("expected stored role ADMIN to survive, got %s", user.Role)
	}
	if user.Email != "new@example.com" || user.Name != "Renamed" {
		t.Fatalf("expected profile fields refreshed, got %q %q", user.Email, user.Name)
	}
	if user.EmailVerified == nil {
		t.Fatal("expected email verification timestamp refreshed")
	}
}

func TestFindMissingUser(t *testing.T) {
	conn := openTestDB(t)
	users := NewUserStore(conn)

	if _, errFind := users.Find(context.Background(), "ghost"); !errors.Is(errFind, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", errFind)
	}
}

func TestListExcludesSuperAdminsNewestFirst(t *testing.T) {
	conn := openTestDB(t)
	users := NewUserStore(conn)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := []models.User{
		{ID: "u1", Email: "u1@example.com", Role: models.RoleUser, CreatedAt: base},
		{ID: "u2", Email: "u2@example.com", Role: models.RoleAdmin, CreatedAt: base.Add(time.Hour)},
		{ID: "root", Email: "root@example.com", Role: models.RoleSuperAdmin, CreatedAt: base.Add(2 * time.Hour)},
	}
	for i := range rows {
		if errCreate := conn.Create(&rows[i]).Error; errCreate != nil {
			t.Fatalf("seed user: %v", errCreate)
		}
	}

	listed, errList := users.List(ctx)
	if errList != nil {
		t.Fatalf("list: %v", errList)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 users, got %d", len(listed))
	}
	if listed[0].ID != "u2" || listed[1].ID != "u1" {
		t.Fatalf("expected newest-first order u2,u1, got %s,%s", listed[0].ID, listed[1].ID)
	}
}

func TestUpdateRole(t *testing.T) {
	conn := openTestDB(t)
	users := NewUserStore(conn)
	ctx := context.Background()

	if _, errSync := users.Sync(ctx, SyncParams{ID: "u1", Email: "u1@example.com"}); errSync != nil {
		t.Fatalf("sync: %v", errSync)
	}

	user, errUpdate := users.UpdateRole(ctx, "u1", models.RoleAdmin)
	if errUpdate != nil {
		t.Fatalf("update role: %v", errUpdate)
	}
	if user.Role != models.RoleAdmin {
		t.Fatalf("expected ADMIN, got %s", user.Role)
	}

	if _, errMissing := users.UpdateRole(ctx, "ghost", models.RoleUser); !errors.Is(errMissing, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", errMissing)
	}
}
