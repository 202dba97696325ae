package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/sessionforge/authgate/internal/db"
	"github.com/sessionforge/authgate/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := db.Open("file::memory:")
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func TestUpsertCreatesSingleRow(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn, 0, 0)
	ctx := context.Background()

	signIn := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	first, errFirst := store.Upsert(ctx, "tok-1", "dev-1", "u1", RequestMeta{
		UserAgent:  "agent-a",
		IPAddress:  "1.2.3.4",
		LastSignIn: &signIn,
	})
	if errFirst != nil {
		t.Fatalf("first upsert: %v", errFirst)
	}
	if !first.LastActivity.Equal(signIn) {
		t.Fatalf("expected last activity %v, got %v", signIn, first.LastActivity)
	}

	laterSignIn := signIn.Add(time.Hour)
	second, errSecond := store.Upsert(ctx, "tok-1", "dev-1", "u1", RequestMeta{
		UserAgent:  "agent-b",
		IPAddress:  "5.6.7.8",
		LastSignIn: &laterSignIn,
	})
	if errSecond != nil {
		t.Fatalf("second upsert: %v", errSecond)
	}

	var count int64
	conn.Model(&models.Session{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one row, got %d", count)
	}
	if !second.LastActivity.Equal(laterSignIn) {
		t.Fatalf("expected refreshed last activity %v, got %v", laterSignIn, second.LastActivity)
	}
	if second.UserAgent != "agent-b" || second.IPAddress != "5.6.7.8" {
		t.Fatalf("expected latest request meta, got %q %q", second.UserAgent, second.IPAddress)
	}
	if !second.ExpiresAt.After(first.ExpiresAt) && !second.ExpiresAt.Equal(first.ExpiresAt) {
		t.Fatalf("expected expiry rewritten, got %v then %v", first.ExpiresAt, second.ExpiresAt)
	}
}

func TestUpsertSeparateDevicesKeepSeparateRows(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn, 0, 0)
	ctx := context.Background()

	if _, errUpsert := store.Upsert(ctx, "tok-1", "dev-1", "u1", RequestMeta{}); errUpsert != nil {
		t.Fatalf("upsert dev-1: %v", errUpsert)
	}
	if _, errUpsert := store.Upsert(ctx, "tok-1", "dev-2", "u1", RequestMeta{}); errUpsert != nil {
		t.Fatalf("upsert dev-2: %v", errUpsert)
	}

	var count int64
	conn.Model(&models.Session{}).Count(&count)
	if count != 2 {
		t.Fatalf("expected two rows for two devices, got %d", count)
	}
}

func TestRefreshExpiry(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn, 0, 0)
	ctx := context.Background()

	if _, errUpsert := store.Upsert(ctx, "tok-1", "dev-1", "u1", RequestMeta{}); errUpsert != nil {
		t.Fatalf("upsert: %v", errUpsert)
	}

	newExpiry := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	row, errRefresh := store.RefreshExpiry(ctx, "tok-1", newExpiry)
	if errRefresh != nil {
		t.Fatalf("refresh: %v", errRefresh)
	}
	if !row.ExpiresAt.Equal(newExpiry) {
		t.Fatalf("expected expiry %v, got %v", newExpiry, row.ExpiresAt)
	}

	if _, errMissing := store.RefreshExpiry(ctx, "unknown", newExpiry); !errors.Is(errMissing, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", errMissing)
	}
}

func TestDeleteByTokenIsIdempotent(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn, 0, 0)
	ctx := context.Background()

	if _, errUpsert := store.Upsert(ctx, "tok-1", "dev-1", "u1", RequestMeta{}); errUpsert != nil {
		t.Fatalf("upsert: %v", errUpsert)
	}
	if errDelete := store.DeleteByToken(ctx, "tok-1"); errDelete != nil {
		t.Fatalf("delete: %v", errDelete)
	}
	if errDelete := store.DeleteByToken(ctx, "tok-1"); errDelete != nil {
		t.Fatalf("expected deleting zero rows to succeed, got %v", errDelete)
	}

	var count int64
	conn.Model(&models.Session{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no rows, got %d", count)
	}
}

func TestCleanupStale(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn, 0, 0)
	ctx := context.Background()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store.nowFn = func() time.Time { return now }

	fresh := now.Add(-time.Hour)
	if _, errUpsert := store.Upsert(ctx, "tok-live", "dev-1", "u1", RequestMeta{LastSignIn: &fresh}); errUpsert != nil {
		t.Fatalf("upsert live: %v", errUpsert)
	}
	stale := now.Add(-30 * time.Hour)
	if _, errUpsert := store.Upsert(ctx, "tok-stale", "dev-1", "u1", RequestMeta{LastSignIn: &stale}); errUpsert != nil {
		t.Fatalf("upsert stale: %v", errUpsert)
	}
	otherDevice := now.Add(-30 * time.Hour)
	if _, errUpsert := store.Upsert(ctx, "tok-other", "dev-2", "u1", RequestMeta{LastSignIn: &otherDevice}); errUpsert != nil {
		t.Fatalf("upsert other device: %v", errUpsert)
	}

	deleted, errCleanup := store.CleanupStale(ctx, "dev-1", "u1")
	if errCleanup != nil {
		t.Fatalf("cleanup: %v", errCleanup)
	}
	if deleted != 1 {
		t.Fatalf("expected one stale row deleted, got %d", deleted)
	}

	var remaining []models.Session
	conn.Find(&remaining)
	if len(remaining) != 2 {
		t.Fatalf("expected two rows left, got %d", len(remaining))
	}
	for _, row := range remaining {
		if row.Token == "tok-stale" {
			t.Fatal("expected stale row on dev-1 to be gone")
		}
	}
}
