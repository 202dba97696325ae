package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sessionforge/authgate/internal/identity"
)

type recordedCall struct {
	path  string
	token string
	body  map[string]any
}

func newRecordingServer(t *testing.T, status int) (*httptest.Server, *[]recordedCall) {
	t.Helper()
	var calls []recordedCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := recordedCall{path: r.URL.Path, token: r.Header.Get("Authorization")}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&call.body)
		}
		calls = append(calls, call)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestAPIClientSyncSession(t *testing.T) {
	srv, calls := newRecordingServer(t, http.StatusOK)
	client := NewAPIClient(srv.URL)

	sess := &identity.ProviderSession{
		AccessToken: "tok-1",
		User: identity.Principal{
			ID:       "u1",
			Email:    "u1@example.com",
			Metadata: map[string]any{"full_name": "One"},
		},
	}
	if errSync := client.SyncSession(context.Background(), sess, "dev-1"); errSync != nil {
		t.Fatalf("sync: %v", errSync)
	}

	if len(*calls) != 1 {
		t.Fatalf("expected one call, got %d", len(*calls))
	}
	call := (*calls)[0]
	if call.path != "/api/session/sync" {
		t.Fatalf("unexpected path %q", call.path)
	}
	if call.token != "Bearer tok-1" {
		t.Fatalf("unexpected auth header %q", call.token)
	}
	if call.body["userId"] != "u1" || call.body["deviceId"] != "dev-1" || call.body["name"] != "One" {
		t.Fatalf("unexpected body %v", call.body)
	}
}

func TestAPIClientUpdateSession(t *testing.T) {
	srv, calls := newRecordingServer(t, http.StatusOK)
	client := NewAPIClient(srv.URL)

	expiry := time.Now().Add(time.Hour)
	if errUpdate := client.UpdateSession(context.Background(), "tok-1", expiry); errUpdate != nil {
		t.Fatalf("update: %v", errUpdate)
	}

	call := (*calls)[0]
	if call.path != "/api/session/update" {
		t.Fatalf("unexpected path %q", call.path)
	}
	if int64(call.body["expiresAt"].(float64)) != expiry.Unix() {
		t.Fatalf("unexpected expiresAt %v", call.body["expiresAt"])
	}
}

func TestAPIClientErrorStatus(t *testing.T) {
	srv, _ := newRecordingServer(t, http.StatusNotFound)
	client := NewAPIClient(srv.URL)

	if errUpdate := client.UpdateSession(context.Background(), "tok-1", time.Now()); errUpdate == nil {
		t.Fatal("expected non-200 status to surface as error")
	}
}

func TestAPIClientLogoutAndCleanup(t *testing.T) {
	srv, calls := newRecordingServer(t, http.StatusOK)
	client := NewAPIClient(srv.URL)
	ctx := context.Background()

	if errLogout := client.Logout(ctx, "tok-1"); errLogout != nil {
		t.Fatalf("logout: %v", errLogout)
	}
	if errCleanup := client.CleanupSessions(ctx, "tok-1", "dev-1"); errCleanup != nil {
		t.Fatalf("cleanup: %v", errCleanup)
	}

	if (*calls)[0].path != "/api/session/logout" {
		t.Fatalf("unexpected logout path %q", (*calls)[0].path)
	}
	cleanup := (*calls)[1]
	if cleanup.path != "/api/session/cleanup" || cleanup.body["deviceId"] != "dev-1" {
		t.Fatalf("unexpected cleanup call %+v", cleanup)
	}
}
