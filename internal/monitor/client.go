package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sessionforge/authgate/internal/identity"
)

// APIClient implements Syncer against the server's session endpoints.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient constructs an APIClient for the given server base URL.
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// SyncSession upserts the user and session rows for the current login.
func (c *APIClient) SyncSession(ctx context.Context, sess *identity.ProviderSession, deviceID string) error {
	name, _ := sess.User.Metadata["full_name"].(string)
	body := map[string]any{
		"userId":        sess.User.ID,
		"email":         sess.User.Email,
		"name":          name,
		"emailVerified": sess.User.EmailVerifiedAt,
		"deviceId":      deviceID,
	}
	return c.post(ctx, "/api/session/sync", sess.AccessToken, body)
}

// UpdateSession refreshes the expiry of the session row behind token.
func (c *APIClient) UpdateSession(ctx context.Context, token string, expiresAt time.Time) error {
	body := map[string]any{
		"token":     token,
		"expiresAt": expiresAt.Unix(),
	}
	return c.post(ctx, "/api/session/update", token, body)
}

// Logout deletes the session rows behind token.
func (c *APIClient) Logout(ctx context.Context, token string) error {
	return c.post(ctx, "/api/session/logout", token, nil)
}

// CleanupSessions drops stale rows for the device.
func (c *APIClient) CleanupSessions(ctx context.Context, token, deviceID string) error {
	return c.post(ctx, "/api/session/cleanup", token, map[string]any{"deviceId": deviceID})
}

func (c *APIClient) post(ctx context.Context, path, token string, body any) error {
	var reader io.Reader
	if body != nil {
		payload, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			return fmt.Errorf("monitor client: marshal body: %w", errMarshal)
		}
		reader = bytes.NewReader(payload)
	}
	req, errReq := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if errReq != nil {
		return fmt.Errorf("monitor client: build request: %w", errReq)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, errDo := c.httpClient.Do(req)
	if errDo != nil {
		return fmt.Errorf("monitor client: %s: %w", path, errDo)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("monitor client: %s: status %d", path, resp.StatusCode)
	}
	return nil
}
