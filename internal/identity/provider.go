package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrInvalidToken indicates the provider rejected the credential.
var ErrInvalidToken = errors.New("identity: invalid or expired token")

// Verifier exchanges a bearer credential for a verified principal.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (*Principal, error)
}

// Client talks to a GoTrue-compatible identity provider over REST.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a provider client for the given base URL and API key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// providerUser mirrors the provider's user payload.
type providerUser struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	UserMetadata     map[string]any `json:"user_metadata"`
	LastSignInAt     *time.Time     `json:"last_sign_in_at"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at"`
}

func (u *providerUser) principal() *Principal {
	return &Principal{
		ID:              u.ID,
		Email:           u.Email,
		Metadata:        u.UserMetadata,
		LastSignInAt:    u.LastSignInAt,
		EmailVerifiedAt: u.EmailConfirmedAt,
	}
}

// VerifyToken asks the provider for the user behind the token. Every request
// is verified independently; no result caching happens here.
func (c *Client) VerifyToken(ctx context.Context, token string) (*Principal, error) {
	req, errReq := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if errReq != nil {
		return nil, fmt.Errorf("identity: build request: %w", errReq)
	}
	c.setHeaders(req, token)

	resp, errDo := c.httpClient.Do(req)
	if errDo != nil {
		return nil, fmt.Errorf("identity: verify token: %w", errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrInvalidToken
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity: verify token: unexpected status %d", resp.StatusCode)
	}

	var user providerUser
	if errDecode := json.NewDecoder(resp.Body).Decode(&user); errDecode != nil {
		return nil, fmt.Errorf("identity: decode user: %w", errDecode)
	}
	if user.ID == "" {
		return nil, ErrInvalidToken
	}
	return user.principal(), nil
}

// grantResponse mirrors the provider's token grant payload.
type grantResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    int64        `json:"expires_at"`
	ExpiresIn    int64        `json:"expires_in"`
	User         providerUser `json:"user"`
}

func (g *grantResponse) session() *ProviderSession {
	expiresAt := time.Unix(g.ExpiresAt, 0)
	if g.ExpiresAt == 0 {
		if exp, ok := TokenExpiry(g.AccessToken); ok {
			expiresAt = exp
		} else {
			expiresAt = time.Now().Add(time.Duration(g.ExpiresIn) * time.Second)
		}
	}
	return &ProviderSession{
		AccessToken:  g.AccessToken,
		RefreshToken: g.RefreshToken,
		ExpiresAt:    expiresAt,
		User:         *g.User.principal(),
	}
}

// PasswordGrant signs in with email and password.
func (c *Client) PasswordGrant(ctx context.Context, email, password string) (*ProviderSession, error) {
	return c.grant(ctx, "password", map[string]string{"email": email, "password": password})
}

// RefreshGrant exchanges a refresh token for a fresh session.
func (c *Client) RefreshGrant(ctx context.Context, refreshToken string) (*ProviderSession, error) {
	return c.grant(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
}

func (c *Client) grant(ctx context.Context, grantType string, body map[string]string) (*ProviderSession, error) {
	payload, errMarshal := json.Marshal(body)
	if errMarshal != nil {
		return nil, fmt.Errorf("identity: marshal grant: %w", errMarshal)
	}
	url := c.baseURL + "/auth/v1/token?grant_type=" + grantType
	req, errReq := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if errReq != nil {
		return nil, fmt.Errorf("identity: build request: %w", errReq)
	}
	c.setHeaders(req, "")
	req.Header.Set("Content-Type", "application/json")

	resp, errDo := c.httpClient.Do(req)
	if errDo != nil {
		return nil, fmt.Errorf("identity: token grant: %w", errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("identity: token grant failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var grant grantResponse
	if errDecode := json.NewDecoder(resp.Body).Decode(&grant); errDecode != nil {
		return nil, fmt.Errorf("identity: decode grant: %w", errDecode)
	}
	if grant.AccessToken == "" {
		return nil, errors.New("identity: grant returned no access token")
	}
	return grant.session(), nil
}

// SignUp registers a new account with the provider.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) error {
	payload, errMarshal := json.Marshal(map[string]any{
		"email":    email,
		"password": password,
		"data":     metadata,
	})
	if errMarshal != nil {
		return fmt.Errorf("identity: marshal signup: %w", errMarshal)
	}
	req, errReq := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/signup", bytes.NewReader(payload))
	if errReq != nil {
		return fmt.Errorf("identity: build request: %w", errReq)
	}
	c.setHeaders(req, "")
	req.Header.Set("Content-Type", "application/json")

	resp, errDo := c.httpClient.Do(req)
	if errDo != nil {
		return fmt.Errorf("identity: signup: %w", errDo)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("identity: signup failed: status %d", resp.StatusCode)
	}
	return nil
}

// SignOut revokes the provider-side session behind the token.
func (c *Client) SignOut(ctx context.Context, token string) error {
	req, errReq := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/logout", nil)
	if errReq != nil {
		return fmt.Errorf("identity: build request: %w", errReq)
	}
	c.setHeaders(req, token)

	resp, errDo := c.httpClient.Do(req)
	if errDo != nil {
		return fmt.Errorf("identity: signout: %w", errDo)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("identity: signout failed: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request, token string) {
	if c.apiKey != "" {
		req.Header.Set("Apikey", c.apiKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
