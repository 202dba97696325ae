package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sessionforge/authgate/internal/models"
	"github.com/sessionforge/authgate/internal/ratelimit"
	"github.com/sessionforge/authgate/internal/session"
)

// SessionHandler serves the session sync surface the client monitor talks to.
type SessionHandler struct {
	sessions *session.Store
	users    *session.UserStore
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(sessions *session.Store, users *session.UserStore) *SessionHandler {
	return &SessionHandler{sessions: sessions, users: users}
}

type userResponse struct {
	ID            string      `json:"id"`
	Email         string      `json:"email"`
	Name          string      `json:"name"`
	Role          models.Role `json:"role"`
	EmailVerified *time.Time  `json:"emailVerified"`
	CreatedAt     time.Time   `json:"createdAt"`
}

type sessionResponse struct {
	Token        string    `json:"token"`
	DeviceID     string    `json:"deviceId"`
	UserID       string    `json:"userId"`
	ExpiresAt    time.Time `json:"expiresAt"`
	LastActivity time.Time `json:"lastActivity"`
	UserAgent    string    `json:"userAgent,omitempty"`
	IPAddress    string    `json:"ipAddress,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func newUserResponse(user *models.User) userResponse {
	return userResponse{
		ID:            user.ID,
		Email:         user.Email,
		Name:          user.Name,
		Role:          user.Role,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
	}
}

func newSessionResponse(row *models.Session) sessionResponse {
	return sessionResponse{
		Token:        row.Token,
		DeviceID:     row.DeviceID,
		UserID:       row.UserID,
		ExpiresAt:    row.ExpiresAt,
		LastActivity: row.LastActivity,
		UserAgent:    row.UserAgent,
		IPAddress:    row.IPAddress,
		CreatedAt:    row.CreatedAt,
	}
}

// syncRequest is the canonical sync contract: device ID plus an optional role
// hint.
type syncRequest struct {
	UserID        string     `json:"userId"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	EmailVerified *time.Time `json:"emailVerified"`
	DeviceID      string     `json:"deviceId"`
	Role          string     `json:"role"`
}

// Sync upserts the caller's user row and session row in one call. The user
// identity comes from the verified principal, never from the body alone.
func (h *SessionHandler) Sync(c *gin.Context) {
	var body syncRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	principal := PrincipalFrom(c)
	if strings.TrimSpace(body.DeviceID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing deviceId"})
		return
	}
	if body.UserID != "" && body.UserID != principal.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId does not match credential"})
		return
	}
	email := strings.TrimSpace(body.Email)
	if email == "" {
		email = principal.Email
	}
	if body.Role != "" && !models.Role(body.Role).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}

	// The metadata hint outranks the body hint; both only matter for brand
	// new rows.
	hint := principal.RoleHint()
	if hint == "" {
		hint = models.Role(body.Role)
	}

	user, errSync := h.users.Sync(c.Request.Context(), session.SyncParams{
		ID:            principal.ID,
		Email:         email,
		Name:          strings.TrimSpace(body.Name),
		EmailVerified: body.EmailVerified,
		RoleHint:      hint,
	})
	if errSync != nil {
		abortWith(c, errUpstreamUnavailable("failed to sync user"))
		return
	}

	row, errUpsert := h.sessions.Upsert(c.Request.Context(), TokenFrom(c), body.DeviceID, user.ID, session.RequestMeta{
		UserAgent:  c.Request.UserAgent(),
		IPAddress:  ratelimit.CallerIP(c.Request),
		LastSignIn: principal.LastSignInAt,
	})
	if errUpsert != nil {
		abortWith(c, errUpstreamUnavailable("failed to sync session"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    newUserResponse(user),
		"session": newSessionResponse(row),
	})
}

// Role returns the caller's stored role.
func (h *SessionHandler) Role(c *gin.Context) {
	principal := PrincipalFrom(c)
	user, errFind := h.users.Find(c.Request.Context(), principal.ID)
	if errFind != nil {
		if errors.Is(errFind, session.ErrUserNotFound) {
			abortWith(c, errPrincipalNotProvisioned())
			return
		}
		abortWith(c, errUpstreamUnavailable("failed to get user role"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "role": user.Role})
}

// updateRequest carries the token-refresh payload.
type updateRequest struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// Update refreshes expiry and last-activity after a provider token refresh.
func (h *SessionHandler) Update(c *gin.Context) {
	var body updateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Token == "" || body.ExpiresAt <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing token or expiresAt"})
		return
	}

	row, errRefresh := h.sessions.RefreshExpiry(c.Request.Context(), body.Token, time.Unix(body.ExpiresAt, 0))
	if errRefresh != nil {
		if errors.Is(errRefresh, session.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		abortWith(c, errUpstreamUnavailable("failed to update session"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session": newSessionResponse(row)})
}

// Logout deletes the caller's session rows; deleting none is fine.
func (h *SessionHandler) Logout(c *gin.Context) {
	if errDelete := h.sessions.DeleteByToken(c.Request.Context(), TokenFrom(c)); errDelete != nil {
		abortWith(c, errUpstreamUnavailable("failed to logout"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// cleanupRequest carries the device whose stale rows should go.
type cleanupRequest struct {
	DeviceID string `json:"deviceId"`
}

// Cleanup deletes expired or inactive rows for the caller on one device.
func (h *SessionHandler) Cleanup(c *gin.Context) {
	var body cleanupRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.DeviceID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing deviceId"})
		return
	}

	principal := PrincipalFrom(c)
	deleted, errCleanup := h.sessions.CleanupStale(c.Request.Context(), body.DeviceID, principal.ID)
	if errCleanup != nil {
		abortWith(c, errUpstreamUnavailable("failed to cleanup sessions"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": deleted})
}
