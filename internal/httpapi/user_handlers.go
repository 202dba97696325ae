package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sessionforge/authgate/internal/models"
	"github.com/sessionforge/authgate/internal/session"
)

// UserAdminHandler serves the super-admin user management surface.
type UserAdminHandler struct {
	users *session.UserStore
}

// NewUserAdminHandler constructs a UserAdminHandler.
func NewUserAdminHandler(users *session.UserStore) *UserAdminHandler {
	return &UserAdminHandler{users: users}
}

// List returns every user except SUPER_ADMIN, newest first.
func (h *UserAdminHandler) List(c *gin.Context) {
	rows, errList := h.users.List(c.Request.Context())
	if errList != nil {
		abortWith(c, errUpstreamUnavailable("failed to fetch users"))
		return
	}
	users := make([]userResponse, 0, len(rows))
	for i := range rows {
		users = append(users, newUserResponse(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "users": users})
}

// updateRoleRequest carries a role change. SUPER_ADMIN is deliberately not an
// assignable target, regardless of who asks.
type updateRoleRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// UpdateRole sets a user's role to ADMIN or USER.
func (h *UserAdminHandler) UpdateRole(c *gin.Context) {
	var body updateRoleRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing userId"})
		return
	}
	role := models.Role(body.Role)
	if role != models.RoleAdmin && role != models.RoleUser {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be ADMIN or USER"})
		return
	}

	user, errUpdate := h.users.UpdateRole(c.Request.Context(), body.UserID, role)
	if errUpdate != nil {
		if errors.Is(errUpdate, session.ErrUserNotFound) {
			abortWith(c, errPrincipalNotProvisioned())
			return
		}
		abortWith(c, errUpstreamUnavailable("failed to update user role"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": newUserResponse(user)})
}
