package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sessionforge/authgate/internal/identity"
	"github.com/sessionforge/authgate/internal/ratelimit"
	"github.com/sessionforge/authgate/internal/roles"
	"github.com/sessionforge/authgate/internal/session"
)

// Deps bundles what the route table needs.
type Deps struct {
	DB       *gorm.DB
	Limiter  *ratelimit.Limiter
	Verifier identity.Verifier
	Sessions *session.Store
	Users    *session.UserStore
	// CookieName enables the cookie credential transport when non-empty.
	CookieName string
}

// RegisterRoutes wires the middleware chain in fixed order: rate-limit,
// authenticate, role-check. Public routes skip the latter two but never the
// limiter.
func RegisterRoutes(r *gin.Engine, deps Deps) {
	r.Use(RateLimit(deps.Limiter))

	extractors := []TokenExtractor{BearerExtractor{}}
	if deps.CookieName != "" {
		extractors = append(extractors, CookieExtractor{Name: deps.CookieName})
	}
	authed := Authenticate(deps.Verifier, extractors...)

	healthHandler := NewHealthHandler(deps.DB)
	r.GET("/healthz", healthHandler.Healthz)

	api := r.Group("/api")

	// Public probe endpoint for exercising the limiter end to end.
	api.GET("/test/rate-limit", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "ok"})
	})

	sessionHandler := NewSessionHandler(deps.Sessions, deps.Users)
	sessionGroup := api.Group("/session")
	sessionGroup.Use(authed)
	sessionGroup.POST("/sync", sessionHandler.Sync)
	sessionGroup.GET("/role", sessionHandler.Role)
	sessionGroup.POST("/update", sessionHandler.Update)
	sessionGroup.POST("/logout", sessionHandler.Logout)
	sessionGroup.POST("/cleanup", sessionHandler.Cleanup)

	userHandler := NewUserAdminHandler(deps.Users)
	usersGroup := api.Group("/users")
	usersGroup.Use(authed, RequireRoles(deps.Users, roles.SuperAdmin))
	usersGroup.GET("/list", userHandler.List)
	usersGroup.POST("/update-role", userHandler.UpdateRole)
}
