package httpapi

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/sessionforge/authgate/internal/identity"
	"github.com/sessionforge/authgate/internal/models"
	"github.com/sessionforge/authgate/internal/ratelimit"
	"github.com/sessionforge/authgate/internal/roles"
	"github.com/sessionforge/authgate/internal/session"
)

// Context keys set by the middleware chain. Enrichment is additive only; a
// later stage never removes what a prior stage set.
const (
	ctxKeyPrincipal = "principal"
	ctxKeyToken     = "authToken"
	ctxKeyRole      = "effectiveRole"
)

// PrincipalFrom returns the verified principal set by Authenticate.
func PrincipalFrom(c *gin.Context) *identity.Principal {
	value, ok := c.Get(ctxKeyPrincipal)
	if !ok {
		return nil
	}
	principal, _ := value.(*identity.Principal)
	return principal
}

// TokenFrom returns the raw credential set by Authenticate.
func TokenFrom(c *gin.Context) string {
	return c.GetString(ctxKeyToken)
}

// RoleFrom returns the effective role set by RequireRoles.
func RoleFrom(c *gin.Context) models.Role {
	return models.Role(c.GetString(ctxKeyRole))
}

// RateLimit throttles per (caller, route) and attaches quota headers. Public
// routes skip authentication but never skip this stage.
func RateLimit(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := limiter.Check(c.Request.Context(), ratelimit.CallerIP(c.Request), c.Request.URL.Path)
		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			abortWith(c, errQuotaExceeded())
			return
		}
		c.Next()
	}
}

// Authenticate locates the credential via the extractors (first match wins)
// and verifies it against the identity provider on every request.
func Authenticate(verifier identity.Verifier, extractors ...TokenExtractor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		for _, extractor := range extractors {
			if raw, ok := extractor.Extract(c.Request); ok {
				token = raw
				break
			}
		}
		if token == "" {
			abortWith(c, errMissingCredential())
			return
		}

		principal, errVerify := verifier.VerifyToken(c.Request.Context(), token)
		if errVerify != nil {
			if errors.Is(errVerify, identity.ErrInvalidToken) {
				abortWith(c, errInvalidCredential())
				return
			}
			log.WithError(errVerify).Error("auth: identity provider verification failed")
			abortWith(c, errUpstreamUnavailable("identity provider unavailable"))
			return
		}

		c.Set(ctxKeyPrincipal, principal)
		c.Set(ctxKeyToken, token)
		c.Next()
	}
}

// RequireRoles gates the request on an explicit allow-set, resolving the
// effective role from the stored row first, the principal metadata hint
// second, USER last.
func RequireRoles(users *session.UserStore, allow roles.AllowSet) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := PrincipalFrom(c)
		if principal == nil {
			abortWith(c, errMissingCredential())
			return
		}

		user, errFind := users.Find(c.Request.Context(), principal.ID)
		if errFind != nil {
			if errors.Is(errFind, session.ErrUserNotFound) {
				abortWith(c, errPrincipalNotProvisioned())
				return
			}
			log.WithError(errFind).Error("auth: user lookup failed")
			abortWith(c, errUpstreamUnavailable("user store unavailable"))
			return
		}

		effective := roles.Resolve(user.Role, principal.RoleHint())
		if !allow.Contains(effective) {
			abortWith(c, errInsufficientRole())
			return
		}
		c.Set(ctxKeyRole, string(effective))
		c.Next()
	}
}
