package httpapi

import (
	"net/http"
	"strings"

	"github.com/sessionforge/authgate/internal/identity"
)

// TokenExtractor locates a raw credential on a request, returning a typed
// absence instead of an empty-string convention.
type TokenExtractor interface {
	Extract(r *http.Request) (string, bool)
}

// BearerExtractor reads the Authorization header.
type BearerExtractor struct{}

// Extract returns the bearer token when the header carries one.
func (BearerExtractor) Extract(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// CookieExtractor reads the provider auth cookie holding a JSON token bundle.
type CookieExtractor struct {
	Name string
}

// Extract parses the access token out of the cookie bundle.
func (e CookieExtractor) Extract(r *http.Request) (string, bool) {
	if e.Name == "" {
		return "", false
	}
	cookie, errCookie := r.Cookie(e.Name)
	if errCookie != nil || cookie.Value == "" {
		return "", false
	}
	bundle, errParse := identity.ParseTokenBundle(cookie.Value)
	if errParse != nil {
		return "", false
	}
	return bundle.AccessToken, true
}
