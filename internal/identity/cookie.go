package identity

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"
)

// CookieName returns the provider auth cookie name for a project identifier.
func CookieName(projectRef string) string {
	return "sb-" + projectRef + "-auth-token"
}

// TokenBundle is the JSON-encoded credential bundle the provider stores in
// its auth cookie.
type TokenBundle struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ParseTokenBundle decodes a cookie value into a TokenBundle. Values may be
// URL-encoded by the browser.
func ParseTokenBundle(raw string) (TokenBundle, error) {
	decoded, errDecode := url.QueryUnescape(raw)
	if errDecode != nil {
		decoded = raw
	}
	decoded = strings.TrimSpace(decoded)

	var bundle TokenBundle
	if errUnmarshal := json.Unmarshal([]byte(decoded), &bundle); errUnmarshal != nil {
		return TokenBundle{}, errors.New("identity: malformed auth cookie")
	}
	if bundle.AccessToken == "" {
		return TokenBundle{}, errors.New("identity: auth cookie has no access token")
	}
	return bundle, nil
}
