package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// apiError is a typed stage failure surfaced verbatim as an HTTP status.
// Handlers never catch and mask one of these.
type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string { return e.Message }

func errQuotaExceeded() *apiError {
	return &apiError{Status: http.StatusTooManyRequests, Code: "QUOTA_EXCEEDED", Message: "too many requests"}
}

func errMissingCredential() *apiError {
	return &apiError{Status: http.StatusUnauthorized, Code: "MISSING_CREDENTIAL", Message: "missing auth token"}
}

func errInvalidCredential() *apiError {
	return &apiError{Status: http.StatusUnauthorized, Code: "INVALID_CREDENTIAL", Message: "invalid or expired token"}
}

func errPrincipalNotProvisioned() *apiError {
	return &apiError{Status: http.StatusNotFound, Code: "PRINCIPAL_NOT_PROVISIONED", Message: "user not found"}
}

func errInsufficientRole() *apiError {
	return &apiError{Status: http.StatusForbidden, Code: "INSUFFICIENT_ROLE", Message: "forbidden"}
}

func errUpstreamUnavailable(msg string) *apiError {
	if msg == "" {
		msg = "upstream unavailable"
	}
	return &apiError{Status: http.StatusInternalServerError, Code: "UPSTREAM_UNAVAILABLE", Message: msg}
}

func abortWith(c *gin.Context, err *apiError) {
	c.AbortWithStatusJSON(err.Status, gin.H{"error": err.Message, "code": err.Code})
}
