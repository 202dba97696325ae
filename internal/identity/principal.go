package identity

import (
	"time"

	"github.com/sessionforge/authgate/internal/models"
)

// Principal is the provider-verified identity behind a credential. It is
// produced fresh for every verified request and never cached.
type Principal struct {
	ID              string
	Email           string
	Metadata        map[string]any
	LastSignInAt    *time.Time
	EmailVerifiedAt *time.Time
}

// RoleHint returns the role carried in the principal metadata, if any. The
// hint only matters for users that have no stored row yet.
func (p *Principal) RoleHint() models.Role {
	if p == nil || p.Metadata == nil {
		return ""
	}
	raw, ok := p.Metadata["role"].(string)
	if !ok {
		return ""
	}
	role := models.Role(raw)
	if !role.Valid() {
		return ""
	}
	return role
}
