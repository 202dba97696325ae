package roles

import "github.com/sessionforge/authgate/internal/models"

// Resolve computes the effective role from the candidate sources. A stored
// database role always wins; a metadata hint applies only when no row role
// exists; everything else falls back to the lowest privilege.
func Resolve(stored models.Role, hint models.Role) models.Role {
	if stored.Valid() {
		return stored
	}
	if hint.Valid() {
		return hint
	}
	return models.RoleUser
}

// AllowSet is an explicit set of roles permitted through a gate. The three
// standard gates are independent allow-sets, not nested checks.
type AllowSet map[models.Role]struct{}

// NewAllowSet builds an AllowSet from the given roles.
func NewAllowSet(rs ...models.Role) AllowSet {
	set := make(AllowSet, len(rs))
	for _, r := range rs {
		set[r] = struct{}{}
	}
	return set
}

// Contains reports whether the role passes the gate.
func (s AllowSet) Contains(r models.Role) bool {
	_, ok := s[r]
	return ok
}

// Standard gates used by the HTTP layer.
var (
	Authenticated = NewAllowSet(models.RoleUser, models.RoleAdmin, models.RoleSuperAdmin)
	AdminOrAbove  = NewAllowSet(models.RoleAdmin, models.RoleSuperAdmin)
	SuperAdmin    = NewAllowSet(models.RoleSuperAdmin)
)
