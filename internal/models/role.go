package models

// Role is the privilege level assigned to a user account.
type Role string

const (
	// RoleUser is the default, lowest-privilege role.
	RoleUser Role = "USER"
	// RoleAdmin can access administrative read surfaces.
	RoleAdmin Role = "ADMIN"
	// RoleSuperAdmin can manage other users' roles.
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}
