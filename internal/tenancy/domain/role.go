package domain

// Role is one of the three membership tiers within an organization.
type Role string

const (
	RoleStaff   Role = "staff"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known tiers.
func (r Role) Valid() bool {
	switch r {
	case RoleStaff, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// CanManageMembers reports whether the role may invite, remove, or re-role
// other members.
func (r Role) CanManageMembers() bool {
	return r == RoleAdmin
}
