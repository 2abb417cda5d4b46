package service

import "github.com/aussiebroadwan/tenancy/internal/tenancy/domain"

// ResolveRole picks the effective role for a member of org. Precedence:
//
//  1. the role on the membership record itself,
//  2. the organization's legacy default role (older records carried the role
//     on the organization rather than the membership),
//  3. staff.
//
// membership may be nil when the record could not be loaded; resolution still
// returns a usable role rather than failing the session.
func ResolveRole(membership *domain.Membership, org domain.Organization) domain.Role {
	if membership != nil && membership.Role.Valid() {
		return membership.Role
	}
	if org.DefaultRole.Valid() {
		return org.DefaultRole
	}
	return domain.RoleStaff
}
