// Package authroles maps identity provider groups to portal roles.
package authroles

import (
	domainauth "github.com/civicconnect/portal/internal/domain/auth"
	"github.com/civicconnect/portal/internal/ports"
)

// StaticRoleMapper assigns a role by exact group membership. Groups are
// checked in privilege order: admin, department head, moderator. Everyone
// else is a citizen.
type StaticRoleMapper struct {
	AdminGroup          string
	DepartmentHeadGroup string
	ModeratorGroup      string
}

var _ ports.RoleMapper = StaticRoleMapper{}

// Map returns the most privileged role granted by groups.
func (m StaticRoleMapper) Map(groups []string) domainauth.Role {
	rules := []struct {
		group string
		role  domainauth.Role
	}{
		{m.AdminGroup, domainauth.RoleAdmin},
		{m.DepartmentHeadGroup, domainauth.RoleDepartmentHead},
		{m.ModeratorGroup, domainauth.RoleModerator},
	}
	for _, rule := range rules {
		if rule.group == "" {
			continue
		}
		for _, g := range groups {
			if g == rule.group {
				return rule.role
			}
		}
	}
	return domainauth.RoleCitizen
}
