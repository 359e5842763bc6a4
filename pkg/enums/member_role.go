package enums

import (
	"fmt"
	"strings"
)

// MemberRole is the actor's role inside a tenant, carried in the access token.
// Roles are ordered: an owner can do everything an admin can, and an admin
// everything staff can.
type MemberRole string

const (
	MemberRoleOwner MemberRole = "owner"
	MemberRoleAdmin MemberRole = "admin"
	MemberRoleStaff MemberRole = "staff"
)

var memberRoleRank = map[MemberRole]int{
	MemberRoleStaff: 1,
	MemberRoleAdmin: 2,
	MemberRoleOwner: 3,
}

func (m MemberRole) String() string {
	return string(m)
}

func (m MemberRole) IsValid() bool {
	_, ok := memberRoleRank[m]
	return ok
}

// AtLeast reports whether m carries the privileges of minimum. Unknown roles
// satisfy nothing.
func (m MemberRole) AtLeast(minimum MemberRole) bool {
	have, ok := memberRoleRank[m]
	if !ok {
		return false
	}
	return have >= memberRoleRank[minimum]
}

// ParseMemberRole accepts role names case-insensitively.
func ParseMemberRole(value string) (MemberRole, error) {
	role := MemberRole(strings.ToLower(strings.TrimSpace(value)))
	if !role.IsValid() {
		return "", fmt.Errorf("invalid member role %q", value)
	}
	return role, nil
}
