package domain

import (
	"fmt"
	"strings"
)

// RoleName is the closed set of roles a user can hold.
type RoleName string

const (
	RoleAdmin  RoleName = "ADMIN"
	RoleSeller RoleName = "SELLER"
	RoleBuyer  RoleName = "BUYER"
)

var allRoles = []RoleName{RoleAdmin, RoleSeller, RoleBuyer}

// AllRoles returns every role of the catalog in a stable order.
func AllRoles() []RoleName {
	out := make([]RoleName, len(allRoles))
	copy(out, allRoles)
	return out
}

func (r RoleName) Valid() bool {
	for _, known := range allRoles {
		if r == known {
			return true
		}
	}
	return false
}

func (r RoleName) String() string { return string(r) }

// Authority is the role as seen by authorization checks.
func (r RoleName) Authority() string { return "ROLE_" + string(r) }

// ParseRoleName accepts the bare name or the ROLE_ prefixed authority, case-insensitive.
func ParseRoleName(s string) (RoleName, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, "ROLE_")
	r := RoleName(name)
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrNotFound, s)
	}
	return r, nil
}
