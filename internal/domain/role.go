package domain

import (
	"encoding/json"
	"strings"
)

// Role is the closed set of portal roles. Values outside the set never
// survive decoding.
type Role string

// Known roles.
const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAnalyst Role = "analyst"
	RoleAdmin   Role = "admin"
)

// ParseRole maps a wire value onto the closed role set. Unknown values map
// to RoleUser, the least privileged role.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleManager:
		return RoleManager
	case RoleAnalyst:
		return RoleAnalyst
	case RoleAdmin, "administrator", "superuser":
		return RoleAdmin
	default:
		return RoleUser
	}
}

// SeesAllAutomations reports whether the role bypasses sector scoping.
func (r Role) SeesAllAutomations() bool {
	return r == RoleAdmin || r == RoleManager || r == RoleAnalyst
}

// UnmarshalJSON resolves the role at ingestion time. A null or blank role
// is left empty so the owning entity can default it.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*r = ""
		return nil
	}
	*r = ParseRole(s)
	return nil
}
