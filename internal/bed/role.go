package bed

import (
	"fmt"
	"strings"
)

// Role tags the provenance of a transcript when several sources are packed together.
type Role uint8

const (
	RoleNone Role = iota
	RoleRef
	RoleQuery
)

func (r Role) String() string {
	switch r {
	case RoleRef:
		return "ref"
	case RoleQuery:
		return "query"
	default:
		return "none"
	}
}

// ParseRole converts a CLI/config role name to a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ref", "reference":
		return RoleRef, nil
	case "query", "qry":
		return RoleQuery, nil
	case "", "none":
		return RoleNone, nil
	}
	return RoleNone, fmt.Errorf("unknown role %q (want ref or query)", s)
}
