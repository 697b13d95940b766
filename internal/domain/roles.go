package domain

import "fmt"

// Role is a closed variant over the two account kinds. Capability checks hang
// off the type so call sites ask "can this role do X" instead of comparing
// strings.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// ParseRole validates a stored role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleTeacher, RoleStudent:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// CanTakeQuizzes reports whether the role may start attempts and earn XP.
func (r Role) CanTakeQuizzes() bool {
	return r == RoleStudent
}

// CanManageRoster reports whether the role may create accounts and groups.
func (r Role) CanManageRoster() bool {
	return r == RoleTeacher
}
