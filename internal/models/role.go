package models

// Role is the closed set of global capability tiers. Keeping it a dedicated
// type forces call sites through the constants below instead of ad hoc string
// comparisons.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleUser       Role = "USER"
)

// ParseRole maps a wire value onto the closed role set.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleSuperAdmin, RoleAdmin, RoleUser:
		return Role(s), true
	}
	return "", false
}

// Status is the account lifecycle state.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusActive, StatusInactive:
		return Status(s), true
	}
	return "", false
}
