package enums

import "fmt"

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleFarmer Role = "farmer"
	RoleBuyer  Role = "buyer"
)

var validRoles = []Role{
	RoleAdmin,
	RoleFarmer,
	RoleBuyer,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// CanSell reports whether the role may create produce listings.
func (r Role) CanSell() bool {
	return r == RoleFarmer
}

// CanBuy reports whether the role may bid or purchase on the marketplace.
func (r Role) CanBuy() bool {
	return r == RoleBuyer
}

// CanAdminister reports whether the role may manage slots, schemes and approvals.
func (r Role) CanAdminister() bool {
	return r == RoleAdmin
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
