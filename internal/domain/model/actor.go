package model

// Role identifies which side of the marketplace an actor is on.
type Role string

const (
	RoleVendor   Role = "vendor"
	RoleCustomer Role = "customer"
)

// ParseRole reports whether s names a known role.
func ParseRole(s string) (Role, bool) {
	switch role := Role(s); role {
	case RoleVendor, RoleCustomer:
		return role, true
	}
	return "", false
}

// Actor is the authenticated principal behind a request.
type Actor struct {
	ID   string
	Role Role
}

// Participates reports whether the actor is the order's vendor or customer.
func (a Actor) Participates(o Order) bool {
	switch a.Role {
	case RoleVendor:
		return a.ID == o.VendorID
	case RoleCustomer:
		return a.ID == o.CustomerID
	}
	return false
}
