package domain

// Role is the account type of a customer.
type Role string

const (
	RoleUser         Role = "user"
	RoleNetworkOwner Role = "network-owner"
	RoleAdmin        Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleNetworkOwner, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authorization capability of the caller, resolved once per request
// and passed by value into every core operation.
type Actor struct {
	CustomerID     string
	Role           Role
	OwnedNetworkID string
}

// IsAdmin reports whether the actor has the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanActFor reports whether the actor may operate on the given customer's wallet.
func (a Actor) CanActFor(customerID string) bool {
	return a.IsAdmin() || (a.CustomerID != "" && a.CustomerID == customerID)
}

// OwnsNetwork reports whether the actor owns networkID or is an admin.
func (a Actor) OwnsNetwork(networkID string) bool {
	if a.IsAdmin() {
		return true
	}
	return a.Role == RoleNetworkOwner && a.OwnedNetworkID != "" && a.OwnedNetworkID == networkID
}
