package domain

// Role identifies the kind of actor interacting with the marketplace.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
	RoleGuest    Role = "guest"
)

// ParseRole validates a raw role value.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleCustomer, RoleVendor, RoleAdmin, RoleGuest:
		return Role(raw), true
	}
	return "", false
}

// Capability names a privileged operation on the support subsystem.
type Capability string

const (
	// CapListAllTickets allows unrestricted listing and search.
	CapListAllTickets Capability = "tickets:list_all"
	// CapUpdateTicketStatus allows status/notes mutation.
	CapUpdateTicketStatus Capability = "tickets:update_status"
	// CapListOwnTickets allows listing tickets scoped to the caller's
	// own submitter identity.
	CapListOwnTickets Capability = "tickets:list_own"
)

// roleCapabilities is the capability table. Role checks go through Can
// rather than ad hoc string comparisons scattered around the codebase.
var roleCapabilities = map[Role]map[Capability]struct{}{
	RoleAdmin: {
		CapListAllTickets:     {},
		CapUpdateTicketStatus: {},
		CapListOwnTickets:     {},
	},
	RoleCustomer: {
		CapListOwnTickets: {},
	},
	RoleVendor: {
		CapListOwnTickets: {},
	},
	RoleGuest: {},
}

// Can reports whether the role holds the capability.
func (r Role) Can(capability Capability) bool {
	caps, ok := roleCapabilities[r]
	if !ok {
		return false
	}
	_, ok = caps[capability]
	return ok
}
