package domain

// Status is the kitchen/floor lifecycle stage of an order.
type Status string

const (
	StatusPlaced    Status = "placed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusServed    Status = "served"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// PaymentStatus tracks the payment leg independently of the kitchen lifecycle.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentCancelled  PaymentStatus = "cancelled"
)

// Role is a closed enumeration of staff roles.
type Role string

const (
	RoleCook    Role = "cook"
	RoleWaiter  Role = "waiter"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// stageOrder positions each progressable status on the forward path.
// Cancelled is absent on purpose: it is reachable from any non-terminal
// state and sits outside the ordering.
var stageOrder = map[Status]int{
	StatusPlaced:    0,
	StatusPreparing: 1,
	StatusReady:     2,
	StatusServed:    3,
	StatusPaid:      4,
}

// transitionRoles is the static permission table: target status -> roles
// allowed to set it.
var transitionRoles = map[Status][]Role{
	StatusPreparing: {RoleCook, RoleManager, RoleAdmin},
	StatusReady:     {RoleCook, RoleManager, RoleAdmin},
	StatusServed:    {RoleWaiter, RoleManager, RoleAdmin},
	StatusPaid:      {RoleWaiter, RoleManager, RoleAdmin},
	StatusCancelled: {RoleCook, RoleManager, RoleAdmin},
}

// RoleCanSet reports whether role is permitted to move an order to target.
func RoleCanSet(role Role, target Status) bool {
	for _, r := range transitionRoles[target] {
		if r == role {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s is a known lifecycle status.
func ValidStatus(s Status) bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := stageOrder[s]
	return ok
}

// ValidRole reports whether r is a known staff role.
func ValidRole(r Role) bool {
	switch r {
	case RoleCook, RoleWaiter, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// IsTerminal reports whether s permits no further transitions.
func IsTerminal(s Status) bool {
	return s == StatusPaid || s == StatusCancelled
}

// EventName returns the fan-out event name for a status. Cancelled uses
// the single-l spelling on the wire.
func EventName(s Status) string {
	if s == StatusCancelled {
		return "canceled"
	}
	return string(s)
}
