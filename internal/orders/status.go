package orders

import "github.com/mkulima/sokoni/internal/apperr"

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
	StatusReturned   Status = "RETURNED"
)

var statuses = map[Status]bool{
	StatusPending:    true,
	StatusConfirmed:  true,
	StatusProcessing: true,
	StatusShipped:    true,
	StatusDelivered:  true,
	StatusCancelled:  true,
	StatusReturned:   true,
}

// ParseStatus validates an incoming status string against the enum.
// Transitions themselves are unconstrained: any status may follow any
// other (admin-driven corrections included).
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !statuses[st] {
		return "", apperr.InvalidArgument("unknown order status %q", s)
	}
	return st, nil
}
