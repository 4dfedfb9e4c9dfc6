package order

import (
	"errors"
	"fmt"
	"strings"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusPaid       Status = "PAID"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

var ErrInvalidStatus = errors.New("invalid order status")

// transitions lists the forward moves an administrator may make without an
// override. Statuses absent from the map are terminal.
var transitions = map[Status][]Status{
	StatusPending:    {StatusPaid, StatusCancelled},
	StatusPaid:       {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
}

var allStatuses = []Status{
	StatusPending,
	StatusPaid,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

// AllStatuses returns the statuses in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus normalizes s and checks it against the known statuses.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	for _, st := range allStatuses {
		if s == st {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	_, ok := transitions[s]
	return s.Valid() && !ok
}

// CanTransition reports whether from -> to is an allowed move. Re-applying the
// current status is always allowed so tracking numbers can be amended.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Revenue statuses count towards dashboard revenue.
func (s Status) Revenue() bool {
	switch s {
	case StatusPaid, StatusProcessing, StatusShipped, StatusDelivered:
		return true
	}
	return false
}
