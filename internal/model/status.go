package model

import "fmt"

// Status is both the eventType of a DeliveryEvent and the current status of a
// DeliveryProjection: applying an event means adopting its type as the new
// status, if the transition is legal.
type Status string

const (
	StatusPending       Status = "PENDING"
	StatusTransit       Status = "TRANSIT"
	StatusCanceled      Status = "CANCELED"
	StatusDelivered     Status = "DELIVERED"
	StatusPendingReturn Status = "PENDING_RETURN"
	StatusTransitReturn Status = "TRANSIT_RETURN"
	StatusReturned      Status = "RETURNED"
)

// transitions maps a current status to the event types it accepts.
// CANCELED and RETURNED are terminal: no entry, nothing is accepted.
var transitions = map[Status][]Status{
	StatusPending:       {StatusPending, StatusTransit},
	StatusTransit:       {StatusTransit, StatusCanceled, StatusDelivered},
	StatusDelivered:     {StatusPendingReturn},
	StatusPendingReturn: {StatusTransitReturn},
	StatusTransitReturn: {StatusTransitReturn, StatusReturned},
}

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status: %s", raw)
	}
	return s, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusTransit, StatusCanceled, StatusDelivered,
		StatusPendingReturn, StatusTransitReturn, StatusReturned:
		return true
	}
	return false
}

// Terminal reports whether no further events are accepted from s.
func (s Status) Terminal() bool {
	return s == StatusCanceled || s == StatusReturned
}

// CanTransitionTo reports whether an event of type next is accepted while the
// delivery is in status s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) String() string { return string(s) }
