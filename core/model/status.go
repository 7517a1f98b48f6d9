package model

// RequestStatus is the lifecycle state of a shipment request.
type RequestStatus string

const (
	StatusPending   RequestStatus = "PENDING"
	StatusAssigned  RequestStatus = "ASSIGNED"
	StatusInTransit RequestStatus = "IN_TRANSIT"
	StatusCompleted RequestStatus = "COMPLETED"
	StatusCancelled RequestStatus = "CANCELLED"
)

// transitions lists the allowed lifecycle edges. Anything absent is rejected.
var transitions = map[RequestStatus][]RequestStatus{
	StatusPending:   {StatusAssigned, StatusCancelled},
	StatusAssigned:  {StatusInTransit, StatusCancelled},
	StatusInTransit: {StatusCompleted},
}

// Valid reports whether s is a known status value.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusInTransit, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition can leave s.
func (s RequestStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether the edge s -> to is part of the lifecycle.
func (s RequestStatus) CanTransition(to RequestStatus) bool {
	for _, t := range transitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

func (s RequestStatus) String() string { return string(s) }
