package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for the caller-facing rejection taxonomy. Handlers map
// these onto transport status codes; the engine never retries them.
var (
	// ErrNotFound marks an unknown request or bid identifier.
	ErrNotFound = errors.New("not found")
	// ErrNotAuthorized marks an actor without rights over the entity.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrInvalidTransition marks a lifecycle guard violation. Use
	// InvalidTransitionError to carry the attempted edge.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrWindowClosed rejects a bid submitted after the request left PENDING.
	ErrWindowClosed = errors.New("bid window closed")
	// ErrAlreadySelected rejects a withdrawal once the request moved past
	// PENDING.
	ErrAlreadySelected = errors.New("request already selected a bid")
	// ErrBidNotEligible rejects a commit referencing a withdrawn, foreign or
	// unknown bid.
	ErrBidNotEligible = errors.New("bid not eligible")
	// ErrAlreadyAssigned is returned to the losers of a commit race.
	ErrAlreadyAssigned = errors.New("request already assigned")
	// ErrUnavailable marks an exhausted storage-layer fault, the only class
	// distinct from business rejections.
	ErrUnavailable = errors.New("storage unavailable")
)

// InvalidTransitionError reports a rejected lifecycle edge with both states so
// the caller can render an actionable message.
type InvalidTransitionError struct {
	RequestID string
	From      RequestStatus
	To        RequestStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("request %s: invalid transition %s -> %s", e.RequestID, e.From, e.To)
}

// Is matches the ErrInvalidTransition sentinel.
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// NewInvalidTransition builds the error for a rejected edge.
func NewInvalidTransition(requestID string, from, to RequestStatus) error {
	return &InvalidTransitionError{RequestID: requestID, From: from, To: to}
}
