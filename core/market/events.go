package market

import (
	"time"

	"github.com/mbeaufort/loadboard/core/model"
)

// EventKind names a marketplace lifecycle event.
type EventKind string

const (
	EventRequestOpened       EventKind = "request_opened"
	EventBidSubmitted        EventKind = "bid_submitted"
	EventBidWithdrawn        EventKind = "bid_withdrawn"
	EventAssignmentCommitted EventKind = "assignment_committed"
	EventRequestCancelled    EventKind = "request_cancelled"
	EventPickupConfirmed     EventKind = "pickup_confirmed"
	EventDeliveryConfirmed   EventKind = "delivery_confirmed"
)

// Event is published on the bus after a mutation succeeds. Identifier fields
// not relevant to the kind are left empty.
type Event struct {
	Kind       EventKind           `json:"kind"`
	RequestID  string              `json:"request_id"`
	AgentID    string              `json:"agent_id,omitempty"`
	BidID      string              `json:"bid_id,omitempty"`
	ProviderID string              `json:"provider_id,omitempty"`
	Status     model.RequestStatus `json:"status,omitempty"`
	Time       time.Time           `json:"time"`
}
