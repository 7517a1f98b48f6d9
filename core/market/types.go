package market

import (
	"context"
	"time"

	"github.com/mbeaufort/loadboard/core/model"
)

// Directory exposes the provider eligibility profiles. It is owned by an
// external system and read-only to the engine.
type Directory interface {
	Provider(ctx context.Context, id string) (model.Provider, error)
	List(ctx context.Context) ([]model.Provider, error)
}

// RequestInput carries the agent-supplied fields of a new shipment request.
type RequestInput struct {
	AgentID     string         `json:"agent_id"`
	Pickup      model.Address  `json:"pickup"`
	Delivery    model.Address  `json:"delivery"`
	PickupAt    time.Time      `json:"pickup_at"`
	WeightKg    float64        `json:"weight_kg"`
	VolumeM3    float64        `json:"volume_m3"`
	VehicleType string         `json:"vehicle_type"`
	SpecialReqs []string       `json:"special_reqs,omitempty"`
}

// BidInput carries the provider-supplied fields of a new bid.
type BidInput struct {
	ProviderID     string           `json:"provider_id"`
	RequestID      string           `json:"request_id"`
	AmountCents    int64            `json:"amount_cents"`
	PickupWindow   model.TimeWindow `json:"pickup_window"`
	DeliveryWindow model.TimeWindow `json:"delivery_window"`
}

// OpenRequest is an open request offered to a provider, scored for that
// provider.
type OpenRequest struct {
	Request model.ShipmentRequest `json:"request"`
	Score   float64               `json:"score"`
}

// AssignmentSnapshot is the read-only view handed to external collaborators
// (such as the instruction-letter renderer) once a request is assigned.
type AssignmentSnapshot struct {
	Request  model.ShipmentRequest `json:"request"`
	Bid      model.Bid             `json:"bid"`
	Provider model.Provider        `json:"provider"`
}
