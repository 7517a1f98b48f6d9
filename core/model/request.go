package model

import (
	"time"

	"github.com/google/uuid"
)

// Address locates one end of a shipment. Region is the coarse service area
// used for eligibility matching, Lat/Lon the coordinates used for proximity
// scoring.
type Address struct {
	Street string  `json:"street,omitempty"`
	City   string  `json:"city,omitempty"`
	Region string  `json:"region"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// ShipmentRequest is a posted shipment needing transport, owned by an agent.
// It is mutated only through the market manager; everything handed out by the
// store is a copy.
type ShipmentRequest struct {
	ID          string        `json:"id"`
	AgentID     string        `json:"agent_id"`
	Pickup      Address       `json:"pickup"`
	Delivery    Address       `json:"delivery"`
	PickupAt    time.Time     `json:"pickup_at"`
	WeightKg    float64       `json:"weight_kg"`
	VolumeM3    float64       `json:"volume_m3"`
	VehicleType string        `json:"vehicle_type"`
	SpecialReqs []string      `json:"special_reqs,omitempty"`
	Status      RequestStatus `json:"status"`
	// WinningBidID is set when the commit succeeds and cleared again on a
	// cancellation from ASSIGNED, so it is non-empty exactly while the
	// request is assigned.
	WinningBidID string    `json:"winning_bid_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewShipmentRequest returns a PENDING request with a fresh identifier.
func NewShipmentRequest(agentID string, pickup, delivery Address, pickupAt time.Time, weightKg, volumeM3 float64, vehicleType string, specialReqs []string) ShipmentRequest {
	return ShipmentRequest{
		ID:          uuid.NewString(),
		AgentID:     agentID,
		Pickup:      pickup,
		Delivery:    delivery,
		PickupAt:    pickupAt,
		WeightKg:    weightKg,
		VolumeM3:    volumeM3,
		VehicleType: vehicleType,
		SpecialReqs: specialReqs,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
}

// Open reports whether the bid collection window is open. The window follows
// the status: it opens at creation and closes on the first transition out of
// PENDING. No timer is involved.
func (r ShipmentRequest) Open() bool { return r.Status == StatusPending }

// Assigned reports whether a winning bid has been committed.
func (r ShipmentRequest) Assigned() bool {
	switch r.Status {
	case StatusAssigned, StatusInTransit, StatusCompleted:
		return true
	default:
		return false
	}
}
