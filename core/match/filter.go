// Package match holds the pure matching primitives: the eligibility filter
// narrowing the provider pool for a request and the ranker ordering eligible
// providers and competing bids.
package match

import "github.com/mbeaufort/loadboard/core/model"

// EligibilityFilter narrows the provider population to those able to service
// a request. Implementations must be pure functions of their inputs.
type EligibilityFilter interface {
	Filter(providers []model.Provider, req model.ShipmentRequest) []model.Provider
}

// CapabilityFilter keeps providers that are active, operate the required
// vehicle type and serve both the pickup and the delivery region.
type CapabilityFilter struct{}

func (CapabilityFilter) Filter(providers []model.Provider, req model.ShipmentRequest) []model.Provider {
	var res []model.Provider
	for _, p := range providers {
		if p.Suspended {
			continue
		}
		if !p.Supports(req.VehicleType) {
			continue
		}
		if !p.Serves(req.Pickup.Region) || !p.Serves(req.Delivery.Region) {
			continue
		}
		res = append(res, p)
	}
	return res
}
