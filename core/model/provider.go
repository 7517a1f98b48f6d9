package model

// Provider is a transport provider's eligibility profile. It is owned by the
// provider directory and read-only to the matching engine.
type Provider struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	VehicleTypes   []string `json:"vehicle_types"`
	ServiceRegions []string `json:"service_regions"`
	// RegionLat/RegionLon is the declared centroid of the provider's service
	// area, used for proximity scoring.
	RegionLat float64 `json:"region_lat"`
	RegionLon float64 `json:"region_lon"`
	// Delivery history backing the on-time rate.
	OnTimeDeliveries int  `json:"on_time_deliveries"`
	TotalDeliveries  int  `json:"total_deliveries"`
	Suspended        bool `json:"suspended"`
}

// Supports reports whether the provider operates the given vehicle type.
func (p Provider) Supports(vehicleType string) bool {
	for _, t := range p.VehicleTypes {
		if t == vehicleType {
			return true
		}
	}
	return false
}

// Serves reports whether the provider operates in the given region.
func (p Provider) Serves(region string) bool {
	for _, r := range p.ServiceRegions {
		if r == region {
			return true
		}
	}
	return false
}

// OnTimeRate returns the historical on-time delivery rate. ok is false when
// the provider has no delivery history.
func (p Provider) OnTimeRate() (rate float64, ok bool) {
	if p.TotalDeliveries == 0 {
		return 0, false
	}
	return float64(p.OnTimeDeliveries) / float64(p.TotalDeliveries), true
}
