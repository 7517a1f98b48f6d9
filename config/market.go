package config

import (
	"fmt"

	"github.com/mbeaufort/loadboard/core/match"
)

// MarketConfig tunes the scoring model used to rank providers and bids.
type MarketConfig struct {
	PriceWeight       float64 `json:"price_weight"`
	OnTimeWeight      float64 `json:"on_time_weight"`
	ProximityWeight   float64 `json:"proximity_weight"`
	NeutralOnTimeRate float64 `json:"neutral_on_time_rate"`
	ProximityRadiusKm float64 `json:"proximity_radius_km"`
}

func (c *MarketConfig) SetDefaults() {
	if c.PriceWeight == 0 && c.OnTimeWeight == 0 && c.ProximityWeight == 0 {
		w := match.DefaultWeights()
		c.PriceWeight = w.Price
		c.OnTimeWeight = w.OnTime
		c.ProximityWeight = w.Proximity
	}
	if c.NeutralOnTimeRate == 0 {
		c.NeutralOnTimeRate = 0.5
	}
	if c.ProximityRadiusKm == 0 {
		c.ProximityRadiusKm = 500
	}
}

func (c *MarketConfig) Validate() error {
	if c.PriceWeight < 0 || c.OnTimeWeight < 0 || c.ProximityWeight < 0 {
		return fmt.Errorf("market: scoring weights must not be negative")
	}
	if c.NeutralOnTimeRate < 0 || c.NeutralOnTimeRate > 1 {
		return fmt.Errorf("market: neutral_on_time_rate must be in [0,1], got %v", c.NeutralOnTimeRate)
	}
	if c.ProximityRadiusKm <= 0 {
		return fmt.Errorf("market: proximity_radius_km must be positive, got %v", c.ProximityRadiusKm)
	}
	return nil
}

// Weights returns the configured scoring weights.
func (c *MarketConfig) Weights() match.Weights {
	return match.Weights{Price: c.PriceWeight, OnTime: c.OnTimeWeight, Proximity: c.ProximityWeight}
}
