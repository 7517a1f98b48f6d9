package match

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/mbeaufort/loadboard/core/model"
)

// Weights control the relative importance of the scoring terms. They are
// normalized to sum to one when the ranker is built; ranking bids uses all
// three, ranking providers pre-bid drops the price term and renormalizes the
// remainder.
type Weights struct {
	Price     float64 `json:"price"`
	OnTime    float64 `json:"onTime"`
	Proximity float64 `json:"proximity"`
}

// DefaultWeights favours price, then reliability, then proximity.
func DefaultWeights() Weights {
	return Weights{Price: 0.5, OnTime: 0.3, Proximity: 0.2}
}

// Ranker orders candidates by a deterministic weighted score. It is pure:
// re-running it on unchanged inputs yields an identical ordering, so agents
// may re-rank at any time while a request is open.
type Ranker struct {
	weights Weights
	// neutral is the on-time rate assumed for providers without history.
	neutral float64
	// radiusKm bounds the proximity term: distances at or beyond it score 0.
	radiusKm float64
}

// RankedProvider is an eligible provider with its pre-bid score.
type RankedProvider struct {
	Provider model.Provider `json:"provider"`
	Score    float64        `json:"score"`
}

// RankedBid is a bid with its score. Provider carries the bidder's profile
// snapshot used for the non-price terms.
type RankedBid struct {
	Bid      model.Bid      `json:"bid"`
	Provider model.Provider `json:"provider"`
	Score    float64        `json:"score"`
}

// NewRanker builds a Ranker from weights. Non-positive weights are clamped to
// zero; if all weights vanish the defaults apply.
func NewRanker(w Weights, neutralOnTimeRate, proximityRadiusKm float64) Ranker {
	v := []float64{math.Max(w.Price, 0), math.Max(w.OnTime, 0), math.Max(w.Proximity, 0)}
	if floats.Sum(v) == 0 {
		d := DefaultWeights()
		v = []float64{d.Price, d.OnTime, d.Proximity}
	}
	floats.Scale(1/floats.Sum(v), v)
	if neutralOnTimeRate <= 0 || neutralOnTimeRate > 1 {
		neutralOnTimeRate = 0.5
	}
	if proximityRadiusKm <= 0 {
		proximityRadiusKm = 500
	}
	return Ranker{
		weights:  Weights{Price: v[0], OnTime: v[1], Proximity: v[2]},
		neutral:  neutralOnTimeRate,
		radiusKm: proximityRadiusKm,
	}
}

// RankProviders orders eligible providers for a request before any bid
// exists. Only the on-time and proximity terms apply, renormalized to sum to
// one. Ties break on lower provider identifier.
func (rk Ranker) RankProviders(providers []model.Provider, req model.ShipmentRequest) []RankedProvider {
	wSum := rk.weights.OnTime + rk.weights.Proximity
	res := make([]RankedProvider, 0, len(providers))
	for _, p := range providers {
		s := rk.weights.OnTime*rk.onTimeTerm(p) + rk.weights.Proximity*rk.proximityTerm(p, req)
		if wSum > 0 {
			s /= wSum
		}
		res = append(res, RankedProvider{Provider: p, Score: s})
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Score != res[j].Score {
			return res[i].Score > res[j].Score
		}
		return res[i].Provider.ID < res[j].Provider.ID
	})
	return res
}

// RankBids orders the selectable bids of one request. providers maps the
// bidders' identifiers to their profiles; bids from unknown providers score
// with neutral history and zero proximity rather than being dropped. Ties
// break on earlier submission, then lower provider identifier, then lower bid
// identifier.
func (rk Ranker) RankBids(bids []model.Bid, providers map[string]model.Provider, req model.ShipmentRequest) []RankedBid {
	// Minimum over the positive amounts only, so a malformed non-positive
	// amount cannot displace the true cheapest quote.
	var minAmount int64
	for _, b := range bids {
		if b.AmountCents > 0 && (minAmount == 0 || b.AmountCents < minAmount) {
			minAmount = b.AmountCents
		}
	}
	res := make([]RankedBid, 0, len(bids))
	for _, b := range bids {
		p := providers[b.ProviderID]
		price := 0.0
		if b.AmountCents > 0 {
			price = float64(minAmount) / float64(b.AmountCents)
		}
		s := rk.weights.Price*price + rk.weights.OnTime*rk.onTimeTerm(p) + rk.weights.Proximity*rk.proximityTerm(p, req)
		res = append(res, RankedBid{Bid: b, Provider: p, Score: s})
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Score != res[j].Score {
			return res[i].Score > res[j].Score
		}
		if !res[i].Bid.SubmittedAt.Equal(res[j].Bid.SubmittedAt) {
			return res[i].Bid.SubmittedAt.Before(res[j].Bid.SubmittedAt)
		}
		if res[i].Bid.ProviderID != res[j].Bid.ProviderID {
			return res[i].Bid.ProviderID < res[j].Bid.ProviderID
		}
		return res[i].Bid.ID < res[j].Bid.ID
	})
	return res
}

func (rk Ranker) onTimeTerm(p model.Provider) float64 {
	if rate, ok := p.OnTimeRate(); ok {
		return rate
	}
	return rk.neutral
}

// proximityTerm maps the distance between the provider's region centroid and
// the pickup point onto [0,1], 1 meaning co-located.
func (rk Ranker) proximityTerm(p model.Provider, req model.ShipmentRequest) float64 {
	if p.RegionLat == 0 && p.RegionLon == 0 {
		return 0
	}
	d := haversineKm(p.RegionLat, p.RegionLon, req.Pickup.Lat, req.Pickup.Lon)
	if d >= rk.radiusKm {
		return 0
	}
	return 1 - d/rk.radiusKm
}

const earthRadiusKm = 6371.0

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
