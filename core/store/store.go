// Package store defines the entity store backing the matching engine. The
// engine depends only on the Store interface; implementations decide the
// storage technology.
package store

import (
	"context"

	"github.com/mbeaufort/loadboard/core/model"
)

// Store persists shipment requests and bids. All reads return snapshots that
// the caller may retain without further synchronization; mutation happens
// exclusively through the Update closures, which implementations run under a
// per-entity serialization boundary so concurrent writes to the same entity
// never interleave.
//
// Implementations return model.ErrNotFound for unknown identifiers and wrap
// infrastructure faults in model.ErrUnavailable; business-rule rejections are
// produced by the closures, never by the store itself.
type Store interface {
	CreateRequest(ctx context.Context, r model.ShipmentRequest) error
	GetRequest(ctx context.Context, id string) (model.ShipmentRequest, error)
	ListRequestsByAgent(ctx context.Context, agentID string) ([]model.ShipmentRequest, error)
	ListRequestsByStatus(ctx context.Context, status model.RequestStatus) ([]model.ShipmentRequest, error)
	// UpdateRequest applies mutate to the stored request under the request's
	// lock and returns the updated snapshot. If mutate returns an error the
	// entity is left untouched and the error is returned verbatim.
	UpdateRequest(ctx context.Context, id string, mutate func(*model.ShipmentRequest) error) (model.ShipmentRequest, error)

	CreateBid(ctx context.Context, b model.Bid) error
	GetBid(ctx context.Context, id string) (model.Bid, error)
	ListBidsByRequest(ctx context.Context, requestID string) ([]model.Bid, error)
	ListBidsByProvider(ctx context.Context, providerID string) ([]model.Bid, error)
	// UpdateBid follows the same contract as UpdateRequest. The bid is locked
	// through its owning request so bid mutations and request transitions on
	// the same request are mutually exclusive.
	UpdateBid(ctx context.Context, id string, mutate func(*model.Bid) error) (model.Bid, error)
}
