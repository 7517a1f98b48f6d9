package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mbeaufort/loadboard/core/model"
)

// MemoryStore is the in-memory Store used by the service and as a test
// double. The entity maps are guarded by a read-write mutex; every record
// additionally carries its own lock keyed by the owning request, so mutations
// on distinct requests proceed in parallel while mutations on the same
// request are serialized.
type MemoryStore struct {
	mu       sync.RWMutex
	requests map[string]*requestRecord
	bids     map[string]*bidRecord
}

type requestRecord struct {
	mu  sync.Mutex
	req model.ShipmentRequest
}

// bidRecord shares the lock of its owning request so bid writes and request
// transitions never interleave.
type bidRecord struct {
	owner *requestRecord
	bid   model.Bid
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests: map[string]*requestRecord{},
		bids:     map[string]*bidRecord{},
	}
}

func cloneRequest(r model.ShipmentRequest) model.ShipmentRequest {
	if r.SpecialReqs != nil {
		r.SpecialReqs = append([]string(nil), r.SpecialReqs...)
	}
	return r
}

func (s *MemoryStore) CreateRequest(_ context.Context, r model.ShipmentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[r.ID]; ok {
		return fmt.Errorf("request %s already exists", r.ID)
	}
	s.requests[r.ID] = &requestRecord{req: cloneRequest(r)}
	return nil
}

func (s *MemoryStore) GetRequest(_ context.Context, id string) (model.ShipmentRequest, error) {
	s.mu.RLock()
	rec, ok := s.requests[id]
	s.mu.RUnlock()
	if !ok {
		return model.ShipmentRequest{}, fmt.Errorf("request %s: %w", id, model.ErrNotFound)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return cloneRequest(rec.req), nil
}

func (s *MemoryStore) ListRequestsByAgent(_ context.Context, agentID string) ([]model.ShipmentRequest, error) {
	return s.listRequests(func(r model.ShipmentRequest) bool { return r.AgentID == agentID })
}

func (s *MemoryStore) ListRequestsByStatus(_ context.Context, status model.RequestStatus) ([]model.ShipmentRequest, error) {
	return s.listRequests(func(r model.ShipmentRequest) bool { return r.Status == status })
}

func (s *MemoryStore) listRequests(keep func(model.ShipmentRequest) bool) ([]model.ShipmentRequest, error) {
	s.mu.RLock()
	recs := make([]*requestRecord, 0, len(s.requests))
	for _, rec := range s.requests {
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	res := make([]model.ShipmentRequest, 0, len(recs))
	for _, rec := range recs {
		rec.mu.Lock()
		r := cloneRequest(rec.req)
		rec.mu.Unlock()
		if keep(r) {
			res = append(res, r)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.Before(res[j].CreatedAt)
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}

func (s *MemoryStore) UpdateRequest(_ context.Context, id string, mutate func(*model.ShipmentRequest) error) (model.ShipmentRequest, error) {
	s.mu.RLock()
	rec, ok := s.requests[id]
	s.mu.RUnlock()
	if !ok {
		return model.ShipmentRequest{}, fmt.Errorf("request %s: %w", id, model.ErrNotFound)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	next := cloneRequest(rec.req)
	if err := mutate(&next); err != nil {
		return model.ShipmentRequest{}, err
	}
	rec.req = next
	return cloneRequest(next), nil
}

func (s *MemoryStore) CreateBid(_ context.Context, b model.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bids[b.ID]; ok {
		return fmt.Errorf("bid %s already exists", b.ID)
	}
	owner, ok := s.requests[b.RequestID]
	if !ok {
		return fmt.Errorf("request %s: %w", b.RequestID, model.ErrNotFound)
	}
	s.bids[b.ID] = &bidRecord{owner: owner, bid: b}
	return nil
}

func (s *MemoryStore) GetBid(_ context.Context, id string) (model.Bid, error) {
	s.mu.RLock()
	rec, ok := s.bids[id]
	s.mu.RUnlock()
	if !ok {
		return model.Bid{}, fmt.Errorf("bid %s: %w", id, model.ErrNotFound)
	}
	rec.owner.mu.Lock()
	defer rec.owner.mu.Unlock()
	return rec.bid, nil
}

func (s *MemoryStore) ListBidsByRequest(_ context.Context, requestID string) ([]model.Bid, error) {
	return s.listBids(func(b model.Bid) bool { return b.RequestID == requestID })
}

func (s *MemoryStore) ListBidsByProvider(_ context.Context, providerID string) ([]model.Bid, error) {
	return s.listBids(func(b model.Bid) bool { return b.ProviderID == providerID })
}

func (s *MemoryStore) listBids(keep func(model.Bid) bool) ([]model.Bid, error) {
	s.mu.RLock()
	recs := make([]*bidRecord, 0, len(s.bids))
	for _, rec := range s.bids {
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	res := make([]model.Bid, 0, len(recs))
	for _, rec := range recs {
		rec.owner.mu.Lock()
		b := rec.bid
		rec.owner.mu.Unlock()
		if keep(b) {
			res = append(res, b)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].SubmittedAt.Equal(res[j].SubmittedAt) {
			return res[i].SubmittedAt.Before(res[j].SubmittedAt)
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}

func (s *MemoryStore) UpdateBid(_ context.Context, id string, mutate func(*model.Bid) error) (model.Bid, error) {
	s.mu.RLock()
	rec, ok := s.bids[id]
	s.mu.RUnlock()
	if !ok {
		return model.Bid{}, fmt.Errorf("bid %s: %w", id, model.ErrNotFound)
	}
	rec.owner.mu.Lock()
	defer rec.owner.mu.Unlock()
	next := rec.bid
	if err := mutate(&next); err != nil {
		return model.Bid{}, err
	}
	rec.bid = next
	return next, nil
}
