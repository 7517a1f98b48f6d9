// Package market implements the shipment request matching and bidding
// engine: bid collection against open requests, ranked matching results, the
// assignment commit and the request lifecycle.
//
// The engine enforces no bid-window deadline of its own: the window closes
// only when a request leaves PENDING. A deadline policy can be layered
// externally by invoking Cancel on stale requests.
package market

import (
	"context"
	"fmt"
	"time"

	"github.com/mbeaufort/loadboard/core/logger"
	"github.com/mbeaufort/loadboard/core/match"
	"github.com/mbeaufort/loadboard/core/metrics"
	"github.com/mbeaufort/loadboard/core/model"
	"github.com/mbeaufort/loadboard/core/store"
	"github.com/mbeaufort/loadboard/internal/eventbus"
)

// Manager orchestrates the store, the provider directory, the eligibility
// filter and the ranker. All request mutations are serialized per request
// identifier; reads work on store snapshots.
type Manager struct {
	store  store.Store
	dir    Directory
	filter match.EligibilityFilter
	ranker match.Ranker
	sink   metrics.MetricsSink
	bus    *eventbus.Bus[Event]
	log    logger.Logger
	locks  *requestLocks
}

// NewManager creates a Manager. sink and bus may be nil; a nil log falls back
// to a no-op logger.
func NewManager(st store.Store, dir Directory, filter match.EligibilityFilter, ranker match.Ranker, sink metrics.MetricsSink, bus *eventbus.Bus[Event], log logger.Logger) (*Manager, error) {
	if st == nil || dir == nil || filter == nil {
		return nil, fmt.Errorf("market: nil parameter provided to NewManager")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Manager{
		store:  st,
		dir:    dir,
		filter: filter,
		ranker: ranker,
		sink:   sink,
		bus:    bus,
		log:    log,
		locks:  newRequestLocks(),
	}, nil
}

// Events returns the lifecycle event bus, if one is attached.
func (m *Manager) Events() *eventbus.Bus[Event] { return m.bus }

func (m *Manager) publish(e Event) {
	if m.bus != nil {
		e.Time = time.Now().UTC()
		m.bus.Publish(e)
	}
}

// CreateRequest opens a new PENDING request owned by the agent. The bid
// collection window opens with it.
func (m *Manager) CreateRequest(ctx context.Context, in RequestInput) (model.ShipmentRequest, error) {
	if in.AgentID == "" {
		return model.ShipmentRequest{}, fmt.Errorf("agent id required: %w", model.ErrNotAuthorized)
	}
	req := model.NewShipmentRequest(in.AgentID, in.Pickup, in.Delivery, in.PickupAt, in.WeightKg, in.VolumeM3, in.VehicleType, in.SpecialReqs)
	if err := m.store.CreateRequest(ctx, req); err != nil {
		return model.ShipmentRequest{}, fmt.Errorf("create request: %w", err)
	}
	m.log.Infof("request %s opened by agent %s (%s, %s -> %s)", req.ID, req.AgentID, req.VehicleType, req.Pickup.Region, req.Delivery.Region)
	m.publish(Event{Kind: EventRequestOpened, RequestID: req.ID, AgentID: req.AgentID, Status: req.Status})
	return req, nil
}

// ListAgentRequests returns the agent's requests, optionally restricted to a
// status.
func (m *Manager) ListAgentRequests(ctx context.Context, agentID string, status model.RequestStatus) ([]model.ShipmentRequest, error) {
	reqs, err := m.store.ListRequestsByAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return reqs, nil
	}
	res := reqs[:0]
	for _, r := range reqs {
		if r.Status == status {
			res = append(res, r)
		}
	}
	return res, nil
}

// GetRequest returns a snapshot of the request.
func (m *Manager) GetRequest(ctx context.Context, id string) (model.ShipmentRequest, error) {
	return m.store.GetRequest(ctx, id)
}

// MatchProviders returns the ranked eligible providers for an open request.
// Scores carry no price term since no bid is involved yet. The result may be
// empty; that is not an error.
func (m *Manager) MatchProviders(ctx context.Context, requestID string) ([]match.RankedProvider, error) {
	req, err := m.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.Open() {
		return nil, fmt.Errorf("request %s is %s: %w", requestID, req.Status, model.ErrWindowClosed)
	}
	providers, err := m.dir.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("provider directory: %w", err)
	}
	eligible := m.filter.Filter(providers, req)
	ranked := m.ranker.RankProviders(eligible, req)
	m.recordMatch(requestID, len(eligible), 0)
	return ranked, nil
}

// ListBids returns the ranked selectable bids of the agent's request.
func (m *Manager) ListBids(ctx context.Context, agentID, requestID string) ([]match.RankedBid, error) {
	req, err := m.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.AgentID != agentID {
		return nil, fmt.Errorf("request %s belongs to another agent: %w", requestID, model.ErrNotAuthorized)
	}
	bids, err := m.store.ListBidsByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	selectable := bids[:0]
	for _, b := range bids {
		if b.Selectable(requestID) {
			selectable = append(selectable, b)
		}
	}
	profiles, err := m.bidderProfiles(ctx, selectable)
	if err != nil {
		return nil, err
	}
	ranked := m.ranker.RankBids(selectable, profiles, req)
	m.recordMatch(requestID, 0, len(selectable))
	return ranked, nil
}

func (m *Manager) bidderProfiles(ctx context.Context, bids []model.Bid) (map[string]model.Provider, error) {
	profiles := make(map[string]model.Provider)
	for _, b := range bids {
		if _, ok := profiles[b.ProviderID]; ok {
			continue
		}
		p, err := m.dir.Provider(ctx, b.ProviderID)
		if err != nil {
			// A bidder that has since left the directory scores on neutral
			// history; the bid itself stays valid.
			m.log.Warnf("bid %s: provider %s not in directory", b.ID, b.ProviderID)
			continue
		}
		profiles[b.ProviderID] = p
	}
	return profiles, nil
}

// OpenRequests returns the open requests the provider is eligible for,
// scored for that provider.
func (m *Manager) OpenRequests(ctx context.Context, providerID string) ([]OpenRequest, error) {
	p, err := m.dir.Provider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	reqs, err := m.store.ListRequestsByStatus(ctx, model.StatusPending)
	if err != nil {
		return nil, err
	}
	var res []OpenRequest
	for _, req := range reqs {
		eligible := m.filter.Filter([]model.Provider{p}, req)
		if len(eligible) == 0 {
			continue
		}
		ranked := m.ranker.RankProviders(eligible, req)
		res = append(res, OpenRequest{Request: req, Score: ranked[0].Score})
	}
	return res, nil
}

// SubmitBid records a provider's quote against an open request. The amount
// must be positive, and submission is rejected once the request has left
// PENDING. A provider may submit several bids on the same request; each is
// ranked independently.
func (m *Manager) SubmitBid(ctx context.Context, in BidInput) (model.Bid, error) {
	if in.AmountCents <= 0 {
		return model.Bid{}, fmt.Errorf("bid amount must be positive, got %d: %w", in.AmountCents, model.ErrBidNotEligible)
	}
	if _, err := m.dir.Provider(ctx, in.ProviderID); err != nil {
		return model.Bid{}, err
	}
	unlock := m.locks.acquire(in.RequestID)
	defer unlock()

	req, err := m.store.GetRequest(ctx, in.RequestID)
	if err != nil {
		return model.Bid{}, err
	}
	if !req.Open() {
		return model.Bid{}, fmt.Errorf("request %s is %s: %w", in.RequestID, req.Status, model.ErrWindowClosed)
	}
	bid := model.NewBid(in.RequestID, in.ProviderID, in.AmountCents, in.PickupWindow, in.DeliveryWindow)
	if err := m.store.CreateBid(ctx, bid); err != nil {
		return model.Bid{}, fmt.Errorf("create bid: %w", err)
	}
	m.log.Infof("bid %s submitted on request %s by provider %s (%d cents)", bid.ID, bid.RequestID, bid.ProviderID, bid.AmountCents)
	m.recordBid(bid, false)
	m.publish(Event{Kind: EventBidSubmitted, RequestID: bid.RequestID, BidID: bid.ID, ProviderID: bid.ProviderID})
	return bid, nil
}

// WithdrawBid pulls back an unselected bid. Once the owning request has left
// PENDING the bid is frozen and withdrawal is rejected.
func (m *Manager) WithdrawBid(ctx context.Context, providerID, bidID string) error {
	bid, err := m.store.GetBid(ctx, bidID)
	if err != nil {
		return err
	}
	if bid.ProviderID != providerID {
		return fmt.Errorf("bid %s belongs to another provider: %w", bidID, model.ErrNotAuthorized)
	}
	unlock := m.locks.acquire(bid.RequestID)
	defer unlock()

	req, err := m.store.GetRequest(ctx, bid.RequestID)
	if err != nil {
		return err
	}
	if !req.Open() {
		return fmt.Errorf("request %s is %s: %w", req.ID, req.Status, model.ErrAlreadySelected)
	}
	updated, err := m.store.UpdateBid(ctx, bidID, func(b *model.Bid) error {
		switch b.Status {
		case model.BidWithdrawn:
			return nil // idempotent
		case model.BidActive:
			b.Status = model.BidWithdrawn
			return nil
		default:
			return fmt.Errorf("bid %s is %s: %w", b.ID, b.Status, model.ErrAlreadySelected)
		}
	})
	if err != nil {
		return err
	}
	m.log.Infof("bid %s withdrawn by provider %s", bidID, providerID)
	m.recordBid(updated, true)
	m.publish(Event{Kind: EventBidWithdrawn, RequestID: bid.RequestID, BidID: bidID, ProviderID: providerID})
	return nil
}

// Commit finalizes the agent's selection: it atomically records the winning
// bid, moves the request to ASSIGNED and marks every other open bid LOST.
// Concurrent commits against the same request race to exactly one winner; the
// losers receive ErrAlreadyAssigned.
func (m *Manager) Commit(ctx context.Context, agentID, requestID, bidID string) (AssignmentSnapshot, error) {
	unlock := m.locks.acquire(requestID)
	defer unlock()

	req, err := m.store.GetRequest(ctx, requestID)
	if err != nil {
		return AssignmentSnapshot{}, err
	}
	if req.AgentID != agentID {
		return AssignmentSnapshot{}, fmt.Errorf("request %s belongs to another agent: %w", requestID, model.ErrNotAuthorized)
	}
	if req.Status != model.StatusPending {
		if req.Assigned() {
			return AssignmentSnapshot{}, fmt.Errorf("request %s already assigned bid %s: %w", requestID, req.WinningBidID, model.ErrAlreadyAssigned)
		}
		return AssignmentSnapshot{}, model.NewInvalidTransition(requestID, req.Status, model.StatusAssigned)
	}
	bid, err := m.store.GetBid(ctx, bidID)
	if err != nil {
		return AssignmentSnapshot{}, fmt.Errorf("bid %s: %w", bidID, model.ErrBidNotEligible)
	}
	if !bid.Selectable(requestID) {
		return AssignmentSnapshot{}, fmt.Errorf("bid %s is %s on request %s: %w", bidID, bid.Status, bid.RequestID, model.ErrBidNotEligible)
	}

	updated, err := m.store.UpdateRequest(ctx, requestID, func(r *model.ShipmentRequest) error {
		if r.Status != model.StatusPending {
			return fmt.Errorf("request %s is %s: %w", r.ID, r.Status, model.ErrAlreadyAssigned)
		}
		r.Status = model.StatusAssigned
		r.WinningBidID = bidID
		return nil
	})
	if err != nil {
		return AssignmentSnapshot{}, err
	}
	m.resolveBids(ctx, requestID, bidID)

	provider, err := m.dir.Provider(ctx, bid.ProviderID)
	if err != nil {
		m.log.Warnf("commit %s: winning provider %s not in directory", requestID, bid.ProviderID)
	}
	won, err := m.store.GetBid(ctx, bidID)
	if err == nil {
		bid = won
	}
	m.log.Infof("request %s assigned to bid %s (provider %s)", requestID, bidID, bid.ProviderID)
	m.recordAssignment(updated, bid)
	m.recordTransition(requestID, model.StatusPending, model.StatusAssigned)
	m.publish(Event{Kind: EventAssignmentCommitted, RequestID: requestID, AgentID: agentID, BidID: bidID, ProviderID: bid.ProviderID, Status: model.StatusAssigned})
	return AssignmentSnapshot{Request: updated, Bid: bid, Provider: provider}, nil
}

// resolveBids marks the winner WON and every other still-active bid LOST.
// Runs under the request lock held by Commit.
func (m *Manager) resolveBids(ctx context.Context, requestID, winningBidID string) {
	bids, err := m.store.ListBidsByRequest(ctx, requestID)
	if err != nil {
		m.log.Errorf("resolve bids on %s: %v", requestID, err)
		return
	}
	for _, b := range bids {
		target := model.BidLost
		if b.ID == winningBidID {
			target = model.BidWon
		} else if b.Status != model.BidActive {
			continue
		}
		if _, err := m.store.UpdateBid(ctx, b.ID, func(cur *model.Bid) error {
			cur.Status = target
			return nil
		}); err != nil {
			m.log.Errorf("mark bid %s %s: %v", b.ID, target, err)
		}
	}
}

// Cancel moves a request to CANCELLED. From PENDING only the owning agent may
// cancel; from ASSIGNED either the agent or the winning provider may, as long
// as pickup has not happened. Open bids are released as LOST.
func (m *Manager) Cancel(ctx context.Context, actorID, requestID string) error {
	unlock := m.locks.acquire(requestID)
	defer unlock()

	req, err := m.store.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	var winningProvider string
	if req.WinningBidID != "" {
		if wb, err := m.store.GetBid(ctx, req.WinningBidID); err == nil {
			winningProvider = wb.ProviderID
		}
	}
	switch req.Status {
	case model.StatusPending:
		if actorID != req.AgentID {
			return fmt.Errorf("request %s belongs to another agent: %w", requestID, model.ErrNotAuthorized)
		}
	case model.StatusAssigned:
		if actorID != req.AgentID && actorID != winningProvider {
			return fmt.Errorf("request %s: actor %s is neither agent nor assigned provider: %w", requestID, actorID, model.ErrNotAuthorized)
		}
	default:
		return model.NewInvalidTransition(requestID, req.Status, model.StatusCancelled)
	}

	prev := req.Status
	if _, err := m.store.UpdateRequest(ctx, requestID, func(r *model.ShipmentRequest) error {
		if !r.Status.CanTransition(model.StatusCancelled) {
			return model.NewInvalidTransition(r.ID, r.Status, model.StatusCancelled)
		}
		r.Status = model.StatusCancelled
		r.WinningBidID = ""
		return nil
	}); err != nil {
		return err
	}
	m.releaseBids(ctx, requestID)
	m.log.Infof("request %s cancelled by %s (was %s)", requestID, actorID, prev)
	m.recordTransition(requestID, prev, model.StatusCancelled)
	m.publish(Event{Kind: EventRequestCancelled, RequestID: requestID, AgentID: req.AgentID, Status: model.StatusCancelled})
	return nil
}

// releaseBids marks every non-terminal bid of the request LOST after a
// cancellation. Runs under the request lock held by Cancel.
func (m *Manager) releaseBids(ctx context.Context, requestID string) {
	bids, err := m.store.ListBidsByRequest(ctx, requestID)
	if err != nil {
		m.log.Errorf("release bids on %s: %v", requestID, err)
		return
	}
	for _, b := range bids {
		if b.Status != model.BidActive && b.Status != model.BidWon {
			continue
		}
		if _, err := m.store.UpdateBid(ctx, b.ID, func(cur *model.Bid) error {
			cur.Status = model.BidLost
			return nil
		}); err != nil {
			m.log.Errorf("release bid %s: %v", b.ID, err)
		}
	}
}

// MarkPickedUp confirms pickup: ASSIGNED -> IN_TRANSIT, winning provider
// only.
func (m *Manager) MarkPickedUp(ctx context.Context, providerID, requestID string) error {
	return m.providerTransition(ctx, providerID, requestID, model.StatusAssigned, model.StatusInTransit, EventPickupConfirmed)
}

// MarkDelivered confirms delivery: IN_TRANSIT -> COMPLETED, winning provider
// only.
func (m *Manager) MarkDelivered(ctx context.Context, providerID, requestID string) error {
	return m.providerTransition(ctx, providerID, requestID, model.StatusInTransit, model.StatusCompleted, EventDeliveryConfirmed)
}

func (m *Manager) providerTransition(ctx context.Context, providerID, requestID string, from, to model.RequestStatus, kind EventKind) error {
	unlock := m.locks.acquire(requestID)
	defer unlock()

	req, err := m.store.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Status != from {
		return model.NewInvalidTransition(requestID, req.Status, to)
	}
	wb, err := m.store.GetBid(ctx, req.WinningBidID)
	if err != nil {
		return fmt.Errorf("request %s winning bid: %w", requestID, err)
	}
	if wb.ProviderID != providerID {
		return fmt.Errorf("request %s is assigned to another provider: %w", requestID, model.ErrNotAuthorized)
	}
	if _, err := m.store.UpdateRequest(ctx, requestID, func(r *model.ShipmentRequest) error {
		if r.Status != from {
			return model.NewInvalidTransition(r.ID, r.Status, to)
		}
		r.Status = to
		return nil
	}); err != nil {
		return err
	}
	m.log.Infof("request %s: %s -> %s by provider %s", requestID, from, to, providerID)
	m.recordTransition(requestID, from, to)
	m.publish(Event{Kind: kind, RequestID: requestID, ProviderID: providerID, BidID: req.WinningBidID, Status: to})
	return nil
}

// Snapshot returns the read-only assignment view consumed by external
// collaborators once a request is assigned.
func (m *Manager) Snapshot(ctx context.Context, requestID string) (AssignmentSnapshot, error) {
	req, err := m.store.GetRequest(ctx, requestID)
	if err != nil {
		return AssignmentSnapshot{}, err
	}
	if !req.Assigned() {
		return AssignmentSnapshot{}, fmt.Errorf("request %s is %s, no assignment to snapshot: %w", requestID, req.Status, model.ErrNotFound)
	}
	bid, err := m.store.GetBid(ctx, req.WinningBidID)
	if err != nil {
		return AssignmentSnapshot{}, err
	}
	provider, err := m.dir.Provider(ctx, bid.ProviderID)
	if err != nil {
		m.log.Warnf("snapshot %s: provider %s not in directory", requestID, bid.ProviderID)
	}
	return AssignmentSnapshot{Request: req, Bid: bid, Provider: provider}, nil
}

// ListProviderBids returns all bids a provider has submitted, newest last.
func (m *Manager) ListProviderBids(ctx context.Context, providerID string) ([]model.Bid, error) {
	return m.store.ListBidsByProvider(ctx, providerID)
}

func (m *Manager) recordBid(b model.Bid, withdrawal bool) {
	if m.sink == nil {
		return
	}
	if err := m.sink.RecordBid(metrics.BidEvent{
		RequestID:   b.RequestID,
		BidID:       b.ID,
		ProviderID:  b.ProviderID,
		AmountCents: b.AmountCents,
		Withdrawal:  withdrawal,
		Time:        time.Now().UTC(),
	}); err != nil {
		m.log.Errorf("metrics error: %v", err)
	}
}

func (m *Manager) recordAssignment(req model.ShipmentRequest, bid model.Bid) {
	if m.sink == nil {
		return
	}
	if err := m.sink.RecordAssignment(metrics.AssignmentEvent{
		RequestID:   req.ID,
		BidID:       bid.ID,
		ProviderID:  bid.ProviderID,
		AgentID:     req.AgentID,
		AmountCents: bid.AmountCents,
		Latency:     time.Since(req.CreatedAt),
		Time:        time.Now().UTC(),
	}); err != nil {
		m.log.Errorf("metrics error: %v", err)
	}
}

func (m *Manager) recordTransition(requestID string, from, to model.RequestStatus) {
	if m.sink == nil {
		return
	}
	if err := m.sink.RecordTransition(metrics.TransitionEvent{
		RequestID: requestID,
		From:      from,
		To:        to,
		Time:      time.Now().UTC(),
	}); err != nil {
		m.log.Errorf("metrics error: %v", err)
	}
}

func (m *Manager) recordMatch(requestID string, eligible, bids int) {
	mr, ok := m.sink.(metrics.MatchRecorder)
	if !ok {
		return
	}
	if err := mr.RecordMatch(metrics.MatchEvent{
		RequestID: requestID,
		Eligible:  eligible,
		Bids:      bids,
		Time:      time.Now().UTC(),
	}); err != nil {
		m.log.Errorf("metrics error: %v", err)
	}
}
