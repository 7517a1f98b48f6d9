package model

import (
	"time"

	"github.com/google/uuid"
)

// BidStatus tracks a bid from submission to resolution.
type BidStatus string

const (
	// BidActive is the initial state: submitted, not withdrawn, request still
	// open.
	BidActive BidStatus = "ACTIVE"
	// BidWithdrawn marks a bid pulled back by its provider before selection.
	BidWithdrawn BidStatus = "WITHDRAWN"
	// BidWon marks the single winning bid of a request.
	BidWon BidStatus = "WON"
	// BidLost marks every other bid once a commit succeeds or the request is
	// cancelled.
	BidLost BidStatus = "LOST"
)

func (s BidStatus) String() string { return string(s) }

// TimeWindow is a proposed service window offered by a provider.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Bid is a provider's quote against an open request. Bids become immutable
// once the owning request leaves PENDING.
type Bid struct {
	ID             string     `json:"id"`
	RequestID      string     `json:"request_id"`
	ProviderID     string     `json:"provider_id"`
	AmountCents    int64      `json:"amount_cents"`
	PickupWindow   TimeWindow `json:"pickup_window"`
	DeliveryWindow TimeWindow `json:"delivery_window"`
	SubmittedAt    time.Time  `json:"submitted_at"`
	Status         BidStatus  `json:"status"`
}

// NewBid returns an active bid with a fresh identifier and submission
// timestamp.
func NewBid(requestID, providerID string, amountCents int64, pickup, delivery TimeWindow) Bid {
	return Bid{
		ID:             uuid.NewString(),
		RequestID:      requestID,
		ProviderID:     providerID,
		AmountCents:    amountCents,
		PickupWindow:   pickup,
		DeliveryWindow: delivery,
		SubmittedAt:    time.Now().UTC(),
		Status:         BidActive,
	}
}

// Withdrawn reports whether the provider pulled the bid back.
func (b Bid) Withdrawn() bool { return b.Status == BidWithdrawn }

// Selectable reports whether the bid may still win the given request.
func (b Bid) Selectable(requestID string) bool {
	return b.Status == BidActive && b.RequestID == requestID
}
