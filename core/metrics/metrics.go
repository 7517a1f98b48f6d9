// Package metrics declares the observability contracts of the marketplace.
// Sinks are implemented in infra/metrics.
package metrics

import (
	"time"

	"github.com/mbeaufort/loadboard/core/model"
)

// BidEvent is recorded for every accepted bid submission or withdrawal.
type BidEvent struct {
	RequestID   string
	BidID       string
	ProviderID  string
	AmountCents int64
	Withdrawal  bool
	Time        time.Time
}

// AssignmentEvent is recorded when a commit succeeds.
type AssignmentEvent struct {
	RequestID   string
	BidID       string
	ProviderID  string
	AgentID     string
	AmountCents int64
	// Latency is the time between request creation and the commit.
	Latency time.Duration
	Time    time.Time
}

// TransitionEvent is recorded for every successful lifecycle transition.
type TransitionEvent struct {
	RequestID string
	From      model.RequestStatus
	To        model.RequestStatus
	Time      time.Time
}

// MetricsSink records marketplace events for observability purposes.
type MetricsSink interface {
	RecordBid(ev BidEvent) error
	RecordAssignment(ev AssignmentEvent) error
	RecordTransition(ev TransitionEvent) error
}

// MatchEvent captures one ranking round over a request's candidate pool.
type MatchEvent struct {
	RequestID string
	Eligible  int
	Bids      int
	Time      time.Time
}

// MatchRecorder is implemented by sinks that track candidate pool sizes.
type MatchRecorder interface {
	RecordMatch(ev MatchEvent) error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordBid(BidEvent) error               { return nil }
func (NopSink) RecordAssignment(AssignmentEvent) error { return nil }
func (NopSink) RecordTransition(TransitionEvent) error { return nil }
