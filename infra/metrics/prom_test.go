package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/mbeaufort/loadboard/core/metrics"
	"github.com/mbeaufort/loadboard/core/model"
)

func TestPromSinkRecordsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordBid(coremetrics.BidEvent{ProviderID: "p1"}))
	require.NoError(t, sink.RecordBid(coremetrics.BidEvent{ProviderID: "p1", Withdrawal: true}))
	require.NoError(t, sink.RecordTransition(coremetrics.TransitionEvent{
		From: model.StatusPending, To: model.StatusAssigned,
	}))
	require.NoError(t, sink.RecordAssignment(coremetrics.AssignmentEvent{Latency: 2 * time.Second}))

	ps := sink.(*PromSink)
	assert.Equal(t, 1.0, testutil.ToFloat64(ps.bids.WithLabelValues("p1", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ps.bids.WithLabelValues("p1", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ps.transitions.WithLabelValues("PENDING", "ASSIGNED")))
}

func TestPromSinkDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg); err != nil {
		t.Fatal(err)
	}
	if _, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg); err != nil {
		t.Fatalf("re-registration must reuse existing collectors: %v", err)
	}
}
