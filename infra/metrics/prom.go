package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	coremetrics "github.com/mbeaufort/loadboard/core/metrics"
)

// PromSink records marketplace events in Prometheus metrics.
type PromSink struct {
	bids        *prometheus.CounterVec
	transitions *prometheus.CounterVec
	commitTime  prometheus.Histogram
	candidates  *prometheus.HistogramVec
}

// NewPromSink registers marketplace metrics on the default Prometheus
// registerer. The Prometheus server is started separately via
// StartPromServer.
func NewPromSink(cfg coremetrics.Config) (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer. A nil
// registerer defaults to the global one.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	bids := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_bid_events_total",
		Help: "Total number of bid submissions and withdrawals",
	}, []string{"provider_id", "withdrawal"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_transitions_total",
		Help: "Total number of request lifecycle transitions",
	}, []string{"from", "to"})
	commitTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "marketplace_commit_delay_seconds",
		Help:    "Time between request creation and assignment commit",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	})
	candidates := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marketplace_candidates",
		Help:    "Candidate pool sizes per ranking round",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50},
	}, []string{"kind"})

	collectors := []prometheus.Collector{bids, transitions, commitTime, candidates}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, err
			}
			collectors[i] = are.ExistingCollector
		}
	}
	s := &PromSink{
		bids:        collectors[0].(*prometheus.CounterVec),
		transitions: collectors[1].(*prometheus.CounterVec),
		candidates:  collectors[3].(*prometheus.HistogramVec),
	}
	s.commitTime, _ = collectors[2].(prometheus.Histogram)
	return s, nil
}

// RecordBid increments the bid counter.
func (s *PromSink) RecordBid(ev coremetrics.BidEvent) error {
	s.bids.WithLabelValues(ev.ProviderID, strconv.FormatBool(ev.Withdrawal)).Inc()
	return nil
}

// RecordAssignment observes the commit delay.
func (s *PromSink) RecordAssignment(ev coremetrics.AssignmentEvent) error {
	if s.commitTime != nil {
		s.commitTime.Observe(ev.Latency.Seconds())
	}
	return nil
}

// RecordTransition increments the transition counter for the edge.
func (s *PromSink) RecordTransition(ev coremetrics.TransitionEvent) error {
	s.transitions.WithLabelValues(ev.From.String(), ev.To.String()).Inc()
	return nil
}

// RecordMatch observes the candidate pool sizes of a ranking round.
func (s *PromSink) RecordMatch(ev coremetrics.MatchEvent) error {
	if ev.Eligible > 0 {
		s.candidates.WithLabelValues("providers").Observe(float64(ev.Eligible))
	}
	if ev.Bids > 0 {
		s.candidates.WithLabelValues("bids").Observe(float64(ev.Bids))
	}
	return nil
}

// StartPromServer serves /metrics on the given port until ctx is cancelled.
func StartPromServer(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
