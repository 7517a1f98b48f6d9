package metrics

import coremetrics "github.com/mbeaufort/loadboard/core/metrics"

// MultiSink fans marketplace events out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.MetricsSink
}

// NewMultiSink creates a MultiSink over the provided sinks.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordBid forwards the event to all sinks, returning the first error.
func (m *MultiSink) RecordBid(ev coremetrics.BidEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordBid(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordAssignment forwards the event to all sinks.
func (m *MultiSink) RecordAssignment(ev coremetrics.AssignmentEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordAssignment(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordTransition forwards the event to all sinks.
func (m *MultiSink) RecordTransition(ev coremetrics.TransitionEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordTransition(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordMatch forwards the event to the sinks that track candidate pools.
func (m *MultiSink) RecordMatch(ev coremetrics.MatchEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.MatchRecorder); ok {
			if err := rec.RecordMatch(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
