// Package app wires the configuration into a running marketplace service:
// store, provider directory, matching engine, metric sinks, MQTT notifier and
// the HTTP API.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mbeaufort/loadboard/api/providers"
	"github.com/mbeaufort/loadboard/api/requests"
	"github.com/mbeaufort/loadboard/config"
	"github.com/mbeaufort/loadboard/core/market"
	"github.com/mbeaufort/loadboard/core/match"
	coremetrics "github.com/mbeaufort/loadboard/core/metrics"
	"github.com/mbeaufort/loadboard/core/store"
	"github.com/mbeaufort/loadboard/infra/logger"
	"github.com/mbeaufort/loadboard/infra/metrics"
	"github.com/mbeaufort/loadboard/infra/mqtt"
	"github.com/mbeaufort/loadboard/internal/eventbus"
)

// Service orchestrates the matching engine and its adapters.
type Service struct {
	Manager *market.Manager

	cfg      *config.Config
	bus      *eventbus.Bus[market.Event]
	notifier *mqtt.Notifier
	influx   *metrics.InfluxSink
	srv      *http.Server
	log      logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	var sinks []coremetrics.MetricsSink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	var influx *metrics.InfluxSink
	if cfg.Metrics.InfluxEnabled {
		sink := metrics.NewInfluxSinkWithFallback(cfg.Metrics)
		if is, ok := sink.(*metrics.InfluxSink); ok {
			influx = is
		}
		sinks = append(sinks, sink)
	}
	var sink coremetrics.MetricsSink
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	bus := eventbus.New[market.Event]()
	dir := market.NewStaticDirectory(cfg.Providers)
	ranker := match.NewRanker(cfg.Market.Weights(), cfg.Market.NeutralOnTimeRate, cfg.Market.ProximityRadiusKm)
	manager, err := market.NewManager(store.NewMemoryStore(), dir, match.CapabilityFilter{}, ranker, sink, bus, logg)
	if err != nil {
		return nil, fmt.Errorf("market manager: %w", err)
	}

	svc := &Service{Manager: manager, cfg: cfg, bus: bus, influx: influx, log: logg}
	if cfg.MQTT.Enabled {
		pub, err := mqtt.NewPahoPublisher(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		svc.notifier = mqtt.NewNotifier(pub, cfg.MQTT.TopicPrefix)
	}

	mux := http.NewServeMux()
	agentAPI := requests.NewHandler(manager)
	mux.Handle("/api/requests", agentAPI)
	mux.Handle("/api/requests/", agentAPI)
	mux.Handle("/api/providers/", providers.NewHandler(manager))
	svc.srv = &http.Server{Addr: cfg.HTTP.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return svc, nil
}

// Run starts the service and blocks until the context is cancelled or the
// HTTP server fails.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.notifier != nil {
		go s.notifier.Run(ctx, s.bus)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("HTTP API listening on %s", s.cfg.HTTP.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if s.notifier != nil {
		s.notifier.Close()
	}
	if s.influx != nil {
		s.influx.Close()
	}
	return nil
}
