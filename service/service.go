// Package service exposes the harness's optional HTTP side surfaces: a
// healthz endpoint and the Prometheus metrics endpoint. They run only when
// the harness is started with --serve, for runs supervised by CI systems
// that scrape progress while the tests execute.
package service

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/ethereum/go-ethereum/log"

	"github.com/debci/pkgtest/metrics"
)

const (
	HealthzHost = "0.0.0.0"
	HealthzPort = "8080"

	MetricsHost = "0.0.0.0"
	MetricsPort = "7300"
)

// Service bundles the side servers so the command wiring can start and stop
// them as one unit around a test run.
type Service struct {
	Healthz *HealthzServer
	Metrics *MetricsServer
}

func New() *Service {
	s := &Service{
		Healthz: &HealthzServer{},
		Metrics: &MetricsServer{},
	}
	return s
}

// Start brings both servers up in the background. Listen errors are logged
// and counted but never interrupt the test run itself.
func (s *Service) Start(ctx context.Context) {
	log.Info("harness side servers starting")

	go func() {
		addr := net.JoinHostPort(HealthzHost, HealthzPort)
		log.Info("starting healthz server", "addr", addr)
		if err := s.Healthz.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("error starting healthz server", "err", err)
			metrics.RecordErrorDetails("error starting healthz server", err)
		}
	}()

	go func() {
		addr := net.JoinHostPort(MetricsHost, MetricsPort)
		log.Info("starting metrics server", "addr", addr)
		if err := s.Metrics.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("error starting metrics server", "err", err)
			metrics.RecordErrorDetails("error starting metrics server", err)
		}
	}()

	log.Info("harness side servers started")
}

// Shutdown stops both servers. Called after the run completes so late
// scrapes still see the final run metrics up to this point.
func (s *Service) Shutdown() {
	log.Info("harness side servers shutting down")

	_ = s.Healthz.Shutdown()
	log.Info("healthz stopped")

	_ = s.Metrics.Shutdown()
	log.Info("metrics stopped")

	log.Info("harness side servers stopped")
}
