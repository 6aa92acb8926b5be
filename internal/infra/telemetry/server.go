package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/version"
	"go.uber.org/zap"

	"edgemcp/internal/domain"
)

const obsShutdownGrace = 5 * time.Second

// ObsServer exposes the operational endpoints that run beside the MCP
// transport: Prometheus metrics on /metrics, component health on
// /healthz, and build information on /buildinfo.
type ObsServer struct {
	addr     string
	health   *HealthTracker
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

type ObsServerOptions struct {
	Addr     string
	Health   *HealthTracker
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

func NewObsServer(opts ObsServerOptions) *ObsServer {
	s := &ObsServer{
		addr:     opts.Addr,
		health:   opts.Health,
		gatherer: opts.Gatherer,
		logger:   opts.Logger,
	}
	if s.addr == "" {
		s.addr = domain.DefaultObservabilityListenAddress
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Run binds the listen address and serves until ctx is canceled. The
// bind happens before Run goes async, so a taken port fails fast.
func (s *ObsServer) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("observability listener %s: %w", s.addr, err)
	}
	server := &http.Server{Handler: s.routes()}

	done := make(chan error, 1)
	go func() {
		done <- server.Serve(listener)
	}()
	s.logger.Info("observability endpoints ready", zap.String("addr", listener.Addr().String()))

	select {
	case err := <-done:
		return fmt.Errorf("observability server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), obsShutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("observability server shutdown error", zap.Error(err))
		return err
	}
	s.logger.Info("observability server stopped")
	return nil
}

func (s *ObsServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", s.serveHealthz)
	mux.HandleFunc("/buildinfo", serveBuildInfo)
	return mux
}

func (s *ObsServer) serveHealthz(w http.ResponseWriter, _ *http.Request) {
	report := HealthReport{Status: "ok"}
	if s.health != nil {
		report = s.health.Report()
	}

	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(report)
}

func serveBuildInfo(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"version":   version.Version,
		"revision":  version.Revision,
		"goVersion": version.GoVersion,
	})
}
