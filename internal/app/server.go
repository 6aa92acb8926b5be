package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"edgemcp/internal/domain"
	"edgemcp/internal/infra/callcache"
	"edgemcp/internal/infra/changelist"
	"edgemcp/internal/infra/dispatch"
	"edgemcp/internal/infra/edgegrid"
	"edgemcp/internal/infra/journal"
	"edgemcp/internal/infra/mcpcodec"
	"edgemcp/internal/infra/telemetry"
	"edgemcp/internal/tools"
)

// server is one fully wired process: credential store, upstream client,
// call cache, changelist engine, tool registry, dispatcher, and the MCP
// server fronting them.
type server struct {
	conf     domain.Config
	logger   *zap.Logger
	registry *domain.Registry
	cache    *callcache.Cache
	watcher  *edgegrid.ReloadingStore
	journal  *journal.Store
	health   *telemetry.HealthTracker
	gatherer *prometheus.Registry
	mcp      *mcp.Server
}

func newServer(conf domain.Config, logger *zap.Logger) (*server, error) {
	var (
		metrics  domain.Metrics
		gatherer *prometheus.Registry
	)
	if conf.Observability.Enabled {
		gatherer = prometheus.NewRegistry()
		gatherer.MustRegister(versioncollector.NewCollector("edgemcp"))
		metrics = telemetry.NewPrometheusMetrics(gatherer)
	} else {
		metrics = telemetry.NewNoopMetrics()
	}
	health := telemetry.NewHealthTracker()

	var (
		resolver domain.CredentialResolver
		watcher  *edgegrid.ReloadingStore
	)
	if conf.Credentials.Watch {
		reloading, err := edgegrid.NewReloadingStore(conf.Credentials.Path, conf.Credentials.DefaultSection, logger)
		if err != nil {
			return nil, err
		}
		resolver = reloading
		watcher = reloading
	} else {
		store, err := edgegrid.LoadStore(conf.Credentials.Path, conf.Credentials.DefaultSection)
		if err != nil {
			return nil, err
		}
		resolver = store
	}

	client := edgegrid.NewClient(edgegrid.Options{
		Timeout: time.Duration(conf.Upstream.TimeoutSeconds) * time.Second,
		Retry: edgegrid.RetryPolicy{
			MaxAttempts: conf.Upstream.Retry.MaxAttempts,
			Base:        time.Duration(conf.Upstream.Retry.BaseMillis) * time.Millisecond,
			Cap:         time.Duration(conf.Upstream.Retry.CapMillis) * time.Millisecond,
		},
		Logger:  logger,
		Metrics: metrics,
	})

	cache := callcache.New(callcache.Options{
		SweepInterval: time.Duration(conf.Cache.SweepSeconds) * time.Second,
		Logger:        logger,
		Metrics:       metrics,
		Health:        health,
	})
	if watcher != nil {
		// Results cached under the previous credential file must not
		// outlive it.
		watcher.OnReload(func(*edgegrid.Store) { cache.Clear() })
	}

	var (
		journalStore   *journal.Store
		activationsLog domain.ActivationJournal
	)
	if conf.Journal.Path != "" {
		store, err := journal.Open(conf.Journal.Path, conf.Journal.Retention)
		if err != nil {
			return nil, err
		}
		journalStore = store
		activationsLog = store
	}

	engine := changelist.NewEngine(client, changelist.Options{
		Journal:           activationsLog,
		PollInterval:      time.Duration(conf.DNS.PollIntervalSeconds) * time.Second,
		ActivationTimeout: time.Duration(conf.DNS.ActivationTimeoutSeconds) * time.Second,
		Logger:            logger,
		Metrics:           metrics,
	})

	registry := domain.NewRegistry()
	err := tools.Register(registry, tools.Deps{
		Client:         client,
		Engine:         engine,
		Journal:        activationsLog,
		Resolver:       resolver,
		DefaultSection: conf.Credentials.DefaultSection,
	})
	if err != nil {
		if journalStore != nil {
			_ = journalStore.Close()
		}
		return nil, err
	}
	registry.Freeze()

	dispatcher := dispatch.NewDispatcher(registry, resolver, dispatch.Options{
		Cache:   cache,
		Logger:  logger,
		Metrics: metrics,
	})

	return &server{
		conf:     conf,
		logger:   logger,
		registry: registry,
		cache:    cache,
		watcher:  watcher,
		journal:  journalStore,
		health:   health,
		gatherer: gatherer,
		mcp:      newMCPServer(conf.Server.Name, registry, dispatcher),
	}, nil
}

// run serves until ctx is canceled or the MCP transport closes. The
// cache sweeper, credential watcher, and observability endpoint stop
// with the transport.
func (s *server) run(ctx context.Context) error {
	if hash, err := mcpcodec.CatalogueHash(s.registry.Tools()); err == nil {
		s.logger.Info("tool catalogue ready",
			zap.Int("tools", s.registry.Len()),
			zap.String("catalogue_hash", hash[:12]),
		)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return s.cache.Run(ctx) })
	if s.watcher != nil {
		group.Go(func() error { return s.watcher.Watch(ctx) })
	}
	if s.conf.Observability.Enabled {
		obs := telemetry.NewObsServer(telemetry.ObsServerOptions{
			Addr:     s.conf.Observability.ListenAddress,
			Health:   s.health,
			Gatherer: s.gatherer,
			Logger:   s.logger,
		})
		group.Go(func() error { return obs.Run(ctx) })
	}
	group.Go(func() error {
		// A closed transport ends the process; the remaining
		// goroutines stop through ctx.
		defer cancel()
		return s.serveMCP(ctx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (s *server) close() {
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			s.logger.Warn("close activation journal", zap.Error(err))
		}
	}
}

func (s *server) serveMCP(ctx context.Context) error {
	switch s.conf.Server.Transport {
	case domain.TransportHTTP:
		return s.serveHTTP(ctx)
	default:
		s.logger.Info("mcp server listening on stdio")
		return s.mcp.Run(ctx, &mcp.StdioTransport{})
	}
}

func (s *server) serveHTTP(ctx context.Context) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(*http.Request) *mcp.Server { return s.mcp },
		&mcp.StreamableHTTPOptions{JSONResponse: true},
	)
	httpServer := &http.Server{
		Addr:    s.conf.Server.ListenAddress,
		Handler: handler,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("mcp http server failed to start: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("mcp http server shutdown error", zap.Error(err))
			return err
		}
		s.logger.Info("mcp http server stopped")
		return nil
	}
}

func newMCPServer(name string, registry *domain.Registry, dispatcher *dispatch.Dispatcher) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    name,
		Version: Version,
	}, &mcp.ServerOptions{
		HasTools: true,
	})

	for _, tool := range registry.Tools() {
		server.AddTool(mcpcodec.ToolToMCP(tool), toolHandler(dispatcher, tool.Name))
	}
	return server
}

func toolHandler(dispatcher *dispatch.Dispatcher, name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := json.RawMessage(req.Params.Arguments)
		resp := dispatcher.Dispatch(ctx, domain.ToolCall{Name: name, Arguments: args})
		return mcpcodec.ResultToMCP(resp), nil
	}
}
