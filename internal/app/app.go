package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/common/version"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"edgemcp/internal/domain"
	"edgemcp/internal/infra/config"
	"edgemcp/internal/infra/edgegrid"
)

// App ties configuration loading to the serving loop. The logger passed
// to New is the bootstrap logger; Serve replaces it with one built from
// the loaded configuration.
type App struct {
	logger *zap.Logger
}

type ServeConfig struct {
	ConfigPath string
	Overrides  Overrides
}

// Overrides carries values set explicitly on the command line. An empty
// field means the flag was not given and the config file wins.
type Overrides struct {
	Transport     string
	ListenAddress string
	LogLevel      string
}

type ValidateConfig struct {
	ConfigPath string
}

func New(logger *zap.Logger) *App {
	return &App{
		logger: logger.Named("app"),
	}
}

// Serve loads configuration, assembles the server, and runs it until
// ctx is canceled.
func (a *App) Serve(ctx context.Context, cfg ServeConfig) error {
	conf, err := config.NewLoader(a.logger).Load(cfg.ConfigPath)
	if err != nil {
		return err
	}
	if err := applyOverrides(&conf, cfg.Overrides); err != nil {
		return err
	}

	logger, err := newLogger(conf.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	syncBuildInfo()
	logger.Info("starting edgemcp",
		zap.String("version", version.Info()),
		zap.String("build_context", version.BuildContext()),
	)
	logger.Info("configuration loaded",
		zap.String("config", cfg.ConfigPath),
		zap.String("transport", string(conf.Server.Transport)),
		zap.Bool("credential_watch", conf.Credentials.Watch),
		zap.Bool("journal", conf.Journal.Path != ""),
	)

	srv, err := newServer(conf, logger)
	if err != nil {
		return err
	}
	defer srv.close()

	return srv.run(ctx)
}

// ValidateConfig loads the configuration and the credential file it
// points at, reporting the first problem found. Nothing is served and
// no journal is created.
func (a *App) ValidateConfig(_ context.Context, cfg ValidateConfig) error {
	conf, err := config.NewLoader(a.logger).Load(cfg.ConfigPath)
	if err != nil {
		return err
	}

	store, err := edgegrid.LoadStore(conf.Credentials.Path, conf.Credentials.DefaultSection)
	if err != nil {
		return err
	}

	a.logger.Info("configuration validated",
		zap.String("config", cfg.ConfigPath),
		zap.String("transport", string(conf.Server.Transport)),
		zap.Int("credential_sections", len(store.Sections())),
	)
	return nil
}

func applyOverrides(conf *domain.Config, o Overrides) error {
	if o.Transport != "" {
		transport := domain.NormalizeTransport(domain.TransportKind(o.Transport))
		if transport != domain.TransportStdio && transport != domain.TransportHTTP {
			return fmt.Errorf("transport must be stdio or http, got %q", o.Transport)
		}
		conf.Server.Transport = transport
	}
	if o.ListenAddress != "" {
		conf.Server.ListenAddress = strings.TrimSpace(o.ListenAddress)
	}
	if o.LogLevel != "" {
		if _, err := zapcore.ParseLevel(o.LogLevel); err != nil {
			return fmt.Errorf("parse log level: %w", err)
		}
		conf.Log.Level = strings.ToLower(o.LogLevel)
	}
	if conf.Server.Transport == domain.TransportHTTP && conf.Server.ListenAddress == "" {
		return errors.New("listen address is required for http transport")
	}
	return nil
}
