// Package config loads and validates the process configuration from a
// YAML file, expanding ${ENV} references before decoding.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"edgemcp/internal/domain"
)

type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		return &Loader{logger: zap.NewNop()}
	}
	return &Loader{logger: logger.Named("config")}
}

func newConfigViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", domain.DefaultServerName)
	v.SetDefault("server.transport", string(domain.TransportStdio))
	v.SetDefault("server.listenAddress", domain.DefaultHTTPListenAddress)
	v.SetDefault("log.level", domain.DefaultLogLevel)
	v.SetDefault("log.encoding", domain.DefaultLogEncoding)
	v.SetDefault("credentials.path", domain.DefaultCredentialsPath)
	v.SetDefault("credentials.defaultSection", domain.DefaultSection)
	v.SetDefault("upstream.timeoutSeconds", domain.DefaultUpstreamTimeoutSeconds)
	v.SetDefault("upstream.retry.maxAttempts", domain.DefaultRetryMaxAttempts)
	v.SetDefault("upstream.retry.baseMillis", domain.DefaultRetryBaseMillis)
	v.SetDefault("upstream.retry.capMillis", domain.DefaultRetryCapMillis)
	v.SetDefault("cache.sweepSeconds", domain.DefaultCacheSweepSeconds)
	v.SetDefault("dns.pollIntervalSeconds", domain.DefaultPollIntervalSeconds)
	v.SetDefault("dns.activationTimeoutSeconds", domain.DefaultActivationTimeoutSeconds)
	v.SetDefault("journal.retention", domain.DefaultJournalRetention)
	v.SetDefault("observability.listenAddress", domain.DefaultObservabilityListenAddress)
}

type rawConfig struct {
	Server        rawServerConfig        `mapstructure:"server"`
	Log           rawLogConfig           `mapstructure:"log"`
	Credentials   rawCredentialsConfig   `mapstructure:"credentials"`
	Upstream      rawUpstreamConfig      `mapstructure:"upstream"`
	Cache         rawCacheConfig         `mapstructure:"cache"`
	DNS           rawDNSConfig           `mapstructure:"dns"`
	Journal       rawJournalConfig       `mapstructure:"journal"`
	Observability rawObservabilityConfig `mapstructure:"observability"`
}

type rawServerConfig struct {
	Name          string `mapstructure:"name"`
	Transport     string `mapstructure:"transport"`
	ListenAddress string `mapstructure:"listenAddress"`
}

type rawLogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type rawCredentialsConfig struct {
	Path           string `mapstructure:"path"`
	DefaultSection string `mapstructure:"defaultSection"`
	Watch          bool   `mapstructure:"watch"`
}

type rawUpstreamConfig struct {
	TimeoutSeconds int            `mapstructure:"timeoutSeconds"`
	Retry          rawRetryConfig `mapstructure:"retry"`
}

type rawRetryConfig struct {
	MaxAttempts int `mapstructure:"maxAttempts"`
	BaseMillis  int `mapstructure:"baseMillis"`
	CapMillis   int `mapstructure:"capMillis"`
}

type rawCacheConfig struct {
	SweepSeconds int `mapstructure:"sweepSeconds"`
}

type rawDNSConfig struct {
	PollIntervalSeconds      int `mapstructure:"pollIntervalSeconds"`
	ActivationTimeoutSeconds int `mapstructure:"activationTimeoutSeconds"`
}

type rawJournalConfig struct {
	Path      string `mapstructure:"path"`
	Retention int    `mapstructure:"retention"`
}

type rawObservabilityConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ListenAddress string `mapstructure:"listenAddress"`
}

// Load reads, expands, decodes and validates the config file at path.
func (l *Loader) Load(path string) (domain.Config, error) {
	if path == "" {
		return domain.Config{}, errors.New("config path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Config{}, fmt.Errorf("read config: %w", err)
	}

	expanded, missing, err := expandEnv(data)
	if err != nil {
		return domain.Config{}, err
	}
	if len(missing) > 0 {
		l.logger.Warn("missing environment variables in config", zap.String("path", path), zap.Strings("missing", missing))
	}

	v := newConfigViper()
	if err := v.ReadConfig(bytes.NewReader(expanded)); err != nil {
		return domain.Config{}, fmt.Errorf("parse config: %w", err)
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return domain.Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg, errs := normalize(raw)
	if len(errs) > 0 {
		return domain.Config{}, errors.New(strings.Join(errs, "; "))
	}
	return cfg, nil
}

// Defaults returns the configuration an empty file would produce.
func Defaults() domain.Config {
	v := newConfigViper()
	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		panic(fmt.Sprintf("decode default config: %v", err))
	}
	cfg, errs := normalize(raw)
	if len(errs) > 0 {
		panic(fmt.Sprintf("invalid default config: %s", strings.Join(errs, "; ")))
	}
	return cfg
}

func normalize(raw rawConfig) (domain.Config, []string) {
	var errs []string

	name := strings.TrimSpace(raw.Server.Name)
	if name == "" {
		name = domain.DefaultServerName
	}

	transport := domain.NormalizeTransport(domain.TransportKind(raw.Server.Transport))
	if transport != domain.TransportStdio && transport != domain.TransportHTTP {
		errs = append(errs, "server.transport must be stdio or http")
	}
	listenAddress := strings.TrimSpace(raw.Server.ListenAddress)
	if transport == domain.TransportHTTP && listenAddress == "" {
		errs = append(errs, "server.listenAddress is required for http transport")
	}

	level := strings.ToLower(strings.TrimSpace(raw.Log.Level))
	if level == "" {
		level = domain.DefaultLogLevel
	}
	switch level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "log.level must be debug, info, warn, or error")
	}
	encoding := strings.ToLower(strings.TrimSpace(raw.Log.Encoding))
	if encoding == "" {
		encoding = domain.DefaultLogEncoding
	}
	if encoding != "json" && encoding != "console" {
		errs = append(errs, "log.encoding must be json or console")
	}

	credentialsPath := expandHome(strings.TrimSpace(raw.Credentials.Path))
	if credentialsPath == "" {
		errs = append(errs, "credentials.path is required")
	}
	defaultSection := strings.TrimSpace(raw.Credentials.DefaultSection)
	if defaultSection == "" {
		defaultSection = domain.DefaultSection
	}

	if raw.Upstream.TimeoutSeconds <= 0 {
		errs = append(errs, "upstream.timeoutSeconds must be > 0")
	}
	if raw.Upstream.Retry.MaxAttempts < 1 {
		errs = append(errs, "upstream.retry.maxAttempts must be >= 1")
	}
	if raw.Upstream.Retry.BaseMillis <= 0 {
		errs = append(errs, "upstream.retry.baseMillis must be > 0")
	}
	if raw.Upstream.Retry.CapMillis < raw.Upstream.Retry.BaseMillis {
		errs = append(errs, "upstream.retry.capMillis must be >= upstream.retry.baseMillis")
	}

	if raw.Cache.SweepSeconds <= 0 {
		errs = append(errs, "cache.sweepSeconds must be > 0")
	}

	if raw.DNS.PollIntervalSeconds <= 0 {
		errs = append(errs, "dns.pollIntervalSeconds must be > 0")
	}
	if raw.DNS.ActivationTimeoutSeconds < raw.DNS.PollIntervalSeconds {
		errs = append(errs, "dns.activationTimeoutSeconds must be >= dns.pollIntervalSeconds")
	}

	if raw.Journal.Retention < 1 {
		errs = append(errs, "journal.retention must be >= 1")
	}

	observabilityAddress := strings.TrimSpace(raw.Observability.ListenAddress)
	if raw.Observability.Enabled && observabilityAddress == "" {
		errs = append(errs, "observability.listenAddress is required when observability.enabled is true")
	}

	return domain.Config{
		Server: domain.ServerConfig{
			Name:          name,
			Transport:     transport,
			ListenAddress: listenAddress,
		},
		Log: domain.LogConfig{
			Level:    level,
			Encoding: encoding,
		},
		Credentials: domain.CredentialsConfig{
			Path:           credentialsPath,
			DefaultSection: defaultSection,
			Watch:          raw.Credentials.Watch,
		},
		Upstream: domain.UpstreamConfig{
			TimeoutSeconds: raw.Upstream.TimeoutSeconds,
			Retry: domain.RetryConfig{
				MaxAttempts: raw.Upstream.Retry.MaxAttempts,
				BaseMillis:  raw.Upstream.Retry.BaseMillis,
				CapMillis:   raw.Upstream.Retry.CapMillis,
			},
		},
		Cache: domain.CacheConfig{
			SweepSeconds: raw.Cache.SweepSeconds,
		},
		DNS: domain.DNSConfig{
			PollIntervalSeconds:      raw.DNS.PollIntervalSeconds,
			ActivationTimeoutSeconds: raw.DNS.ActivationTimeoutSeconds,
		},
		Journal: domain.JournalConfig{
			Path:      expandHome(strings.TrimSpace(raw.Journal.Path)),
			Retention: raw.Journal.Retention,
		},
		Observability: domain.ObservabilityConfig{
			Enabled:       raw.Observability.Enabled,
			ListenAddress: observabilityAddress,
		},
	}, errs
}

// expandHome rewrites a leading ~ to the current user's home directory.
// The path is returned unchanged when the home directory is unknown.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
