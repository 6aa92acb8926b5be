package domain

import "strings"

// TransportKind selects how the MCP server talks to its client.
type TransportKind string

const (
	TransportStdio TransportKind = "stdio"
	TransportHTTP  TransportKind = "http"
)

// NormalizeTransport lowercases the transport and maps the empty string
// to the stdio default.
func NormalizeTransport(kind TransportKind) TransportKind {
	normalized := TransportKind(strings.ToLower(strings.TrimSpace(string(kind))))
	if normalized == "" {
		return TransportStdio
	}
	return normalized
}

// Config is the validated process configuration.
type Config struct {
	Server        ServerConfig
	Log           LogConfig
	Credentials   CredentialsConfig
	Upstream      UpstreamConfig
	Cache         CacheConfig
	DNS           DNSConfig
	Journal       JournalConfig
	Observability ObservabilityConfig
}

// ServerConfig names the MCP server and selects its transport.
type ServerConfig struct {
	Name          string
	Transport     TransportKind
	ListenAddress string
}

type LogConfig struct {
	Level    string
	Encoding string
}

// CredentialsConfig locates the credential file and the section used
// when a call names no customer.
type CredentialsConfig struct {
	Path           string
	DefaultSection string
	Watch          bool
}

type UpstreamConfig struct {
	TimeoutSeconds int
	Retry          RetryConfig
}

// RetryConfig bounds the upstream retry loop.
type RetryConfig struct {
	MaxAttempts int
	BaseMillis  int
	CapMillis   int
}

type CacheConfig struct {
	SweepSeconds int
}

// DNSConfig bounds changelist activation polling.
type DNSConfig struct {
	PollIntervalSeconds      int
	ActivationTimeoutSeconds int
}

// JournalConfig locates the activation journal. An empty path disables
// the journal.
type JournalConfig struct {
	Path      string
	Retention int
}

type ObservabilityConfig struct {
	Enabled       bool
	ListenAddress string
}
