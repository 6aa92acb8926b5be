package domain

const (
	DefaultServerName                 = "edgemcp"
	DefaultSection                    = "default"
	DefaultCredentialsPath            = "~/.edgerc"
	DefaultHTTPListenAddress          = "127.0.0.1:8188"
	DefaultObservabilityListenAddress = "0.0.0.0:9090"
	DefaultLogLevel                   = "info"
	DefaultLogEncoding                = "json"
	DefaultUpstreamTimeoutSeconds     = 30
	DefaultRetryMaxAttempts           = 4
	DefaultRetryBaseMillis            = 500
	DefaultRetryCapMillis             = 8000
	DefaultPollIntervalSeconds        = 15
	DefaultActivationTimeoutSeconds   = 300
	DefaultCacheSweepSeconds          = 60
	DefaultJournalRetention           = 200
)
