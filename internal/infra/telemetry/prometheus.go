package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"edgemcp/internal/domain"
)

type PrometheusMetrics struct {
	dispatchDuration      *prometheus.HistogramVec
	dispatchTotal         *prometheus.CounterVec
	inflightDispatches    *prometheus.GaugeVec
	cacheEvents           *prometheus.CounterVec
	cacheEntries          prometheus.Gauge
	cacheEvictions        prometheus.Counter
	upstreamDuration      *prometheus.HistogramVec
	upstreamRetries       *prometheus.CounterVec
	changelistTransitions *prometheus.CounterVec
	zoneWait              *prometheus.HistogramVec
	activationPoll        *prometheus.HistogramVec
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		dispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "edgemcp_dispatch_duration_seconds",
				Help:    "Duration of dispatched tool calls in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"tool", "status"},
		),
		dispatchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edgemcp_dispatch_total",
				Help: "Total dispatched tool calls by outcome reason",
			},
			[]string{"tool", "section", "reason"},
		),
		inflightDispatches: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "edgemcp_inflight_dispatches",
				Help: "Currently executing tool calls",
			},
			[]string{"tool"},
		),
		cacheEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edgemcp_cache_events_total",
				Help: "Call cache outcomes by tool",
			},
			[]string{"tool", "outcome"},
		),
		cacheEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "edgemcp_cache_entries",
				Help: "Live call cache entries",
			},
		),
		cacheEvictions: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "edgemcp_cache_evictions_total",
				Help: "Expired call cache entries removed",
			},
		),
		upstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "edgemcp_upstream_request_duration_seconds",
				Help:    "Duration of edge platform requests in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"service", "status"},
		),
		upstreamRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edgemcp_upstream_retries_total",
				Help: "Retried edge platform requests",
			},
			[]string{"service"},
		),
		changelistTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edgemcp_changelist_transitions_total",
				Help: "Changelist lifecycle transitions by target status",
			},
			[]string{"to"},
		),
		zoneWait: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "edgemcp_zone_wait_seconds",
				Help:    "Time spent waiting on per-zone serialization",
				Buckets: []float64{.001, .01, .1, .5, 1, 5, 15, 60, 300},
			},
			[]string{"outcome"},
		),
		activationPoll: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "edgemcp_activation_poll_seconds",
				Help:    "Wall time of activation poll loops",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"outcome"},
		),
	}
}

func (p *PrometheusMetrics) ObserveDispatch(metric domain.DispatchMetric) {
	p.dispatchDuration.WithLabelValues(metric.Tool, string(metric.Status)).Observe(metric.Duration.Seconds())
	p.dispatchTotal.WithLabelValues(metric.Tool, metric.Section, string(metric.Reason)).Inc()
}

func (p *PrometheusMetrics) AddInflightDispatches(tool string, delta int) {
	p.inflightDispatches.WithLabelValues(tool).Add(float64(delta))
}

func (p *PrometheusMetrics) ObserveCache(tool string, outcome domain.CacheOutcome) {
	p.cacheEvents.WithLabelValues(tool, string(outcome)).Inc()
}

func (p *PrometheusMetrics) SetCacheEntries(count int) {
	p.cacheEntries.Set(float64(count))
}

func (p *PrometheusMetrics) AddCacheEvictions(count int) {
	p.cacheEvictions.Add(float64(count))
}

func (p *PrometheusMetrics) ObserveUpstreamRequest(service string, status int, duration time.Duration) {
	p.upstreamDuration.WithLabelValues(service, strconv.Itoa(status)).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveUpstreamRetry(service string) {
	p.upstreamRetries.WithLabelValues(service).Inc()
}

func (p *PrometheusMetrics) ObserveChangelistTransition(to domain.ChangelistStatus) {
	p.changelistTransitions.WithLabelValues(string(to)).Inc()
}

func (p *PrometheusMetrics) ObserveZoneWait(duration time.Duration, outcome domain.ZoneWaitOutcome) {
	p.zoneWait.WithLabelValues(string(outcome)).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveActivationPoll(duration time.Duration, outcome domain.ActivationOutcome) {
	p.activationPoll.WithLabelValues(string(outcome)).Observe(duration.Seconds())
}

var _ domain.Metrics = (*PrometheusMetrics)(nil)
