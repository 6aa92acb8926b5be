package telemetry

import (
	"time"

	"edgemcp/internal/domain"
)

type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (n *NoopMetrics) ObserveDispatch(_ domain.DispatchMetric) {}

func (n *NoopMetrics) AddInflightDispatches(_ string, _ int) {}

func (n *NoopMetrics) ObserveCache(_ string, _ domain.CacheOutcome) {}

func (n *NoopMetrics) SetCacheEntries(_ int) {}

func (n *NoopMetrics) AddCacheEvictions(_ int) {}

func (n *NoopMetrics) ObserveUpstreamRequest(_ string, _ int, _ time.Duration) {}

func (n *NoopMetrics) ObserveUpstreamRetry(_ string) {}

func (n *NoopMetrics) ObserveChangelistTransition(_ domain.ChangelistStatus) {}

func (n *NoopMetrics) ObserveZoneWait(_ time.Duration, _ domain.ZoneWaitOutcome) {}

func (n *NoopMetrics) ObserveActivationPoll(_ time.Duration, _ domain.ActivationOutcome) {}

var _ domain.Metrics = (*NoopMetrics)(nil)
