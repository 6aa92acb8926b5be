package domain

import "time"

// DispatchStatus labels the outcome of a dispatched tool call.
type DispatchStatus string

const (
	// DispatchStatusSuccess indicates a successful dispatch.
	DispatchStatusSuccess DispatchStatus = "success"
	// DispatchStatusError indicates a failed dispatch.
	DispatchStatusError DispatchStatus = "error"
)

// DispatchReason describes why a dispatch ended with its status.
type DispatchReason string

const (
	// DispatchReasonSuccess indicates the call succeeded.
	DispatchReasonSuccess DispatchReason = "success"
	// DispatchReasonInvalidArgs indicates schema validation rejected the call.
	DispatchReasonInvalidArgs DispatchReason = "invalid_args"
	// DispatchReasonUnknownTool indicates the tool name is not registered.
	DispatchReasonUnknownTool DispatchReason = "unknown_tool"
	// DispatchReasonAuthFailed indicates customer resolution failed.
	DispatchReasonAuthFailed DispatchReason = "auth_failed"
	// DispatchReasonUpstream indicates the edge platform rejected or failed the call.
	DispatchReasonUpstream DispatchReason = "upstream_error"
	// DispatchReasonConflict indicates a changelist conflict.
	DispatchReasonConflict DispatchReason = "conflict"
	// DispatchReasonTimeout indicates a bounded wait expired.
	DispatchReasonTimeout DispatchReason = "timeout"
	// DispatchReasonCanceled indicates the caller went away.
	DispatchReasonCanceled DispatchReason = "canceled"
	// DispatchReasonInternal indicates an unexpected failure.
	DispatchReasonInternal DispatchReason = "internal"
)

// CacheOutcome labels how the call cache served one execution.
type CacheOutcome string

const (
	// CacheOutcomeHit indicates a live cached value was returned.
	CacheOutcomeHit CacheOutcome = "hit"
	// CacheOutcomeMiss indicates a fresh execution populated the cache.
	CacheOutcomeMiss CacheOutcome = "miss"
	// CacheOutcomeCoalesced indicates the caller joined an in-flight execution.
	CacheOutcomeCoalesced CacheOutcome = "coalesced"
	// CacheOutcomeBypass indicates the tool opted out of caching.
	CacheOutcomeBypass CacheOutcome = "bypass"
)

// ZoneWaitOutcome describes how a zone serialization wait ended.
type ZoneWaitOutcome string

const (
	// ZoneWaitAcquired indicates the zone lock was obtained.
	ZoneWaitAcquired ZoneWaitOutcome = "acquired"
	// ZoneWaitCanceled indicates the wait ended by cancellation.
	ZoneWaitCanceled ZoneWaitOutcome = "canceled"
)

// ActivationOutcome describes how an activation poll loop ended.
type ActivationOutcome string

const (
	// ActivationOutcomeActive indicates the zone reached ACTIVE.
	ActivationOutcomeActive ActivationOutcome = "active"
	// ActivationOutcomeFailed indicates upstream reported failure.
	ActivationOutcomeFailed ActivationOutcome = "failed"
	// ActivationOutcomeTimeout indicates the poll deadline expired.
	ActivationOutcomeTimeout ActivationOutcome = "timeout"
)

// DispatchMetric captures metrics for one dispatched call.
type DispatchMetric struct {
	Tool     string
	Section  string
	Status   DispatchStatus
	Reason   DispatchReason
	Duration time.Duration
}

// Metrics records operational metrics for dispatch, caching, upstream
// requests, and the changelist lifecycle.
type Metrics interface {
	ObserveDispatch(metric DispatchMetric)
	AddInflightDispatches(tool string, delta int)
	ObserveCache(tool string, outcome CacheOutcome)
	SetCacheEntries(count int)
	AddCacheEvictions(count int)
	ObserveUpstreamRequest(service string, status int, duration time.Duration)
	ObserveUpstreamRetry(service string)
	ObserveChangelistTransition(to ChangelistStatus)
	ObserveZoneWait(duration time.Duration, outcome ZoneWaitOutcome)
	ObserveActivationPoll(duration time.Duration, outcome ActivationOutcome)
}
