package telemetry

import (
	"time"

	"go.uber.org/zap"
)

const (
	FieldEvent      = "event"
	FieldTool       = "tool"
	FieldSection    = "section"
	FieldZone       = "zone"
	FieldChangelist = "changelist"
	FieldState      = "state"
	FieldDurationMs = "duration_ms"
	FieldCallID     = "call_id"
	FieldTraceID    = "trace_id"
	FieldSpanID     = "span_id"
)

const (
	EventDispatchError        = "dispatch_error"
	EventValidateFailure      = "validate_failure"
	EventAuthFailure          = "auth_failure"
	EventUpstreamRetry        = "upstream_retry"
	EventChangelistTransition = "changelist_transition"
	EventActivationTimeout    = "activation_timeout"
	EventCredentialReload     = "credential_reload"
	EventJournalError         = "journal_error"
)

func EventField(event string) zap.Field {
	return zap.String(FieldEvent, event)
}

func ToolField(tool string) zap.Field {
	return zap.String(FieldTool, tool)
}

func SectionField(section string) zap.Field {
	return zap.String(FieldSection, section)
}

func ZoneField(zone string) zap.Field {
	return zap.String(FieldZone, zone)
}

func ChangelistField(id string) zap.Field {
	return zap.String(FieldChangelist, id)
}

func StateField(state string) zap.Field {
	return zap.String(FieldState, state)
}

func DurationField(duration time.Duration) zap.Field {
	return zap.Int64(FieldDurationMs, duration.Milliseconds())
}
