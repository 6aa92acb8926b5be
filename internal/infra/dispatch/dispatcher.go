// Package dispatch routes validated tool calls from the MCP surface to
// their handlers, through the credential resolver and the call cache.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"edgemcp/internal/domain"
	"edgemcp/internal/infra/callcache"
	"edgemcp/internal/infra/format"
	"edgemcp/internal/infra/telemetry"
)

type Dispatcher struct {
	registry *domain.Registry
	resolver domain.CredentialResolver
	cache    *callcache.Cache
	logger   *zap.Logger
	metrics  domain.Metrics
}

type Options struct {
	Cache   *callcache.Cache
	Logger  *zap.Logger
	Metrics domain.Metrics
}

func NewDispatcher(registry *domain.Registry, resolver domain.CredentialResolver, opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Dispatcher{
		registry: registry,
		resolver: resolver,
		cache:    opts.Cache,
		logger:   logger.Named("dispatch"),
		metrics:  metrics,
	}
}

// Dispatch runs one tool call end to end. Failures never cross this
// boundary as errors; they come back as IsError responses so one bad
// call cannot disturb the serving loop or unrelated calls.
func (d *Dispatcher) Dispatch(ctx context.Context, call domain.ToolCall) domain.ToolResponse {
	start := time.Now()
	ctx, _ = telemetry.StampCall(ctx)
	logger := telemetry.CallLogger(ctx, d.logger)

	tool, err := d.registry.Lookup(call.Name)
	if err != nil {
		return d.fail(logger, call.Name, "", start, err)
	}

	d.metrics.AddInflightDispatches(tool.Name, 1)
	defer d.metrics.AddInflightDispatches(tool.Name, -1)

	decoded, err := decodeArguments(call.Arguments)
	if err != nil {
		return d.fail(logger, tool.Name, "", start, err)
	}
	if tool.Resolved != nil {
		if err := tool.Resolved.Validate(decoded); err != nil {
			invalid := domain.E(domain.CodeInvalidArgument, "dispatch.validate", err.Error(), err)
			return d.fail(logger, tool.Name, "", start, invalid)
		}
	}
	section, formatName := reservedArguments(decoded)

	customer, err := d.resolver.Resolve(section)
	if err != nil {
		return d.fail(logger, tool.Name, "", start, domain.E(domain.CodeUnauthenticated, "dispatch.customer", "", err))
	}

	value, err := d.execute(ctx, tool, call.Arguments, customer)
	if err != nil {
		return d.fail(logger, tool.Name, customer.Section, start, err)
	}

	blocks, err := format.Render(value, format.Parse(formatName))
	if err != nil {
		return d.fail(logger, tool.Name, customer.Section, start, err)
	}

	d.metrics.ObserveDispatch(domain.DispatchMetric{
		Tool:     tool.Name,
		Section:  customer.Section,
		Status:   domain.DispatchStatusSuccess,
		Reason:   domain.DispatchReasonSuccess,
		Duration: time.Since(start),
	})
	logger.Debug("dispatch completed",
		telemetry.ToolField(tool.Name),
		telemetry.SectionField(customer.Section),
		telemetry.DurationField(time.Since(start)),
	)
	return domain.ToolResponse{Blocks: blocks, Structured: value}
}

func (d *Dispatcher) execute(ctx context.Context, tool *domain.RegisteredTool, args json.RawMessage, customer domain.CustomerContext) (any, error) {
	run := func(ctx context.Context) (any, error) {
		return tool.Handler(ctx, domain.HandlerRequest{Args: args, Customer: customer})
	}
	if d.cache == nil {
		return run(ctx)
	}
	key := callcache.CallKey{Tool: tool.Name, Args: args, Section: customer.Section}
	return d.cache.Do(ctx, key, tool.Options, run)
}

func (d *Dispatcher) fail(logger *zap.Logger, tool, section string, start time.Time, err error) domain.ToolResponse {
	code := codeOf(err)
	reason := reasonOf(code, err)

	metricTool := tool
	if reason == domain.DispatchReasonUnknownTool {
		// Unregistered names are caller-controlled; keep the label bounded.
		metricTool = "unknown"
	}
	d.metrics.ObserveDispatch(domain.DispatchMetric{
		Tool:     metricTool,
		Section:  section,
		Status:   domain.DispatchStatusError,
		Reason:   reason,
		Duration: time.Since(start),
	})

	fields := []zap.Field{
		telemetry.EventField(telemetry.EventDispatchError),
		telemetry.ToolField(tool),
		telemetry.DurationField(time.Since(start)),
		zap.String("reason", string(reason)),
		zap.Error(err),
	}
	if section != "" {
		fields = append(fields, telemetry.SectionField(section))
	}
	logger.Warn("dispatch failed", fields...)

	return domain.ToolResponse{
		Blocks:  []domain.ContentBlock{{Kind: domain.ContentKindText, Text: errorText(code, err)}},
		IsError: true,
		Code:    code,
	}
}

func decodeArguments(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, domain.E(domain.CodeInvalidArgument, "dispatch.decode", "arguments are not valid JSON", err)
	}
	if decoded == nil {
		return map[string]any{}, nil
	}
	return decoded, nil
}

// reservedArguments extracts the cross-cutting customer and format
// arguments. Both stay visible to the handler's own decoding.
func reservedArguments(decoded any) (section, formatName string) {
	m, ok := decoded.(map[string]any)
	if !ok {
		return "", ""
	}
	section, _ = m["customer"].(string)
	formatName, _ = m["format"].(string)
	return section, formatName
}

func codeOf(err error) domain.ErrorCode {
	switch {
	case errors.Is(err, context.Canceled):
		return domain.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return domain.CodeDeadlineExceeded
	}
	if code, ok := domain.CodeFrom(err); ok {
		return code
	}
	return domain.CodeInternal
}

func reasonOf(code domain.ErrorCode, err error) domain.DispatchReason {
	if errors.Is(err, domain.ErrToolNotFound) {
		return domain.DispatchReasonUnknownTool
	}
	switch code {
	case domain.CodeInvalidArgument:
		return domain.DispatchReasonInvalidArgs
	case domain.CodeUnauthenticated:
		return domain.DispatchReasonAuthFailed
	case domain.CodeConflict:
		return domain.DispatchReasonConflict
	case domain.CodeDeadlineExceeded:
		return domain.DispatchReasonTimeout
	case domain.CodeCanceled:
		return domain.DispatchReasonCanceled
	case domain.CodeInternal:
		return domain.DispatchReasonInternal
	default:
		return domain.DispatchReasonUpstream
	}
}

func errorText(code domain.ErrorCode, err error) string {
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		msg := domainErr.Message
		if msg == "" && domainErr.Cause != nil {
			msg = domainErr.Cause.Error()
		}
		if domainErr.Op != "" {
			return fmt.Sprintf("[%s] %s: %s", code, domainErr.Op, msg)
		}
		return fmt.Sprintf("[%s] %s", code, msg)
	}
	return fmt.Sprintf("[%s] %s", code, err.Error())
}
