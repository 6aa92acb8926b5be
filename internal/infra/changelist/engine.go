// Package changelist drives zone record mutations through the edge
// platform's changelist workflow: open, queue edits, validate, submit,
// activate, and poll until the change is live. Work is serialized per
// zone; a batch of edits lands atomically or not at all.
package changelist

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"edgemcp/internal/domain"
	"edgemcp/internal/infra/edgegrid"
	"edgemcp/internal/infra/telemetry"
)

const service = "edge-dns"

const basePath = "/config-dns/v2"

// Upstream activation states reported by the zone activation endpoint.
const (
	ActivationPending = "PENDING"
	ActivationActive  = "ACTIVE"
	ActivationFailed  = "FAILED"
)

// discardTimeout bounds the best-effort upstream discard on failure
// paths, which must run even when the caller's context is gone.
const discardTimeout = 10 * time.Second

type Options struct {
	Journal           domain.ActivationJournal
	PollInterval      time.Duration
	ActivationTimeout time.Duration
	Logger            *zap.Logger
	Metrics           domain.Metrics
}

// ApplyOptions overrides the engine's polling bounds for one call.
type ApplyOptions struct {
	PollInterval time.Duration
	Timeout      time.Duration
}

// Result reports a completed changelist cycle.
type Result struct {
	Changelist   domain.Changelist `json:"changelist"`
	ActivationID string            `json:"activationId"`
}

// ActivationStatus is the upstream view of one zone activation.
type ActivationStatus struct {
	Zone         string `json:"zone"`
	ActivationID string `json:"activationId"`
	Status       string `json:"status"`
	Detail       string `json:"detail,omitempty"`
}

type changelistResponse struct {
	Zone          string `json:"zone"`
	ChangeListID  string `json:"changeListId"`
	ZoneVersionID string `json:"zoneVersionId"`
}

type submitResponse struct {
	ActivationID string `json:"activationId"`
}

type recordBody struct {
	Name  string   `json:"name"`
	Type  string   `json:"type"`
	TTL   int      `json:"ttl"`
	Rdata []string `json:"rdata"`
}

// Engine owns the changelist lifecycle for every zone this process
// touches. At most one changelist per zone is in flight at a time.
type Engine struct {
	client  *edgegrid.Client
	journal domain.ActivationJournal
	gate    *zoneGate

	pollInterval      time.Duration
	activationTimeout time.Duration
	logger            *zap.Logger
	metrics           domain.Metrics
}

func NewEngine(client *edgegrid.Client, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = domain.DefaultPollIntervalSeconds * time.Second
	}
	activationTimeout := opts.ActivationTimeout
	if activationTimeout <= 0 {
		activationTimeout = domain.DefaultActivationTimeoutSeconds * time.Second
	}
	return &Engine{
		client:            client,
		journal:           opts.Journal,
		gate:              newZoneGate(),
		pollInterval:      pollInterval,
		activationTimeout: activationTimeout,
		logger:            logger.Named("changelist"),
		metrics:           metrics,
	}
}

// Apply runs one full changelist cycle for zone: open, queue every edit
// in order, validate, submit, activate, and poll to a terminal state.
// Any upstream rejection discards the changelist and fails the whole
// batch; no partial edit set is ever left submitted. A second Apply for
// the same zone waits until the first settles.
func (e *Engine) Apply(ctx context.Context, customer domain.CustomerContext, zone string, edits []domain.RecordEdit, opts ApplyOptions) (Result, error) {
	const op = "changelist.apply"

	if zone == "" {
		return Result{}, domain.E(domain.CodeInvalidArgument, op, "zone is required", nil)
	}
	if len(edits) == 0 {
		return Result{}, domain.E(domain.CodeInvalidArgument, op, "no edits to apply", nil)
	}
	for i, edit := range edits {
		if err := validateEdit(edit); err != nil {
			return Result{}, domain.E(domain.CodeInvalidArgument, op, fmt.Sprintf("edit %d: %v", i+1, err), err)
		}
	}

	waitStart := time.Now()
	if err := e.gate.acquire(ctx, zone); err != nil {
		e.metrics.ObserveZoneWait(time.Since(waitStart), domain.ZoneWaitCanceled)
		code := domain.CodeCanceled
		if errors.Is(err, context.DeadlineExceeded) {
			code = domain.CodeDeadlineExceeded
		}
		return Result{}, domain.E(code, op, fmt.Sprintf("zone %q: %v", zone, domain.ErrZoneBusy), domain.ErrZoneBusy)
	}
	e.metrics.ObserveZoneWait(time.Since(waitStart), domain.ZoneWaitAcquired)
	defer e.gate.release(zone)

	logger := telemetry.CallLogger(ctx, e.logger).With(
		telemetry.ZoneField(zone),
		telemetry.SectionField(customer.Section),
	)

	cl, err := e.open(ctx, customer, zone)
	if err != nil {
		return Result{}, err
	}
	logger = logger.With(telemetry.ChangelistField(cl.ID))
	e.metrics.ObserveChangelistTransition(domain.ChangelistOpen)
	logger.Info("changelist opened",
		telemetry.EventField(telemetry.EventChangelistTransition),
		telemetry.StateField(string(domain.ChangelistOpen)),
	)

	for i, edit := range edits {
		if err := e.applyEdit(ctx, customer, zone, edit); err != nil {
			e.failChangelist(ctx, customer, &cl, logger, "", fmt.Sprintf("edit %d of %d rejected: %v", i+1, len(edits), err))
			return Result{}, err
		}
		cl.Edits = append(cl.Edits, edit)
	}

	if err := e.transition(&cl, domain.ChangelistValidating, logger); err != nil {
		return Result{}, err
	}
	if err := e.validate(ctx, customer, zone); err != nil {
		e.failChangelist(ctx, customer, &cl, logger, "", fmt.Sprintf("validation failed: %v", err))
		return Result{}, recodeRejection(op, err)
	}
	if err := e.transition(&cl, domain.ChangelistSubmitted, logger); err != nil {
		return Result{}, err
	}

	activationID, err := e.submit(ctx, customer, zone)
	if err != nil {
		e.failChangelist(ctx, customer, &cl, logger, "", fmt.Sprintf("submit failed: %v", err))
		return Result{}, recodeRejection(op, err)
	}
	if err := e.transition(&cl, domain.ChangelistActivating, logger); err != nil {
		return Result{}, err
	}

	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = e.pollInterval
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = e.activationTimeout
	}

	pollStart := time.Now()
	status, err := e.awaitActivation(ctx, customer, zone, activationID, pollInterval, timeout)
	if err != nil {
		var domainErr *domain.Error
		if errors.As(err, &domainErr) && domainErr.Code == domain.CodeDeadlineExceeded {
			// The upstream activation keeps going; only local tracking
			// stops. The caller re-polls with the activation ID.
			e.metrics.ObserveActivationPoll(time.Since(pollStart), domain.ActivationOutcomeTimeout)
			logger.Warn("activation poll timed out",
				telemetry.EventField(telemetry.EventActivationTimeout),
				zap.String("activation_id", activationID),
				zap.Duration("timeout", timeout),
			)
		}
		return Result{}, err
	}

	if status.Status == ActivationFailed {
		e.metrics.ObserveActivationPoll(time.Since(pollStart), domain.ActivationOutcomeFailed)
		detail := status.Detail
		if detail == "" {
			detail = "activation failed"
		}
		e.failChangelist(ctx, customer, &cl, logger, activationID, detail)
		failure := domain.E(domain.CodeConflict, op, detail, nil)
		failure.Meta = map[string]string{"activation_id": activationID}
		return Result{}, failure
	}

	e.metrics.ObserveActivationPoll(time.Since(pollStart), domain.ActivationOutcomeActive)
	if err := e.transition(&cl, domain.ChangelistActive, logger); err != nil {
		return Result{}, err
	}
	e.recordOutcome(logger, domain.ActivationRecord{
		Zone:         zone,
		ChangelistID: cl.ID,
		ActivationID: activationID,
		Status:       domain.ChangelistActive,
		CompletedAt:  time.Now().UTC(),
	})

	return Result{Changelist: cl, ActivationID: activationID}, nil
}

// ActivationStatus fetches the upstream state of one zone activation.
func (e *Engine) ActivationStatus(ctx context.Context, customer domain.CustomerContext, zone, activationID string) (ActivationStatus, error) {
	const op = "changelist.activation_status"
	if zone == "" || activationID == "" {
		return ActivationStatus{}, domain.E(domain.CodeInvalidArgument, op, "zone and activation id are required", nil)
	}
	var status ActivationStatus
	err := e.client.Do(ctx, customer, edgegrid.Request{
		Service: service,
		Method:  http.MethodGet,
		Path:    fmt.Sprintf("%s/zones/%s/activations/%s", basePath, url.PathEscape(zone), url.PathEscape(activationID)),
	}, &status)
	if err != nil {
		return ActivationStatus{}, err
	}
	return status, nil
}

func (e *Engine) open(ctx context.Context, customer domain.CustomerContext, zone string) (domain.Changelist, error) {
	var resp changelistResponse
	err := e.client.Do(ctx, customer, edgegrid.Request{
		Service: service,
		Method:  http.MethodPost,
		Path:    basePath + "/changelists",
		Query:   url.Values{"zone": []string{zone}},
	}, &resp)
	if err != nil {
		return domain.Changelist{}, err
	}
	return domain.Changelist{
		Zone:        zone,
		ID:          resp.ChangeListID,
		BaseVersion: resp.ZoneVersionID,
		Status:      domain.ChangelistOpen,
	}, nil
}

func (e *Engine) applyEdit(ctx context.Context, customer domain.CustomerContext, zone string, edit domain.RecordEdit) error {
	path := fmt.Sprintf("%s/changelists/%s/recordsets/%s/%s",
		basePath, url.PathEscape(zone), url.PathEscape(edit.Name), url.PathEscape(edit.Type))

	if edit.Op == domain.RecordOpDelete {
		return e.client.Do(ctx, customer, edgegrid.Request{
			Service: service,
			Method:  http.MethodDelete,
			Path:    path,
		}, nil)
	}
	return e.client.Do(ctx, customer, edgegrid.Request{
		Service: service,
		Method:  http.MethodPut,
		Path:    path,
		Body: recordBody{
			Name:  edit.Name,
			Type:  edit.Type,
			TTL:   edit.TTL,
			Rdata: edit.Rdata,
		},
	}, nil)
}

func (e *Engine) validate(ctx context.Context, customer domain.CustomerContext, zone string) error {
	return e.client.Do(ctx, customer, edgegrid.Request{
		Service: service,
		Method:  http.MethodPost,
		Path:    fmt.Sprintf("%s/changelists/%s/validate", basePath, url.PathEscape(zone)),
	}, nil)
}

func (e *Engine) submit(ctx context.Context, customer domain.CustomerContext, zone string) (string, error) {
	var resp submitResponse
	err := e.client.Do(ctx, customer, edgegrid.Request{
		Service: service,
		Method:  http.MethodPost,
		Path:    fmt.Sprintf("%s/changelists/%s/submit", basePath, url.PathEscape(zone)),
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.ActivationID == "" {
		return "", domain.E(domain.CodeInternal, "changelist.submit", "upstream returned no activation id", nil)
	}
	return resp.ActivationID, nil
}

func (e *Engine) discard(ctx context.Context, customer domain.CustomerContext, zone string) error {
	// Discard must run even when the caller is already gone.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()
	return e.client.Do(ctx, customer, edgegrid.Request{
		Service: service,
		Method:  http.MethodDelete,
		Path:    fmt.Sprintf("%s/changelists/%s", basePath, url.PathEscape(zone)),
	}, nil)
}

func (e *Engine) awaitActivation(ctx context.Context, customer domain.CustomerContext, zone, activationID string, interval, timeout time.Duration) (ActivationStatus, error) {
	const op = "changelist.activate"

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		status, err := e.ActivationStatus(ctx, customer, zone, activationID)
		if err != nil {
			return ActivationStatus{}, err
		}
		if status.Status == ActivationActive || status.Status == ActivationFailed {
			return status, nil
		}

		select {
		case <-ctx.Done():
			code := domain.CodeCanceled
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				code = domain.CodeDeadlineExceeded
			}
			return ActivationStatus{}, domain.E(code, op, "", ctx.Err())
		case <-deadline.C:
			timeoutErr := domain.E(domain.CodeDeadlineExceeded, op,
				fmt.Sprintf("activation %s still %s after %s", activationID, status.Status, timeout), nil)
			timeoutErr.Meta = map[string]string{"activation_id": activationID}
			return ActivationStatus{}, timeoutErr
		case <-ticker.C:
		}
	}
}

// failChangelist moves the local changelist to FAILED, discards the
// upstream one best-effort, and journals the outcome.
func (e *Engine) failChangelist(ctx context.Context, customer domain.CustomerContext, cl *domain.Changelist, logger *zap.Logger, activationID, detail string) {
	if !cl.Status.Terminal() {
		_ = e.transition(cl, domain.ChangelistFailed, logger)
	}
	if err := e.discard(ctx, customer, cl.Zone); err != nil {
		logger.Warn("changelist discard failed", zap.Error(err))
	}
	e.recordOutcome(logger, domain.ActivationRecord{
		Zone:         cl.Zone,
		ChangelistID: cl.ID,
		ActivationID: activationID,
		Status:       domain.ChangelistFailed,
		Detail:       detail,
		CompletedAt:  time.Now().UTC(),
	})
}

func (e *Engine) transition(cl *domain.Changelist, next domain.ChangelistStatus, logger *zap.Logger) error {
	if !cl.Status.CanTransition(next) {
		return domain.E(domain.CodeInternal, "changelist.transition",
			fmt.Sprintf("illegal transition %s -> %s", cl.Status, next), nil)
	}
	from := cl.Status
	cl.Status = next
	e.metrics.ObserveChangelistTransition(next)
	logger.Info("changelist transition",
		telemetry.EventField(telemetry.EventChangelistTransition),
		zap.String("from", string(from)),
		telemetry.StateField(string(next)),
	)
	return nil
}

func (e *Engine) recordOutcome(logger *zap.Logger, rec domain.ActivationRecord) {
	if e.journal == nil {
		return
	}
	if err := e.journal.RecordActivation(rec); err != nil {
		logger.Warn("journal write failed",
			telemetry.EventField(telemetry.EventJournalError),
			zap.Error(err),
		)
	}
}

func validateEdit(edit domain.RecordEdit) error {
	switch edit.Op {
	case domain.RecordOpAdd, domain.RecordOpUpdate, domain.RecordOpDelete:
	default:
		return fmt.Errorf("unknown op %q", edit.Op)
	}
	if edit.Name == "" {
		return errors.New("record name is required")
	}
	if edit.Type == "" {
		return errors.New("record type is required")
	}
	if edit.Op != domain.RecordOpDelete {
		if edit.TTL <= 0 {
			return errors.New("ttl must be > 0")
		}
		if len(edit.Rdata) == 0 {
			return errors.New("rdata is required")
		}
	}
	return nil
}

// recodeRejection maps upstream rejections of the changelist itself to
// CONFLICT; transport-level failures keep their own code.
func recodeRejection(op string, err error) error {
	code, ok := domain.CodeFrom(err)
	if !ok {
		return err
	}
	switch code {
	case domain.CodeInvalidArgument, domain.CodeConflict, domain.CodeFailedPrecond:
		return domain.E(domain.CodeConflict, op, "changelist rejected by upstream", err)
	default:
		return err
	}
}
