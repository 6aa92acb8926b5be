package domain

import (
	"errors"
	"strings"
)

type ErrorCode string

const (
	CodeInvalidArgument  ErrorCode = "INVALID_ARGUMENT"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeUnavailable      ErrorCode = "UNAVAILABLE"
	CodeFailedPrecond    ErrorCode = "FAILED_PRECONDITION"
	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	CodeUnauthenticated  ErrorCode = "UNAUTHENTICATED"
	CodeInternal         ErrorCode = "INTERNAL"
	CodeCanceled         ErrorCode = "CANCELED"
	CodeDeadlineExceeded ErrorCode = "DEADLINE_EXCEEDED"
)

var (
	// ErrToolNotFound reports a call for a tool name absent from the registry.
	ErrToolNotFound = errors.New("tool not found")
	// ErrToolExists reports a duplicate tool registration.
	ErrToolExists = errors.New("tool already registered")
	// ErrRegistryFrozen reports a registration after the registry was frozen.
	ErrRegistryFrozen = errors.New("registry is frozen")
	// ErrCustomerNotFound reports a customer section absent from the credential store.
	ErrCustomerNotFound = errors.New("customer section not found")
	// ErrZoneBusy reports a zone whose changelist engine is mid-flight.
	ErrZoneBusy = errors.New("zone has a changelist in flight")
)

type Error struct {
	Code      ErrorCode
	Op        string
	Message   string
	Cause     error
	Retryable bool
	Meta      map[string]string
}

// Error renders as "op: CODE: message", dropping whichever parts are
// empty. The message falls back to the cause.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}

	parts := make([]string, 0, 3)
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	parts = append(parts, string(e.Code))
	if msg != "" {
		parts = append(parts, msg)
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// E builds an Error. A blank msg is filled from cause so that the
// Message field is always usable on its own.
func E(code ErrorCode, op, msg string, cause error) *Error {
	e := &Error{Code: code, Op: op, Message: msg, Cause: cause}
	if e.Message == "" && cause != nil {
		e.Message = cause.Error()
	}
	return e
}

// Wrap adopts err into the taxonomy. An Error already carrying an op
// passes through untouched; one missing only the op gets it filled in.
func Wrap(code ErrorCode, op string, err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if !errors.As(err, &existing) {
		return E(code, op, "", err)
	}
	if existing.Op != "" || op == "" {
		return existing
	}
	clone := *existing
	clone.Op = op
	return &clone
}

// sentinelCodes maps the package sentinels onto the code taxonomy for
// callers that classify errors without building an *Error.
var sentinelCodes = []struct {
	err  error
	code ErrorCode
}{
	{ErrToolNotFound, CodeNotFound},
	{ErrCustomerNotFound, CodeNotFound},
	{ErrToolExists, CodeAlreadyExists},
	{ErrRegistryFrozen, CodeFailedPrecond},
	{ErrZoneBusy, CodeUnavailable},
}

func CodeFrom(err error) (ErrorCode, bool) {
	if err == nil {
		return "", false
	}
	var domainErr *Error
	if errors.As(err, &domainErr) && domainErr.Code != "" {
		return domainErr.Code, true
	}
	for _, sentinel := range sentinelCodes {
		if errors.Is(err, sentinel.err) {
			return sentinel.code, true
		}
	}
	return "", false
}

// IsRetryable reports whether the error is marked safe to retry.
func IsRetryable(err error) bool {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Retryable
	}
	return false
}
