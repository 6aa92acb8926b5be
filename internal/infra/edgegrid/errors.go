package edgegrid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"edgemcp/internal/domain"
)

// problemDetail is the platform's RFC 7807 error body.
type problemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title,omitempty"`
	Detail string `json:"detail,omitempty"`
	Status int    `json:"status,omitempty"`
}

func statusError(op string, resp *http.Response, body []byte) *domain.Error {
	var problem problemDetail
	_ = json.Unmarshal(body, &problem)
	msg := problem.Detail
	if msg == "" {
		msg = problem.Title
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	err := domain.E(codeForStatus(resp.StatusCode), op,
		fmt.Sprintf("upstream %d: %s", resp.StatusCode, msg), nil)
	err.Meta = map[string]string{"status": strconv.Itoa(resp.StatusCode)}
	if retryableStatus(resp.StatusCode) {
		err.Retryable = true
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			err.Meta["retry_after"] = retryAfter
		}
	}
	return err
}

func codeForStatus(status int) domain.ErrorCode {
	switch {
	case status == http.StatusUnauthorized:
		return domain.CodeUnauthenticated
	case status == http.StatusForbidden:
		return domain.CodePermissionDenied
	case status == http.StatusNotFound:
		return domain.CodeNotFound
	case status == http.StatusConflict:
		return domain.CodeConflict
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return domain.CodeInvalidArgument
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return domain.CodeUnavailable
	case status >= 500:
		return domain.CodeUnavailable
	default:
		return domain.CodeFailedPrecond
	}
}

func retryableStatus(status int) bool {
	return status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500
}

func ctxError(op string, err error) *domain.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.E(domain.CodeDeadlineExceeded, op, "request deadline exceeded", err)
	}
	return domain.E(domain.CodeCanceled, op, "request canceled", err)
}
