package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"automation-hub/internal/domain"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	HTTPStatus int
	Code       string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (HTTP %d): %s", e.HTTPStatus, e.Message)
}

// Detail returns the server-provided message, suitable for inline display.
func (e *APIError) Detail() string { return e.Message }

// Unwrap maps the status onto the domain error taxonomy so callers can
// match with errors.As against domain types.
func (e *APIError) Unwrap() error {
	switch e.HTTPStatus {
	case http.StatusUnauthorized:
		return domain.ErrSessionExpired("%s", e.Message)
	case http.StatusForbidden:
		return domain.ErrAccessDenied("%s", e.Message)
	case http.StatusNotFound:
		return domain.ErrNotFound("%s", e.Message)
	case http.StatusConflict:
		return domain.ErrConflict("%s", e.Message)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.ErrValidation("%s", e.Message)
	default:
		return nil
	}
}

// IsUnauthorized reports whether err is an API 401.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.HTTPStatus == http.StatusUnauthorized
}

// NetworkError is a request that never produced an HTTP response, including
// timeouts. It is retryable and never implies an authorization failure.
type NetworkError struct {
	Method  string
	Path    string
	Timeout bool
	Err     error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("execute request %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Retryable is always true; it exists so callers can test for the
// capability without importing this package.
func (e *NetworkError) Retryable() bool { return true }

// errorBody covers both error envelopes the API emits: FastAPI's
// {"detail": ...} and the structured {"code": ..., "message": ...}.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Code    json.RawMessage `json:"code"`
	Message string          `json:"message"`
}

type validationIssue struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

func newAPIError(status int, requestID string, body []byte) *APIError {
	e := &APIError{HTTPStatus: status, RequestID: requestID}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		e.Code = rawScalar(parsed.Code)
		e.Message = parsed.Message
		if e.Message == "" {
			e.Message = detailMessage(parsed.Detail)
		}
	}
	if e.Message == "" {
		e.Message = strings.TrimSpace(string(body))
	}
	return e
}

// detailMessage flattens FastAPI's detail, which is either a string or a
// list of validation issues.
func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var issues []validationIssue
	if err := json.Unmarshal(raw, &issues); err == nil {
		parts := make([]string, 0, len(issues))
		for _, is := range issues {
			if field := lastLoc(is.Loc); field != "" {
				parts = append(parts, field+": "+is.Msg)
				continue
			}
			parts = append(parts, is.Msg)
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

func lastLoc(loc []any) string {
	if len(loc) == 0 {
		return ""
	}
	switch v := loc[len(loc)-1].(type) {
	case string:
		return v
	case float64:
		return strconv.Itoa(int(v))
	default:
		return ""
	}
}

func rawScalar(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
