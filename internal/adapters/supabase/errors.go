package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"unicode/utf8"

	apperrors "github.com/greenhands/greenhands-shell/internal/errors"
	jmespath "github.com/jmespath-community/go-jmespath"
)

// messageExpr picks the human-readable message out of the error shapes returned by
// GoTrue ({error, error_description} or {msg}) and PostgREST ({message, details, hint}).
const messageExpr = "error_description || msg || message || error"

// errorMessage extracts a message from an error body, falling back to the raw text.
func errorMessage(body []byte) string {
	var doc any
	if err := json.Unmarshal(body, &doc); err == nil {
		if v, err := jmespath.Search(messageExpr, doc); err == nil {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return truncate(strings.TrimSpace(string(body)), maxErrorText)
}

const maxErrorText = 200

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// statusError maps a non-2xx response onto an AppError.
func statusError(path string, status int, body []byte) error {
	msg := errorMessage(body)
	if msg == "" {
		msg = http.StatusText(status)
	}
	cause := fmt.Errorf("%s: http %d", path, status)

	switch {
	case status == http.StatusBadRequest && strings.HasPrefix(path, "/auth/"):
		// GoTrue answers 400 for invalid grants.
		return apperrors.Wrap(cause, apperrors.ErrCodeUnauthorized, msg)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return apperrors.Wrap(cause, apperrors.ErrCodeUnauthorized, msg)
	case status == http.StatusNotFound:
		return apperrors.Wrap(cause, apperrors.ErrCodeNotFound, msg)
	case status == http.StatusConflict:
		return apperrors.Wrap(cause, apperrors.ErrCodeConflict, msg)
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return apperrors.Wrap(cause, apperrors.ErrCodeValidation, msg)
	default:
		return apperrors.Wrap(cause, apperrors.ErrCodeUnavailable, msg)
	}
}

// transportError maps a failed round trip onto an AppError.
func transportError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return apperrors.Wrap(err, apperrors.ErrCodeCanceled, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(err, apperrors.ErrCodeTimeout, "backend did not answer in time")
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.Wrap(err, apperrors.ErrCodeTimeout, "backend did not answer in time")
	}
	return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "backend unreachable")
}
