package push

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// SinkError classifies push delivery failures as transient/permanent.
// Classification only feeds failure metrics and the decision to drop a
// dead subscription; no retry is attempted.
type SinkError struct {
	StatusCode int
	Message    string
	Transient  bool
	Gone       bool
	Cause      error
}

func (e *SinkError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, "push sink error")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *SinkError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsTransient reports whether a delivery failure was momentary.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var sinkErr *SinkError
	if errors.As(err, &sinkErr) {
		return sinkErr.Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

// IsSubscriptionGone reports whether the push service rejected the
// subscription as expired or unsubscribed.
func IsSubscriptionGone(err error) bool {
	var sinkErr *SinkError
	return errors.As(err, &sinkErr) && sinkErr.Gone
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}
