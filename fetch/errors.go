package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Error kinds reported by Kind.
const (
	KindTimeout     = "timeout"
	KindConnection  = "connection"
	KindForbidden   = "forbidden"
	KindNotFound    = "not_found"
	KindRateLimited = "rate_limited"
	KindStatus      = "status"
	KindCanceled    = "canceled"
	KindOther       = "other"
	KindUnknown     = "unknown"
)

// ErrTimeout indicates a timeout while fetching a page.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrForbidden indicates a forbidden response (HTTP 403).
type ErrForbidden struct {
	Err error
}

func (e ErrForbidden) Error() string {
	return fmt.Errorf("forbidden: %w", e.Err).Error()
}

func (e ErrForbidden) Unwrap() error {
	return e.Err
}

// ErrNotFound indicates a missing resource (HTTP 404).
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string {
	return fmt.Errorf("not_found: %w", e.Err).Error()
}

func (e ErrNotFound) Unwrap() error {
	return e.Err
}

// ErrRateLimited indicates the target rate-limited the request.
type ErrRateLimited struct {
	Err error
}

func (e ErrRateLimited) Error() string {
	return fmt.Errorf("rate_limited: %w", e.Err).Error()
}

func (e ErrRateLimited) Unwrap() error {
	return e.Err
}

// ErrStatus is any other non-2xx response.
type ErrStatus struct {
	Code int
}

func (e ErrStatus) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

// Kind labels a fetch error for ledgers and metrics.
func Kind(err error) string {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return KindTimeout
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return KindConnection
	}
	var forbidden ErrForbidden
	if errors.As(err, &forbidden) {
		return KindForbidden
	}
	var notFound ErrNotFound
	if errors.As(err, &notFound) {
		return KindNotFound
	}
	var rateLimited ErrRateLimited
	if errors.As(err, &rateLimited) {
		return KindRateLimited
	}
	var status ErrStatus
	if errors.As(err, &status) {
		return KindStatus
	}
	return KindOther
}

// Retryable reports whether another attempt at the same URL may succeed.
func Retryable(err error) bool {
	switch Kind(err) {
	case KindTimeout, KindConnection, KindRateLimited:
		return true
	default:
		return false
	}
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrConnection{Err: err}
	}

	if statusCode >= http.StatusBadRequest {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch statusCode {
		case http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case http.StatusNotFound, http.StatusGone:
			return ErrNotFound{Err: wrapped}
		case http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		default:
			return ErrStatus{Code: statusCode}
		}
	}

	if err == nil {
		return nil
	}
	return err
}
