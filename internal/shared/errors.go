package shared

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrRateLimited        = fmt.Errorf("rate limited")
	ErrTransient          = fmt.Errorf("transient provider error")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrBatchTooLarge      = fmt.Errorf("batch exceeds maximum size")
	ErrAddFailed          = fmt.Errorf("failed to add tracks")

	// State errors
	ErrStateCorruption = fmt.Errorf("migration state is corrupt")
	ErrStateWrite      = fmt.Errorf("failed to write migration state")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// IsFatal reports whether err must abort a whole migration run.
//
// Authentication failures, an unavailable catalog, unreadable or unwritable state and cancellation are fatal.
// Everything else is absorbed at the track, batch or playlist level.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrAuthFailed) ||
		errors.Is(err, ErrNotAuthenticated) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrStateCorruption) ||
		errors.Is(err, ErrStateWrite) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// IsRetryable reports whether an operation that failed with err may be attempted again.
//
// Auth errors are never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAuthFailed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransient) || errors.Is(err, ErrServiceUnavailable) {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EPIPE) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"connection reset", "broken pipe", "timeout", "temporarily unavailable"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}

// ClassifyStatus maps an HTTP status code from a provider onto the error taxonomy.
//
// Returns nil for 2xx codes.
func ClassifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == 401 || code == 403:
		return ErrAuthFailed
	case code == 404:
		return ErrPlaylistNotFound
	case code == 429:
		return ErrRateLimited
	case code == 503:
		return ErrServiceUnavailable
	case code >= 500:
		return ErrTransient
	default:
		return ErrAPIRequest
	}
}

// ClassifyTransport maps a failed HTTP round trip onto the error taxonomy.
//
// A refused connection or a failed dial means nothing is listening and yields [ErrServiceUnavailable].
// Resets, EOFs and timeouts on an established connection yield [ErrTransient].
func ClassifyTransport(err error) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ErrServiceUnavailable
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return ErrServiceUnavailable
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrServiceUnavailable
	}

	return ErrTransient
}
