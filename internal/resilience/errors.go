package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
)

// ErrorKind is the classification of a failure used by the orchestrator
// and recorded in the workflow error history.
type ErrorKind string

// Error kinds.
const (
	KindValidation  ErrorKind = "validation"
	KindTransient   ErrorKind = "transient"
	KindFatal       ErrorKind = "fatal"
	KindConsistency ErrorKind = "consistency"
	KindDuplicate   ErrorKind = "duplicate"
	KindCancelled   ErrorKind = "cancelled"
)

// ErrDuplicateTicket signals that a ticket already exists for a complaint.
// It is recovered locally by reusing the existing ticket.
var ErrDuplicateTicket = eris.New("ticket already exists for complaint")

// ValidationError reports a malformed input record. It is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// TransientError wraps an error that is safe to retry (e.g., 429, 5xx, network timeout).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// FatalError wraps a provider failure that must not be retried, such as an
// authorization failure or a response that cannot be corrected.
type FatalError struct {
	Err    error
	Reason string
}

func (e *FatalError) Error() string {
	if e.Reason == "" {
		return e.Err.Error()
	}
	return e.Reason + ": " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// NewFatalError wraps err as fatal.
func NewFatalError(err error, reason string) *FatalError {
	return &FatalError{Err: err, Reason: reason}
}

// ConsistencyError reports an analysis that failed a QA check.
type ConsistencyError struct {
	Check  string
	Detail string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency: %s: %s", e.Check, e.Detail)
}

// Classify maps err onto the failure taxonomy. Unknown errors are fatal so
// they are never retried blindly.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var (
		ve *ValidationError
		ce *ConsistencyError
		fe *FatalError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &ce):
		return KindConsistency
	case errors.Is(err, ErrDuplicateTicket):
		return KindDuplicate
	case errors.As(err, &fe):
		return KindFatal
	case IsTransient(err):
		return KindTransient
	}
	return KindFatal
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError, or if it matches common transient error patterns (network
// timeouts, connection resets, DNS failures, lock contention). A FatalError
// anywhere in the chain wins over every transient signal.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var fe *FatalError
	if errors.As(err, &fe) {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	// Per-attempt deadlines and open breakers clear up on their own.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrCircuitOpen) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
		"database is locked",
		"too many connections",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}

// FromHTTPStatus classifies a failed provider response by status code.
// Transient codes become TransientError; everything else is fatal.
func FromHTTPStatus(err error, statusCode int) error {
	if IsTransientHTTPStatus(statusCode) {
		return NewTransientError(err, statusCode)
	}
	reason := "provider rejected request"
	if statusCode == 401 || statusCode == 403 {
		reason = "provider authorization failed"
	}
	return NewFatalError(err, reason)
}
