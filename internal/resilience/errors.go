// Package resilience classifies collaborator faults and retries the
// transient ones. The contact store is the only external collaborator, so
// the taxonomy is small: permission revocation and a missing provider are
// permanent and never retried; I/O hiccups are transient.
package resilience

import (
	"errors"
	"io/fs"
	"net"
	"strings"
	"syscall"
)

// PermanentKind names the non-retryable fault categories.
type PermanentKind string

const (
	// KindPermissionDenied means access to the contact store was revoked
	// (e.g. mid-read). Never retried.
	KindPermissionDenied PermanentKind = "permission_denied"

	// KindProviderUnavailable means the store backend is gone entirely.
	KindProviderUnavailable PermanentKind = "provider_unavailable"
)

// PermanentError wraps a fault that will not succeed on retry.
type PermanentError struct {
	Kind PermanentKind
	Err  error
}

func (e *PermanentError) Error() string {
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// NewPermissionDenied marks err as a permanent permission fault.
func NewPermissionDenied(err error) *PermanentError {
	return &PermanentError{Kind: KindPermissionDenied, Err: err}
}

// NewProviderUnavailable marks err as a permanent availability fault.
func NewProviderUnavailable(err error) *PermanentError {
	return &PermanentError{Kind: KindProviderUnavailable, Err: err}
}

// IsPermissionDenied reports whether the chain contains a permission fault,
// explicit or from the OS.
func IsPermissionDenied(err error) bool {
	var pe *PermanentError
	if errors.As(err, &pe) && pe.Kind == KindPermissionDenied {
		return true
	}
	return errors.Is(err, fs.ErrPermission) || errors.Is(err, syscall.EACCES)
}

// IsPermanent reports whether err should terminate the operation without
// retry.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe) || IsPermissionDenied(err)
}

// TransientError wraps an error that is safe to retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient.
func NewTransientError(err error) *TransientError {
	return &TransientError{Err: err}
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError, or matches common transient store fault patterns
// (lock contention, timeouts, dropped connections).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if IsPermanent(err) {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	// String heuristics for wrapped driver errors.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"database is locked",
		"database table is locked",
		"sqlite_busy",
		"connection reset by peer",
		"broken pipe",
		"i/o timeout",
		"conn busy",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}
