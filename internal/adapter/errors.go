package adapter

import "errors"

var (
	// ErrUnauthorized indicates a missing, expired, or rejected token.
	ErrUnauthorized = errors.New("client unauthorized")
	// ErrRevisionMismatch indicates the remote copy moved past the
	// expected revision. Not a failure: the caller routes it to the
	// conflict resolver.
	ErrRevisionMismatch = errors.New("revision mismatch")
	// ErrNotFound indicates the requested vault or file is absent remotely.
	ErrNotFound = errors.New("remote object not found")
	// ErrNetwork wraps transport-level failures (timeout, refused, DNS).
	// These are retryable; the sync worker requeues with backoff.
	ErrNetwork = errors.New("network error")
	// ErrBadRequest indicates the backend rejected the request shape.
	ErrBadRequest = errors.New("bad request")
	// ErrRemoteInternal indicates a 5xx from the backend; treated as
	// retryable alongside ErrNetwork.
	ErrRemoteInternal = errors.New("remote internal error")
)

// IsRetryable reports whether err is transient and the operation should be
// requeued with backoff rather than surfaced.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrRemoteInternal)
}
