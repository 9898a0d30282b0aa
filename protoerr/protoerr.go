// Package protoerr defines the error taxonomy shared by the field kernel,
// the share store and the protocol engines.
//
// Every operation that can fail returns one of the sentinel errors below,
// wrapped with fmt.Errorf("%w: ...") to attach context. Callers at the
// transport boundary use errors.Is to recover the kind and map it to a
// status code.
package protoerr

import "errors"

var (
	// ErrBadState means the operation is not valid for the node's current
	// round state (e.g. Round R requested before Round Q completed).
	ErrBadState = errors.New("bad state")

	// ErrNotInitialized means a required field has not been set yet.
	ErrNotInitialized = errors.New("not initialized")

	// ErrAlreadyInitialized means a field that may be set exactly once has
	// already been set.
	ErrAlreadyInitialized = errors.New("already initialized")

	// ErrBadRequest covers malformed input, an invalid sender id, a
	// duplicate sender slot, or an invalid share name.
	ErrBadRequest = errors.New("bad request")

	// ErrAlreadySet means a per-sender slot (shared_q, shared_r, shared_u)
	// already holds a value and cannot be overwritten.
	ErrAlreadySet = errors.New("already set")

	// ErrUnauthorized means the peer trust gate rejected the caller, or the
	// caller's privileges are insufficient for an admin-only operation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotInvertible means mod_inv found gcd(b, p) != 1.
	ErrNotInvertible = errors.New("not invertible")

	// ErrSingular means mat_inv_mod found no non-zero pivot in some column.
	ErrSingular = errors.New("singular matrix")

	// ErrPeerFailure means a required peer did not return a usable
	// response within its deadline.
	ErrPeerFailure = errors.New("peer failure")

	// ErrInternal means an invariant was violated.
	ErrInternal = errors.New("internal error")

	// ErrBadRange means secure_randint was asked for an empty range.
	ErrBadRange = errors.New("bad range")
)
