package mdns

import "errors"

// Sentinel errors returned by the engine's public operations. Callers
// should compare with errors.Is rather than equality, since internal
// helpers wrap these with additional context.
var (
	// ErrInvalidArgument is returned for an empty name, a zero port, or
	// another argument that fails validation before any state changes.
	ErrInvalidArgument = errors.New("mdns: invalid argument")

	// ErrOutOfMemory is returned by AddService when all fixed service
	// slots are already occupied.
	ErrOutOfMemory = errors.New("mdns: buffer exhausted")

	// ErrSocketError wraps a failure from the Transport.
	ErrSocketError = errors.New("mdns: transport error")

	// ErrAlreadyProcessingQuery is returned by resolve/discover calls
	// that would otherwise clobber an in-flight request the caller
	// didn't explicitly cancel.
	ErrAlreadyProcessingQuery = errors.New("mdns: a query of this kind is already outstanding")

	// ErrNotFound is returned by RemoveService when no slot matches.
	ErrNotFound = errors.New("mdns: no matching record")

	// ErrServerError indicates an invariant violation in the engine
	// itself (a full table reached from a path that is supposed to be
	// guarded against it, and the like).
	ErrServerError = errors.New("mdns: internal error")

	// ErrTryLater is returned internally by drainOneInbound when no
	// datagram was waiting; Run treats it as a normal, quiet outcome.
	ErrTryLater = errors.New("mdns: no datagram available")

	// ErrNothingToDo marks an operation that validly performed no work
	// (e.g. RemoveAllServices on an empty table).
	ErrNothingToDo = errors.New("mdns: nothing to do")
)
