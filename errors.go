package greenhub

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// ErrTimeout is raised into a parked task when its deadline elapses before
// the condition it was waiting on (fd readiness, a sleep, a queue pop or
// append) is satisfied.
var ErrTimeout = errors.New("greenhub: deadline exceeded before condition was met")

// ErrConnectionLost signals that a peer closed before a requested shape
// (byte count or delimiter) was received. greenhub itself never raises this
// error — it is reserved for collaborators layered on top of Hub.Poll (byte
// and delimiter readers) and is declared here so those collaborators share
// one sentinel.
//
// A socket-wrapper collaborator built on Hub.Poll that wants the same
// connect-in-progress handling greennet's __init__.py:connect() performs
// should: attempt the syscall connect, treat EINPROGRESS (or, on Windows,
// EWOULDBLOCK) as "not yet connected", call Hub.Poll for write-readiness
// (plus exc on Windows, to detect a failed connect), then inspect
// SO_ERROR and surface it as a socket error if nonzero. That sequence is
// intentionally not implemented in this package (out of scope, see
// SPEC_FULL.md §1) — it is recorded here only so the next layer up has an
// unambiguous reference.
var ErrConnectionLost = errors.New("greenhub: peer closed before requested shape was satisfied")

// errProbeInterrupted is the sentinel the readiness probe backend returns
// for a signal interruption. The Hub loop recovers from it locally and
// retries with a refreshed timeout; it never escapes the loop.
var errProbeInterrupted = errors.New("greenhub: readiness probe interrupted by signal")

// errNoInterestBits is returned by Poll when none of read, write, exc is
// requested — see DESIGN.md's Open Question decision.
var errNoInterestBits = errors.New("greenhub: poll requires at least one of read, write, exc")

// wrapFatal attaches a stack trace and an operation label to any error
// that is not one of the sentinels above before it crosses back out to a
// caller, matching spec §7's "Fatal I/O" category.
func wrapFatal(op string, err error) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrapf(err, "greenhub: %s", op)
}
