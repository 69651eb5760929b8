// Package greenhub is a cooperative, single-threaded task scheduler with an
// integrated I/O readiness reactor, a monotonic timer service, and a
// suspend-aware queue.
//
// A Hub combines three structures: a FIFO run queue of ready tasks, a
// min-heap of pending deadlines, and a table of file descriptors a task is
// waiting to become readable or writable. Tasks are ordinary goroutines
// parked on a channel; calling Hub.Poll, Hub.Sleep, or a Queue operation
// blocks the calling goroutine until the Hub resumes it, exactly as a
// blocking call would, while the Hub itself continues running other tasks
// in between. At most one task's code ever executes at a time.
//
// greenhub intentionally stops at the Hub and the Queue. Socket convenience
// wrappers (accept, recv, send, sendall) and TLS handshake helpers are
// collaborators that consume Hub.Poll; they are not part of this package.
package greenhub
