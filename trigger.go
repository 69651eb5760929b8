//go:build linux || darwin || netbsd || freebsd || openbsd || dragonfly

package greenhub

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Trigger is a process-internal wakeup object: a one-way pipe whose read
// end (the "gun") a Hub can Poll on, and whose write end (the "trigger")
// any other goroutine or OS thread can write to in order to force that Poll
// to return. It is the only legal cross-thread touch of a Hub (spec §5).
type Trigger struct {
	hub *Hub

	mu        sync.Mutex
	closed    bool
	gunFd     int
	triggerFd int
}

// NewTrigger creates a Trigger bound to hub. The pipe is opened
// non-blocking on both ends, matching greennet trigger.py's os.pipe() plus
// this package's unix.Poll-based readiness backend.
func NewTrigger(h *Hub) (*Trigger, error) {
	fds, err := unix.Pipe2(unix.O_NONBLOCK)
	if err != nil {
		return nil, wrapFatal("trigger: open pipe", err)
	}
	return &Trigger{hub: h, gunFd: fds[0], triggerFd: fds[1]}, nil
}

// Wait suspends t until Pull has been called at least once (or timeout
// elapses first, raising ErrTimeout), then discards the one byte Pull
// wrote.
func (tr *Trigger) Wait(t *Task, timeout time.Duration) error {
	tr.mu.Lock()
	closed := tr.closed
	gunFd := tr.gunFd
	tr.mu.Unlock()
	if closed {
		return unix.EBADF
	}

	if err := tr.hub.poll(t, gunFd, true, false, false, timeout); err != nil {
		return err
	}

	var buf [1]byte
	for {
		_, err := unix.Read(gunFd, buf[:])
		if err == unix.EINTR {
			continue
		}
		if err != nil && err != unix.EAGAIN {
			return wrapFatal("trigger: drain gun fd", err)
		}
		return nil
	}
}

// Pull is safe to call from any goroutine or OS thread, including one not
// running a Hub at all. It writes one byte to the trigger end, retrying on
// signal interruption and returning quietly if the pipe is currently full —
// any byte already pending will still wake the Hub's probe, so a full pipe
// means a wakeup is already in flight (spec §4.3, "coalesce wakeups").
func (tr *Trigger) Pull() error {
	tr.mu.Lock()
	closed := tr.closed
	triggerFd := tr.triggerFd
	tr.mu.Unlock()
	if closed {
		return unix.EBADF
	}

	for {
		_, err := unix.Write(triggerFd, pullByte[:])
		if err == nil {
			return nil
		}
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN {
			return nil
		}
		return wrapFatal("trigger: write", err)
	}
}

var pullByte = [1]byte{'x'}

// Close marks the Trigger closed and releases both descriptors exactly
// once. Subsequent Wait/Pull calls return EBADF.
func (tr *Trigger) Close() error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.closed {
		return nil
	}
	tr.closed = true
	err1 := unix.Close(tr.gunFd)
	err2 := unix.Close(tr.triggerFd)
	if err1 != nil {
		return wrapFatal("trigger: close gun fd", err1)
	}
	if err2 != nil {
		return wrapFatal("trigger: close trigger fd", err2)
	}
	return nil
}
