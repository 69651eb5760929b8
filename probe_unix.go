//go:build linux || darwin || netbsd || freebsd || openbsd || dragonfly

package greenhub

import (
	"time"

	"golang.org/x/sys/unix"
)

// probeBackendName is surfaced in Config.ProbeBackend and hub construction
// logs, for operators who want to confirm which readiness backend they got.
const probeBackendName = "unix.Poll"

// probe blocks up to timeout (if hasDeadline) waiting for any fd registered
// in h.readiness to become ready in its requested interest, and returns the
// matching wait records. unix.Poll is used instead of splitting epoll
// (Linux) from kqueue (BSD/Darwin) because it already works, identically,
// on every OS in this build tag — see DESIGN.md.
func (h *Hub) probe(timeout time.Duration, hasDeadline bool) ([]*waitRecord, error) {
	fds := make([]unix.PollFd, 0, len(h.readiness.waiters))
	order := make([]int, 0, len(h.readiness.waiters))
	for fd, list := range h.readiness.waiters {
		var events int16
		for _, w := range list {
			if w.mask&Read != 0 {
				events |= unix.POLLIN
			}
			if w.mask&Write != 0 {
				events |= unix.POLLOUT
			}
			if w.mask&Exc != 0 {
				events |= unix.POLLPRI
			}
		}
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: events})
		order = append(order, fd)
	}

	ms := -1
	if hasDeadline {
		ms = int(timeout / time.Millisecond)
		if ms < 0 {
			ms = 0
		}
	}

	n, err := unix.Poll(fds, ms)
	if err != nil {
		if err == unix.EINTR {
			return nil, errProbeInterrupted
		}
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	var ready []*waitRecord
	for i, pfd := range fds {
		if pfd.Revents == 0 {
			continue
		}
		var mask fdMask
		if pfd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			mask |= Read
		}
		if pfd.Revents&(unix.POLLOUT|unix.POLLERR) != 0 {
			mask |= Write
		}
		if pfd.Revents&unix.POLLPRI != 0 {
			mask |= Exc
		}
		for _, w := range h.readiness.waiters[order[i]] {
			if w.mask&mask != 0 {
				ready = append(ready, w)
			}
		}
	}
	return ready, nil
}
