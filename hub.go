package greenhub

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// NoDeadline is passed as a timeout to mean "wait indefinitely" — the
// caller's deadline parameter is absent, in spec terms.
const NoDeadline time.Duration = -1

// FdSource is anything Poll can extract an integer descriptor from —
// spec §4.1's "extracts an integer fd (from .fileno() if present)".
type FdSource interface {
	Fd() int
}

// RawFd lets a caller pass a bare descriptor to Poll without wrapping it in
// a richer type.
type RawFd int

func (r RawFd) Fd() int { return int(r) }

// Hub is the event loop: it owns the run queue, the timer heap, and the
// readiness table, and is the only thing allowed to mutate them (spec §5).
// A Hub must not be used from more than one goroutine at a time except via
// Trigger, which is built for exactly that.
type Hub struct {
	runQueue  runQueue
	timerHeap timerHeap
	readiness *readinessTable

	seq   uint64
	clock func() time.Time

	cfg        Config
	logger     zerolog.Logger
	metrics    *hubMetrics
	eintrCount uint64
}

// NewHub constructs a Hub with configuration loaded from the environment
// (and an optional ./greenhub.toml), and a private metrics registry.
func NewHub() *Hub {
	return NewHubWithConfig(LoadConfig(), nil)
}

// NewHubWithConfig constructs a Hub with an explicit Config and an explicit
// prometheus.Registerer. Pass a nil registerer to get a private registry
// (see DESIGN.md on why the default registry isn't used).
func NewHubWithConfig(cfg Config, reg prometheus.Registerer) *Hub {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	h := &Hub{
		readiness: newReadinessTable(),
		clock:     time.Now,
		cfg:       cfg,
		logger:    Logger.With().Str("component", "hub").Str("probe_backend", probeBackendName).Logger().Level(parseLevel(cfg.LogLevel)),
		metrics:   newHubMetrics(reg),
	}
	h.logger.Debug().Msg("hub constructed")
	return h
}

func (h *Hub) now() time.Time { return h.clock() }

func (h *Hub) newWait(t *Task, kind waitKind) *waitRecord {
	h.seq++
	return &waitRecord{task: t, kind: kind, seq: h.seq, heapIndex: -1}
}

// Spawn creates a new Task bound to h and starts its backing goroutine, but
// does not schedule it — mirroring greennet's greenlet(fn), which only runs
// on its first switch(). The task sits parked until something resumes it:
// Schedule, CallLater, or a Wait wakeup routed through Switch/Sleep/Poll
// called some other way. Use this instead of Go when a task's first run
// must be triggered by a specific later event (e.g. a CallLater deadline)
// rather than happening unconditionally on the next drain.
func (h *Hub) Spawn(fn func(t *Task) error) *Task {
	t := newTask(h)
	go func() {
		<-t.resumeCh
		if err := fn(t); err != nil {
			h.logger.Debug().Str("task_id", t.ID.String()).Err(err).Msg("task finished with error")
		}
		t.controlBack <- struct{}{}
	}()
	return t
}

// Go spawns fn as a new Task and schedules it to run on the next drain of
// the run queue. It returns immediately; fn does not begin executing until
// the Hub's loop reaches it.
func (h *Hub) Go(fn func(t *Task) error) *Task {
	t := h.Spawn(fn)
	h.Schedule(t, nil)
	return t
}

// Schedule enqueues task on the run queue with args to be delivered on its
// next resume (spec §4.1). It is a no-op on the parent link if task already
// has a different parent.
func (h *Hub) Schedule(t *Task, args []interface{}) {
	h.schedule(t, args, nil)
}

func (h *Hub) scheduleError(t *Task, err error) {
	h.schedule(t, nil, err)
}

func (h *Hub) schedule(t *Task, args []interface{}, err error) {
	t.setParentOnce(h)
	h.runQueue.push(runItem{task: t, args: args, err: err})
	h.metrics.tasksScheduled.Inc()
}

// runTask hands control to task and blocks until it yields back — either by
// suspending again at a parkAndWait call, or by finishing. This is the only
// place the Hub resumes a task, and it is always a strict one-at-a-time
// handoff (spec §4.4).
func (h *Hub) runTask(t *Task, msg resumeMsg) {
	t.resumeCh <- msg
	<-t.controlBack
}

// Sleep suspends t until d has elapsed, then resumes it with no error.
func (h *Hub) Sleep(t *Task, d time.Duration) error {
	w := h.newWait(t, waitSleep)
	w.hasDeadline = true
	w.deadline = h.now().Add(d)
	h.timerHeap.push(w)
	_, err := t.parkAndWait()
	return err
}

// CallLater registers a Sleep wait for task with deadline now+d and
// captured args. The caller is not suspended (spec §4.1).
//
// task must be parked when the deadline fires — either because it has
// already suspended at some Wait point, or because it was created with
// Spawn and this CallLater is its first resume. A task created with Go (or
// otherwise already running to completion before the deadline) has no
// parked goroutine left to deliver the resume to; pass a Spawn-ed task
// here when the deadline itself should be what starts it.
func (h *Hub) CallLater(t *Task, d time.Duration, args []interface{}) {
	w := h.newWait(t, waitSleep)
	w.hasDeadline = true
	w.deadline = h.now().Add(d)
	w.args = args
	h.timerHeap.push(w)
}

// Poll suspends t until fd becomes ready for at least one of the requested
// interests, or timeout elapses first (timeout < 0 means wait
// indefinitely — use NoDeadline). At least one of read, write, exc must be
// true.
func (h *Hub) Poll(t *Task, fd FdSource, read, write, exc bool, timeout time.Duration) error {
	return h.poll(t, fd.Fd(), read, write, exc, timeout)
}

func (h *Hub) poll(t *Task, fd int, read, write, exc bool, timeout time.Duration) error {
	if !read && !write && !exc {
		return errNoInterestBits
	}
	w := h.newWait(t, waitFD)
	w.fd = fd
	if read {
		w.mask |= Read
	}
	if write {
		w.mask |= Write
	}
	if exc {
		w.mask |= Exc
	}
	if timeout >= 0 {
		w.hasDeadline = true
		w.deadline = h.now().Add(timeout)
		h.timerHeap.push(w)
	}
	h.readiness.add(w)
	_, err := t.parkAndWait()
	return err
}

// Run transfers control into the loop and returns when the loop terminates:
// when the run queue, readiness table, and timer heap are all empty (spec
// §4.1's termination condition). A fatal, non-EINTR error from the
// readiness probe aborts the loop and is returned to the caller rather than
// the process (spec §7: fatal I/O errors are "surfaced to the caller
// unchanged").
func (h *Hub) Run() error {
	for !(h.readiness.empty() && h.runQueue.empty() && h.timerHeap.Len() == 0) {
		h.drainRunQueue()
		h.sampleDepthMetrics()

		switch {
		case !h.readiness.empty():
			if err := h.probeLoop(); err != nil {
				return err
			}
		case h.timerHeap.Len() > 0:
			if timeout, ok := h.handleExpiredTimeouts(); ok {
				time.Sleep(timeout)
			}
		}
	}
	h.logger.Debug().Msg("hub loop terminated: run queue, readiness table, and timer heap all empty")
	return nil
}

// drainRunQueue runs every task currently on the run queue, including ones
// piggybacked onto it by tasks running during this same drain — spec §4.1's
// "while run queue nonempty", which is the fairness guarantee that lets a
// cooperative Schedule from inside a resumed task run within the same
// drain (spec §5). See DESIGN.md for why this differs from the original
// source's length-snapshotted loop.
func (h *Hub) drainRunQueue() {
	for {
		item, ok := h.runQueue.popFront()
		if !ok {
			return
		}
		h.runTask(item.task, resumeMsg{args: item.args, err: item.err})
	}
}

// probeLoop handles the readiness branch of the loop algorithm: fire any
// already-expired timeouts, probe for readiness bounded by the next
// deadline, retry transparently on signal interruption, then schedule every
// waiter whose interest matches what became ready.
func (h *Hub) probeLoop() error {
	for {
		timeout, hasDeadline := h.handleExpiredTimeouts()
		if h.readiness.empty() {
			// Every pending fd-wait just timed out; there is nothing left to
			// probe, and an empty probe with no deadline would never return.
			return nil
		}
		ready, err := h.probe(timeout, hasDeadline)
		if err == errProbeInterrupted {
			h.eintrCount++
			h.metrics.probeEINTR.Inc()
			if h.cfg.ProbeEINTRLogEvery > 0 && h.eintrCount%uint64(h.cfg.ProbeEINTRLogEvery) == 1 {
				h.logger.Debug().Uint64("count", h.eintrCount).Msg("readiness probe interrupted by signal, retrying")
			}
			continue
		}
		if err != nil {
			// Not EINTR: spec §7 says the Hub's loop catches only EINTR.
			// Every other probe error is fatal and returned to Run's
			// caller unchanged, rather than aborting the process.
			return wrapFatal("readiness probe", err)
		}
		for _, w := range ready {
			h.readiness.remove(w)
			if w.hasDeadline {
				h.timerHeap.remove(w)
			}
			h.schedule(w.task, nil, nil)
		}
		return nil
	}
}

// handleExpiredTimeouts pops every heap entry whose deadline has arrived,
// removes its sibling registration, and schedules its resumption. It
// returns the time remaining until the next deadline and whether one
// exists (spec §4.1).
func (h *Hub) handleExpiredTimeouts() (time.Duration, bool) {
	for h.timerHeap.Len() > 0 {
		w := h.timerHeap.peek()
		remaining := w.deadline.Sub(h.now())
		if remaining > 0 {
			return remaining, true
		}
		h.timerHeap.popMin()
		h.fireTimeout(w)
	}
	return 0, false
}

func (h *Hub) fireTimeout(w *waitRecord) {
	switch w.kind {
	case waitFD:
		h.readiness.remove(w)
		h.scheduleError(w.task, ErrTimeout)
	case waitSleep:
		h.schedule(w.task, w.args, nil)
	case waitPopSide, waitAppendSide, waitWaitUntilEmpty:
		w.queue.removeWait(w)
		h.scheduleError(w.task, ErrTimeout)
	}
	h.metrics.timeoutsFired.Inc()
}

func (h *Hub) sampleDepthMetrics() {
	h.metrics.runQueueDepth.Set(float64(h.runQueue.len()))
	h.metrics.timerHeapDepth.Set(float64(h.timerHeap.Len()))
	h.metrics.readinessDepth.Set(float64(h.readiness.len()))
}
