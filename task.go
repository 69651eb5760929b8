package greenhub

import (
	"time"

	"github.com/google/uuid"
)

// resumeMsg is what the Hub delivers into a parked task: either a resume
// value (args) or a resume-by-raising error, never both.
type resumeMsg struct {
	args []interface{}
	err  error
}

// Task is a suspendable unit of user code scheduled by a Hub. It carries no
// call stack of its own beyond the goroutine it runs on; identity is the
// *Task pointer (spec §3's "identity-comparable" requirement).
//
// A Task is created by Hub.Spawn (or Hub.Go) and is only ever resumed, one resume at a
// time, by the Hub that owns it — see parkAndWait and Hub.runTask for the
// handoff protocol this relies on.
type Task struct {
	ID uuid.UUID

	hub    *Hub
	parent *Hub

	resumeCh    chan resumeMsg
	controlBack chan struct{}
}

func newTask(h *Hub) *Task {
	return &Task{
		ID:          uuid.New(),
		hub:         h,
		resumeCh:    make(chan resumeMsg),
		controlBack: make(chan struct{}),
	}
}

// setParentOnce mirrors greennet hub.py:schedule's
// "task.parent = self.greenlet, except ValueError: pass" — the first Hub
// to schedule a task owns it; later attempts from a different Hub are
// silently ignored (spec §4.1).
func (t *Task) setParentOnce(h *Hub) {
	if t.parent == nil {
		t.parent = h
	}
}

// parkAndWait hands control back to whichever goroutine is waiting on this
// task (the Hub's loop, inside runTask) and blocks until the Hub resumes
// it. Every suspension point in this package funnels through here.
func (t *Task) parkAndWait() ([]interface{}, error) {
	t.controlBack <- struct{}{}
	msg := <-t.resumeCh
	return msg.args, msg.err
}

// Switch enqueues t at the tail of its Hub's run queue with no resume
// value, then yields — a plain cooperative yield (spec §4.1).
func (t *Task) Switch() {
	t.hub.Schedule(t, nil)
	_, _ = t.parkAndWait()
}

// Sleep suspends t until d has elapsed, then resumes it normally.
func (t *Task) Sleep(d time.Duration) error {
	return t.hub.Sleep(t, d)
}

// Poll suspends t until fd becomes ready in the requested interest, or
// timeout (if timeout >= 0) elapses first, in which case it returns
// ErrTimeout. Use NoDeadline for timeout to wait indefinitely.
func (t *Task) Poll(fd FdSource, read, write, exc bool, timeout time.Duration) error {
	return t.hub.Poll(t, fd, read, write, exc, timeout)
}
