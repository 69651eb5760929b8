package greenhub

import "time"

// deque is a small ring-buffer double-ended queue, generic over item type.
// The teacher itself already reaches for a generic helper
// (dereferenceSliceElem[T any] in watcher.go), so Queue follows that
// precedent rather than falling back to interface{}.
type deque[T any] struct {
	buf  []T
	head int
	size int
}

func newDeque[T any]() *deque[T] {
	return &deque[T]{buf: make([]T, 8)}
}

func (d *deque[T]) Len() int { return d.size }

func (d *deque[T]) grow() {
	next := make([]T, len(d.buf)*2)
	for i := 0; i < d.size; i++ {
		next[i] = d.buf[(d.head+i)%len(d.buf)]
	}
	d.buf = next
	d.head = 0
}

func (d *deque[T]) PushBack(v T) {
	if d.size == len(d.buf) {
		d.grow()
	}
	d.buf[(d.head+d.size)%len(d.buf)] = v
	d.size++
}

func (d *deque[T]) PushFront(v T) {
	if d.size == len(d.buf) {
		d.grow()
	}
	d.head = (d.head - 1 + len(d.buf)) % len(d.buf)
	d.buf[d.head] = v
	d.size++
}

func (d *deque[T]) PopBack() T {
	var zero T
	if d.size == 0 {
		return zero
	}
	i := (d.head + d.size - 1) % len(d.buf)
	v := d.buf[i]
	d.buf[i] = zero
	d.size--
	return v
}

func (d *deque[T]) PopFront() T {
	var zero T
	if d.size == 0 {
		return zero
	}
	v := d.buf[d.head]
	d.buf[d.head] = zero
	d.head = (d.head + 1) % len(d.buf)
	d.size--
	return v
}

func (d *deque[T]) Clear() {
	var zero T
	for i := 0; i < d.size; i++ {
		d.buf[(d.head+i)%len(d.buf)] = zero
	}
	d.head = 0
	d.size = 0
}

// Queue is a bounded or unbounded deque with suspend-on-empty and
// suspend-on-full semantics, layered on Hub scheduling (spec §4.2). It owns
// no I/O of its own.
type Queue[T any] struct {
	hub *Hub

	items  *deque[T]
	maxLen int
	hasMax bool

	popWaits    waitFIFO
	appendWaits waitFIFO
}

// NewQueue creates a Queue with no caller-specified bound: it takes
// h.cfg.DefaultQueueCapacity as its maxLen (0, the default, meaning
// unbounded). Use NewBoundedQueue to override that default explicitly.
func NewQueue[T any](h *Hub) *Queue[T] {
	q := &Queue[T]{hub: h, items: newDeque[T]()}
	if h.cfg.DefaultQueueCapacity > 0 {
		q.maxLen = h.cfg.DefaultQueueCapacity
		q.hasMax = true
	}
	return q
}

// NewBoundedQueue creates a Queue that suspends Append/AppendLeft once it
// holds maxLen items.
func NewBoundedQueue[T any](h *Hub, maxLen int) *Queue[T] {
	return &Queue[T]{hub: h, items: newDeque[T](), maxLen: maxLen, hasMax: true}
}

func (q *Queue[T]) Len() int { return q.items.Len() }

func (q *Queue[T]) Full() bool {
	return q.hasMax && q.items.Len() >= q.maxLen
}

// removeWait implements queueWaitRemover for the Hub's timer-firing path.
func (q *Queue[T]) removeWait(w *waitRecord) {
	switch w.kind {
	case waitPopSide, waitWaitUntilEmpty:
		q.popWaits.removeIdentity(w)
	case waitAppendSide:
		q.appendWaits.removeIdentity(w)
	}
}

func (q *Queue[T]) waitForPop(t *Task, timeout time.Duration) error {
	w := q.hub.newWait(t, waitPopSide)
	w.queue = q
	if timeout >= 0 {
		w.hasDeadline = true
		w.deadline = q.hub.now().Add(timeout)
		q.hub.timerHeap.push(w)
	}
	q.popWaits.pushBack(w)
	_, err := t.parkAndWait()
	return err
}

func (q *Queue[T]) waitForAppend(t *Task, timeout time.Duration) error {
	w := q.hub.newWait(t, waitAppendSide)
	w.queue = q
	if timeout >= 0 {
		w.hasDeadline = true
		w.deadline = q.hub.now().Add(timeout)
		q.hub.timerHeap.push(w)
	}
	q.appendWaits.pushBack(w)
	_, err := t.parkAndWait()
	return err
}

// popped wakes the next blocked appender, if any. A waitWaitUntilEmpty
// record at the front is rescheduled but keeps its timer-heap registration
// (if any) untouched — WaitUntilEmpty owns that registration's lifetime,
// not popped (see DESIGN.md's "Queue.wait_until_empty bug" entry).
func (q *Queue[T]) popped() {
	w, ok := q.popWaits.popFront()
	if !ok {
		return
	}
	if w.kind != waitWaitUntilEmpty && w.hasDeadline {
		q.hub.timerHeap.remove(w)
	}
	q.hub.schedule(w.task, nil, nil)
}

// appended wakes the next blocked popper, if any.
func (q *Queue[T]) appended() {
	w, ok := q.appendWaits.popFront()
	if !ok {
		return
	}
	if w.hasDeadline {
		q.hub.timerHeap.remove(w)
	}
	q.hub.schedule(w.task, nil, nil)
}

// wakeAllPop wakes every waiter currently in pop_waits, not just the head —
// spec §9's mandated fix to the original source's single-waiter Clear.
func (q *Queue[T]) wakeAllPop() {
	for _, w := range q.popWaits.drainAll() {
		if w.kind != waitWaitUntilEmpty && w.hasDeadline {
			q.hub.timerHeap.remove(w)
		}
		q.hub.schedule(w.task, nil, nil)
	}
}

// Append adds item at the right end, suspending t first if the queue is
// full. timeout < 0 (NoDeadline) waits indefinitely; timeout == 0 tries
// once and fails immediately if still full at the next loop check.
func (q *Queue[T]) Append(t *Task, item T, timeout time.Duration) error {
	for q.Full() {
		if err := q.waitForPop(t, timeout); err != nil {
			return err
		}
	}
	q.items.PushBack(item)
	q.appended()
	return nil
}

// AppendLeft is Append's mirror at the left end.
func (q *Queue[T]) AppendLeft(t *Task, item T, timeout time.Duration) error {
	for q.Full() {
		if err := q.waitForPop(t, timeout); err != nil {
			return err
		}
	}
	q.items.PushFront(item)
	q.appended()
	return nil
}

// Pop removes and returns the rightmost item, suspending t first if the
// queue is empty.
func (q *Queue[T]) Pop(t *Task, timeout time.Duration) (T, error) {
	if q.Len() == 0 {
		if err := q.waitForAppend(t, timeout); err != nil {
			var zero T
			return zero, err
		}
	}
	item := q.items.PopBack()
	q.popped()
	return item, nil
}

// PopLeft is Pop's mirror at the left end.
func (q *Queue[T]) PopLeft(t *Task, timeout time.Duration) (T, error) {
	if q.Len() == 0 {
		if err := q.waitForAppend(t, timeout); err != nil {
			var zero T
			return zero, err
		}
	}
	item := q.items.PopFront()
	q.popped()
	return item, nil
}

// Clear empties the queue, then wakes every pop-waiter: space is now
// available for all of them, not just one (spec §9).
func (q *Queue[T]) Clear() {
	q.items.Clear()
	q.wakeAllPop()
}

// WaitUntilEmpty returns immediately if the queue is already empty;
// otherwise it registers a single wait record, consulted on every pop
// event, until the queue drains or timeout elapses.
func (q *Queue[T]) WaitUntilEmpty(t *Task, timeout time.Duration) error {
	if q.Len() == 0 {
		return nil
	}

	w := q.hub.newWait(t, waitWaitUntilEmpty)
	w.queue = q
	if timeout >= 0 {
		w.hasDeadline = true
		w.deadline = q.hub.now().Add(timeout)
		q.hub.timerHeap.push(w)
	}

	for q.Len() > 0 {
		q.popWaits.pushBack(w)
		if _, err := t.parkAndWait(); err != nil {
			return err
		}
	}

	if w.hasDeadline {
		q.hub.timerHeap.remove(w)
	}
	return nil
}
