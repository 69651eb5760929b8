package greenhub

import "time"

// fdMask is the union of interests a Fd-wait can register.
type fdMask uint8

const (
	Read fdMask = 1 << iota
	Write
	Exc
)

// waitKind distinguishes the variants of Wait record described in spec §3.
type waitKind uint8

const (
	waitFD waitKind = iota
	waitSleep
	// waitPopSide and waitAppendSide are the two Queue-wait sides: a
	// waitPopSide record sits in a Queue's pop_waits deque (it is woken by
	// a pop — used by a caller blocked appending to a full queue); a
	// waitAppendSide record sits in append_waits (woken by an append —
	// used by a caller blocked popping an empty queue).
	waitPopSide
	waitAppendSide
	// waitWaitUntilEmpty also lives in pop_waits but, unlike waitPopSide,
	// is never discarded by a single wakeup: WaitUntilEmpty re-enqueues
	// the same record after every wakeup until the queue drains. See
	// queue.go and DESIGN.md's "Queue.wait_until_empty bug" entry.
	waitWaitUntilEmpty
)

// queueWaitRemover lets the Hub's timer-firing path remove a Queue-wait from
// whichever deque it lives in without the Hub needing to know Queue's
// element type parameter.
type queueWaitRemover interface {
	removeWait(w *waitRecord)
}

// waitRecord is one pending suspension: its target task, its optional
// absolute deadline, and its variant. Exactly one of {fd/mask, args, queue}
// is meaningful, selected by kind.
type waitRecord struct {
	task *Task
	kind waitKind

	hasDeadline bool
	deadline    time.Time
	seq         uint64 // insertion-order tie-break within the timer heap
	heapIndex   int    // index in the timer heap's backing slice, -1 if absent

	// fd-wait fields
	fd   int
	mask fdMask

	// sleep fields: resume-args captured by call_later
	args []interface{}

	// queue-wait fields
	queue queueWaitRemover
}

// waitFIFO is a plain FIFO of pending waits, used for a Queue's pop_waits
// and append_waits deques. Removal by identity is a linear scan — these
// deques hold at most as many entries as there are blocked callers on one
// Queue, not a system-wide count, so O(n) here is the right trade for
// simplicity (spec budget allocates Queue only ≈15% of the implementation).
type waitFIFO struct {
	items []*waitRecord
}

func (f *waitFIFO) pushBack(w *waitRecord) {
	f.items = append(f.items, w)
}

func (f *waitFIFO) popFront() (*waitRecord, bool) {
	if len(f.items) == 0 {
		return nil, false
	}
	w := f.items[0]
	f.items[0] = nil
	f.items = f.items[1:]
	return w, true
}

func (f *waitFIFO) removeIdentity(target *waitRecord) bool {
	for i, w := range f.items {
		if w == target {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return true
		}
	}
	return false
}

func (f *waitFIFO) len() int { return len(f.items) }

// drainAll empties the FIFO and returns everything that was in it, in
// order. Used by Queue.Clear to wake every pop-waiter (spec §9 mandated
// fix), not just the head.
func (f *waitFIFO) drainAll() []*waitRecord {
	all := f.items
	f.items = nil
	return all
}
