package greenhub

import "container/heap"

// timerHeap is a binary min-heap of waitRecords ordered by deadline, tied
// broken by insertion order (seq). It tracks each record's index so a
// record can be removed by identity in O(log n) instead of the linear
// scan-then-reheapify the original source performs (greennet
// hub.py:_remove_timeout does list.remove + heapq.heapify).
type timerHeap struct {
	items []*waitRecord
}

func (h timerHeap) Len() int { return len(h.items) }

func (h timerHeap) Less(i, j int) bool {
	di, dj := h.items[i].deadline, h.items[j].deadline
	if di.Equal(dj) {
		return h.items[i].seq < h.items[j].seq
	}
	return di.Before(dj)
}

func (h timerHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].heapIndex = i
	h.items[j].heapIndex = j
}

func (h *timerHeap) Push(x interface{}) {
	w := x.(*waitRecord)
	w.heapIndex = len(h.items)
	h.items = append(h.items, w)
}

func (h *timerHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	w.heapIndex = -1
	h.items = old[:n-1]
	return w
}

func (h *timerHeap) push(w *waitRecord) {
	heap.Push(h, w)
}

// peek returns the earliest deadline without removing it. Caller must check
// Len() > 0 first.
func (h *timerHeap) peek() *waitRecord {
	return h.items[0]
}

func (h *timerHeap) popMin() *waitRecord {
	return heap.Pop(h).(*waitRecord)
}

// remove deletes w from the heap by identity, wherever it currently sits.
// A no-op if w is not (or no longer) registered, so callers don't need to
// track whether a record already fired.
func (h *timerHeap) remove(w *waitRecord) {
	if w.heapIndex < 0 || w.heapIndex >= len(h.items) || h.items[w.heapIndex] != w {
		return
	}
	heap.Remove(h, w.heapIndex)
}
