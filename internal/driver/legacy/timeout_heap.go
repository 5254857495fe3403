package legacy

import "container/heap"

// timeoutEntry is one pending TimeoutOp slot, ordered by absolute deadline.
// Grounded on gaio's timedHeap (a container/heap min-heap of deadlines) —
// spec.md mandates a hierarchical wheel for the user-facing timer module
// (internal/timer), but the driver's own low-level TimeoutOp is a much
// smaller population (one entry per in-flight deadline-aware op plus the
// wheel's own next-tick wakeups) where a heap is the simpler, equally
// correct choice; see DESIGN.md for the wheel-vs-heap split rationale.
type timeoutEntry struct {
	deadline int64 // unix nanos
	slot     int
	index    int
}

type timeoutHeap []*timeoutEntry

func (h timeoutHeap) Len() int            { return len(h) }
func (h timeoutHeap) Less(i, j int) bool  { return h[i].deadline < h[j].deadline }
func (h timeoutHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timeoutHeap) Push(x any) {
	e := x.(*timeoutEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *timeoutHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// timeoutQueue wraps timeoutHeap with the push/pop-expired operations the
// driver actually needs.
type timeoutQueue struct {
	h timeoutHeap
}

func (q *timeoutQueue) push(slot int, deadline int64) {
	heap.Push(&q.h, &timeoutEntry{deadline: deadline, slot: slot})
}

func (q *timeoutQueue) remove(slot int) {
	for i, e := range q.h {
		if e.slot == slot {
			heap.Remove(&q.h, i)
			return
		}
	}
}

// nextDeadline returns the earliest pending deadline, or ok=false if empty.
func (q *timeoutQueue) nextDeadline() (int64, bool) {
	if len(q.h) == 0 {
		return 0, false
	}
	return q.h[0].deadline, true
}

// popExpired removes and returns every slot whose deadline is <= now.
func (q *timeoutQueue) popExpired(now int64) []int {
	var expired []int
	for len(q.h) > 0 && q.h[0].deadline <= now {
		e := heap.Pop(&q.h).(*timeoutEntry)
		expired = append(expired, e.slot)
	}
	return expired
}
