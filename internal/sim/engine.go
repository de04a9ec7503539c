// Package sim runs the discrete-event simulation of a workstation fleet:
// users alternating activity bursts and inactivity gaps, and machines
// shutting down on idle timeouts or voluntary shutdowns.
package sim

import "container/heap"

// event is one scheduled callback.
type event struct {
	wakeAt    float64
	seq       uint64
	fn        func()
	index     int
	cancelled bool
}

// Handle cancels a scheduled event.
type Handle struct {
	e *event
}

// Cancel drops the event; a cancelled event never runs.
func (h *Handle) Cancel() {
	h.e.cancelled = true
}

// Alive reports whether the event is still pending.
func (h *Handle) Alive() bool {
	return !h.e.cancelled && h.e.index >= 0
}

// Engine is a single-threaded discrete-event scheduler. Events fire in
// timestamp order; ties fire in scheduling order.
type Engine struct {
	now   float64
	queue eventQueue
	seq   uint64
}

// NewEngine creates an engine at time 0.
func NewEngine() *Engine {
	return &Engine{}
}

// Now returns the current simulated time in seconds.
func (e *Engine) Now() float64 {
	return e.now
}

// Schedule queues fn to run delay seconds from now.
func (e *Engine) Schedule(delay float64, fn func()) *Handle {
	if delay < 0 {
		delay = 0
	}
	ev := &event{
		wakeAt: e.now + delay,
		seq:    e.seq,
		fn:     fn,
	}
	e.seq++
	heap.Push(&e.queue, ev)
	return &Handle{e: ev}
}

// Run fires events in order until the queue drains or the next event lies
// beyond until, then advances the clock to until.
func (e *Engine) Run(until float64) {
	for len(e.queue) > 0 && e.queue[0].wakeAt <= until {
		ev := heap.Pop(&e.queue).(*event)
		if ev.cancelled {
			continue
		}
		e.now = ev.wakeAt
		ev.fn()
	}
	e.now = until
}

// eventQueue is a min-heap over (wakeAt, seq).
type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].wakeAt != q[j].wakeAt {
		return q[i].wakeAt < q[j].wakeAt
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *eventQueue) Push(x any) {
	ev := x.(*event)
	ev.index = len(*q)
	*q = append(*q, ev)
}

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	ev.index = -1
	*q = old[:n-1]
	return ev
}
