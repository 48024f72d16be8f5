package sched

import (
	"container/heap"
	"sync"
)

// Virtual is a deterministic single-threaded scheduler over a virtual
// clock. Events fire in (time, insertion order) order when the caller
// pumps the loop with Step or Run; nothing happens between pumps, so a
// whole multi-node simulation advances reproducibly from one seed.
type Virtual struct {
	mu    sync.Mutex
	now   float64
	seq   uint64
	queue eventQueue
}

type event struct {
	at        float64
	seq       uint64 // insertion order breaks ties deterministically
	fn        func()
	cancelled bool
	index     int
}

// NewVirtual returns a virtual scheduler with the clock at zero.
func NewVirtual() *Virtual {
	return &Virtual{}
}

func (v *Virtual) Now() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

func (v *Virtual) ScheduleAt(t float64, fn func()) Timer {
	v.mu.Lock()
	defer v.mu.Unlock()
	if t < v.now {
		t = v.now
	}
	ev := &event{at: t, seq: v.seq, fn: fn}
	v.seq++
	heap.Push(&v.queue, ev)
	return virtualTimer{v: v, ev: ev}
}

// Step executes the next pending event, advancing the clock to its
// deadline. It reports whether an event ran.
func (v *Virtual) Step() bool {
	for {
		v.mu.Lock()
		if v.queue.Len() == 0 {
			v.mu.Unlock()
			return false
		}
		ev := heap.Pop(&v.queue).(*event)
		if ev.cancelled {
			v.mu.Unlock()
			continue
		}
		v.now = ev.at
		v.mu.Unlock()
		ev.fn()
		return true
	}
}

// Run pumps events until the queue is empty or the next event lies
// beyond the until deadline. The clock is left at the time of the last
// event executed (or at until if nothing remained to run).
func (v *Virtual) Run(until float64) {
	for {
		v.mu.Lock()
		if v.queue.Len() == 0 || v.queue[0].at > until {
			if v.now < until {
				v.now = until
			}
			v.mu.Unlock()
			return
		}
		v.mu.Unlock()
		v.Step()
	}
}

// Pending returns the number of live events in the queue.
func (v *Virtual) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for _, ev := range v.queue {
		if !ev.cancelled {
			n++
		}
	}
	return n
}

type virtualTimer struct {
	v  *Virtual
	ev *event
}

func (t virtualTimer) Cancel() bool {
	t.v.mu.Lock()
	defer t.v.mu.Unlock()
	if t.ev.cancelled {
		return false
	}
	t.ev.cancelled = true
	return true
}

type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *eventQueue) Push(x interface{}) {
	ev := x.(*event)
	ev.index = len(*q)
	*q = append(*q, ev)
}

func (q *eventQueue) Pop() interface{} {
	old := *q
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return ev
}
