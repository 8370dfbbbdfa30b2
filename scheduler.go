package tilebrush

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Timer is a pending scheduled callback.
type Timer interface {
	// Stop cancels the callback. It reports whether the call stopped the
	// timer; false means the callback already ran or was stopped.
	Stop() bool
}

// Scheduler runs callbacks after a delay on the caller's event loop.
//
// Implementations must never run fn concurrently with the code that owns
// the surface: the core is single-threaded.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// EventLoop is a cooperative Scheduler. Timers fire on a runtime timer but
// their callbacks are only queued; they run inside Run or RunPending on the
// goroutine that drives the loop.
type EventLoop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

// NewEventLoop creates an empty event loop.
func NewEventLoop() *EventLoop {
	return &EventLoop{wake: make(chan struct{}, 1)}
}

// Post queues fn to run on the loop.
func (l *EventLoop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// AfterFunc implements Scheduler.
func (l *EventLoop) AfterFunc(d time.Duration, fn func()) Timer {
	lt := &loopTimer{}
	lt.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if lt.fired.CompareAndSwap(false, true) {
				fn()
			}
		})
	})
	return lt
}

// RunPending runs every queued callback and returns how many ran.
// Callbacks queued while draining run in the same call.
func (l *EventLoop) RunPending() int {
	n := 0
	for {
		l.mu.Lock()
		q := l.queue
		l.queue = nil
		l.mu.Unlock()
		if len(q) == 0 {
			return n
		}
		for _, fn := range q {
			fn()
			n++
		}
	}
}

// Run drives the loop until ctx is done.
func (l *EventLoop) Run(ctx context.Context) error {
	for {
		l.RunPending()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

type loopTimer struct {
	t *time.Timer
	// fired is set by whichever of Stop or the callback wins.
	fired atomic.Bool
}

func (lt *loopTimer) Stop() bool {
	lt.t.Stop()
	return lt.fired.CompareAndSwap(false, true)
}

// ManualScheduler is a Scheduler whose time only moves when Advance is
// called. It is meant for tests and for hosts that tick time themselves.
type ManualScheduler struct {
	now    time.Duration
	seq    int
	timers []*manualTimer
}

// NewManualScheduler returns a scheduler at time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

type manualTimer struct {
	s    *ManualScheduler
	at   time.Duration
	seq  int
	fn   func()
	done bool
}

func (t *manualTimer) Stop() bool {
	if t.done {
		return false
	}
	t.done = true
	t.s.remove(t)
	return true
}

// AfterFunc implements Scheduler.
func (s *ManualScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	s.seq++
	t := &manualTimer{s: s, at: s.now + d, seq: s.seq, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// Advance moves time forward by d, firing due timers in deadline order.
// It returns the number of callbacks run.
func (s *ManualScheduler) Advance(d time.Duration) int {
	target := s.now + d
	n := 0
	for {
		t := s.next(target)
		if t == nil {
			break
		}
		s.now = t.at
		t.done = true
		s.remove(t)
		t.fn()
		n++
	}
	s.now = target
	return n
}

// Pending returns the number of armed timers.
func (s *ManualScheduler) Pending() int { return len(s.timers) }

// Now returns the scheduler's elapsed time.
func (s *ManualScheduler) Now() time.Duration { return s.now }

func (s *ManualScheduler) next(limit time.Duration) *manualTimer {
	if len(s.timers) == 0 {
		return nil
	}
	sort.SliceStable(s.timers, func(i, j int) bool {
		if s.timers[i].at != s.timers[j].at {
			return s.timers[i].at < s.timers[j].at
		}
		return s.timers[i].seq < s.timers[j].seq
	})
	if s.timers[0].at > limit {
		return nil
	}
	return s.timers[0]
}

func (s *ManualScheduler) remove(t *manualTimer) {
	for i, v := range s.timers {
		if v == t {
			s.timers = append(s.timers[:i], s.timers[i+1:]...)
			return
		}
	}
}
