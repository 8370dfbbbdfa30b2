package tilebrush

import (
	"sync"
	"time"
)

// Clock is the source of change timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// defaultClock serves every Config built without WithClock.
var defaultClock = newStampClock(SystemClock())

// stampClock makes successive reads strictly increasing, so two changes
// made within the clock's resolution still order correctly.
type stampClock struct {
	mu   sync.Mutex
	src  Clock
	last time.Time
}

func newStampClock(src Clock) *stampClock {
	return &stampClock{src: src}
}

func (c *stampClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.src.Now()
	if !t.After(c.last) {
		t = c.last.Add(time.Nanosecond)
	}
	c.last = t
	return t
}
