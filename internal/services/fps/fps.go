package fps

import (
	"sync"
	"time"
)

// Counter measures throughput of the frame loop between Start and Stop
type Counter struct {
	mu      sync.Mutex
	now     func() time.Time
	start   time.Time
	end     time.Time
	frames  int64
	running bool
}

// New creates a counter using the wall clock
func New() *Counter {
	return NewWithClock(time.Now)
}

// NewWithClock creates a counter reading time from now
func NewWithClock(now func() time.Time) *Counter {
	return &Counter{now: now}
}

// Start resets the frame count and begins timing
func (c *Counter) Start() *Counter {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.start = c.now()
	c.end = time.Time{}
	c.frames = 0
	c.running = true
	return c
}

// Update records one processed frame
func (c *Counter) Update() {
	c.mu.Lock()
	c.frames++
	c.mu.Unlock()
}

// Stop freezes the elapsed time. Calling it twice keeps the first stop time.
func (c *Counter) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}
	c.end = c.now()
	c.running = false
}

// Frames returns the number of Update calls since Start
func (c *Counter) Frames() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// ElapsedSeconds is measured to Stop, or to now while still running
func (c *Counter) ElapsedSeconds() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsedLocked().Seconds()
}

// ComputeFPS returns frames / elapsed seconds, 0 before any time has passed
func (c *Counter) ComputeFPS() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := c.elapsedLocked().Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(c.frames) / elapsed
}

func (c *Counter) elapsedLocked() time.Duration {
	if c.start.IsZero() {
		return 0
	}
	if c.running {
		return c.now().Sub(c.start)
	}
	return c.end.Sub(c.start)
}
