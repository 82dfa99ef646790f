package testutil

import "sync"

// FrameClock hands out a fixed time step, standing in for a render loop
// in tests. It tracks the elapsed time the steps add up to so assertions
// can be written against it.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FrameClock struct {
	mu      sync.Mutex
	dt      float64
	frames  int64
	elapsed float64
}

// NewFrameClock creates a clock that steps by dt seconds.
func NewFrameClock(dt float64) *FrameClock {
	return &FrameClock{dt: dt}
}

// Next returns the step for the next frame and advances.
func (c *FrameClock) Next() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames++
	c.elapsed += c.dt
	return c.dt
}

// Frames returns how many steps were handed out.
func (c *FrameClock) Frames() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// Elapsed returns the sum of the steps handed out.
func (c *FrameClock) Elapsed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

// Reset returns the clock to frame 0.
func (c *FrameClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = 0
	c.elapsed = 0
}
