package engine

// Clock is the session's logical time.
//
// Every tick is stamped with a strictly increasing seq number, and elapsed
// session time accumulates from the dt values the host passes to Tick.
// Nothing reads the wall clock, so replaying the same dt sequence
// reproduces the same timeline.
type Clock struct {
	seq     int64
	elapsed float64
}

// NewClock creates a clock at seq 0 and zero elapsed time.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock at a specific position.
// Used to resume a recorded session.
func NewClockAt(seq int64, elapsed float64) *Clock {
	return &Clock{seq: seq, elapsed: elapsed}
}

// Advance adds dt seconds of session time and returns the next seq.
func (c *Clock) Advance(dt float64) int64 {
	c.seq++
	c.elapsed += dt
	return c.seq
}

// Current returns the seq of the last tick without advancing.
func (c *Clock) Current() int64 {
	return c.seq
}

// Elapsed returns accumulated session time in seconds.
func (c *Clock) Elapsed() float64 {
	return c.elapsed
}
