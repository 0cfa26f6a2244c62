package testfixtures

import (
	"sync"
	"time"
)

// Clock is a manual time source anchored on ReferenceTime. With a step configured,
// every reading moves it forward so rows written in sequence get distinct stamps.
type Clock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// ClockOption configures a Clock.
type ClockOption func(*Clock)

// WithStep advances the clock by d after every Now.
func WithStep(d time.Duration) ClockOption {
	return func(c *Clock) {
		c.step = d
	}
}

// NewClock starts offset away from ReferenceTime.
func NewClock(offset time.Duration, opts ...ClockOption) *Clock {
	c := &Clock{now: ReferenceTime().Add(offset)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now returns the clock reading and applies the configured step.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	reading := c.now
	c.now = c.now.Add(c.step)
	return reading
}

// NowFunc exposes Now for injection; a nil clock falls back to wall time.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Peek returns the next reading without stepping.
func (c *Clock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock by d and returns the new reading.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// At moves the clock to hour:minute UTC on the ReferenceTime day.
func (c *Clock) At(hour, minute int) time.Time {
	day := ReferenceTime().Truncate(24 * time.Hour)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	return c.now
}
