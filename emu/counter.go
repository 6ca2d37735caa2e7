// Package emu provides hosted stand-ins for timer hardware, letting
// backends that normally talk to real units run and be tested on a
// development machine.
package emu

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/tinyrange/hwtimer/arch/arm"
	"github.com/tinyrange/hwtimer/irq"
	"github.com/tinyrange/hwtimer/ltimer"
)

const maxCompare = ^uint64(0)

// Counter emulates an architected counter with a compare register. The
// counter runs from construction and never stops; Enable and Disable gate
// only the compare interrupt, mirroring the real hardware split between
// the counter and the timer. Reaching the compare value pulses the
// interrupt line once per programmed compare.
type Counter struct {
	mu      sync.Mutex
	clk     clock.Clock
	freq    uint64
	line    irq.Line
	started time.Time

	enabled bool
	compare uint64
	timer   *clock.Timer
}

// Option customises a Counter, mainly for tests.
type Option func(*Counter)

// WithClock substitutes the time base, typically a clock.Mock.
func WithClock(clk clock.Clock) Option {
	return func(c *Counter) {
		if clk != nil {
			c.clk = clk
		}
	}
}

// NewCounter returns a counter ticking at freq against the wall clock.
func NewCounter(freq uint64, line irq.Line, opts ...Option) *Counter {
	c := &Counter{
		clk:     clock.New(),
		freq:    freq,
		line:    line,
		compare: maxCompare,
	}
	if c.line == nil {
		c.line = irq.Detached()
	}
	for _, opt := range opts {
		opt(c)
	}
	c.started = c.clk.Now()
	return c
}

// Frequency implements arm.Counter.
func (c *Counter) Frequency() uint64 {
	return c.freq
}

// Read implements arm.Counter.
func (c *Counter) Read() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readLocked()
}

func (c *Counter) readLocked() uint64 {
	elapsed := c.clk.Now().Sub(c.started)
	if elapsed < 0 {
		return 0
	}
	return ltimer.NsToTicks(uint64(elapsed), c.freq)
}

// SetCompare implements arm.Counter.
func (c *Counter) SetCompare(ticks uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.compare = ticks
	c.rescheduleLocked()
}

// Enable implements arm.Counter.
func (c *Counter) Enable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = true
	c.rescheduleLocked()
}

// Disable implements arm.Counter.
func (c *Counter) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = false
	c.stopLocked()
}

func (c *Counter) stopLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Counter) rescheduleLocked() {
	c.stopLocked()
	if !c.enabled || c.compare == maxCompare {
		return
	}

	now := c.readLocked()
	var delay time.Duration
	if c.compare > now {
		delay = time.Duration(ltimer.TicksToNs(c.compare-now, c.freq))
	}
	c.timer = c.clk.AfterFunc(delay, c.fire)
}

func (c *Counter) fire() {
	c.mu.Lock()
	armed := c.enabled && c.compare != maxCompare && c.readLocked() >= c.compare
	if armed {
		c.timer = nil
	}
	c.mu.Unlock()

	// Assert outside the lock: the handler usually calls straight back
	// into SetCompare to re-arm or disarm.
	if armed {
		c.line.Assert()
	}
}

var _ arm.Counter = (*Counter)(nil)
