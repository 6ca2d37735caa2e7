// Package arm realises the logical timer contract on the ARM generic
// timer: one architecturally defined counter with a compare register,
// reached through system registers instead of a mapped window. There is
// exactly one interrupt source, so no demultiplexing happens here; the
// handler's only decision is re-arm or disarm.
package arm

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/tinyrange/hwtimer/ltimer"
)

// DefaultIRQ is the physical counter-timer PPI.
const DefaultIRQ uint32 = 30

// Counter is the architected counter the backend programs. The real
// implementation is a handful of system-register accessors; emu provides a
// hosted one.
type Counter interface {
	// Frequency returns ticks per second as the hardware reports it.
	Frequency() uint64
	// Read returns the current counter value.
	Read() uint64
	// SetCompare arms the compare register; the interrupt condition holds
	// while the counter is at or past the value.
	SetCompare(ticks uint64)
	// Enable starts the timer; Disable stops it and masks its interrupt.
	Enable()
	Disable()
}

// Describe declares the backend's resources: one interrupt line and no
// register windows, the counter being architecturally addressed.
func Describe() ltimer.Resources {
	return ltimer.Resources{
		IRQs: []ltimer.IRQ{{Number: DefaultIRQ}},
	}
}

// Config carries the collaborators New needs.
type Config struct {
	// Counter is the architected counter. Nil means the platform
	// configuration does not export it to this context.
	Counter Counter

	// IRQ overrides the delivered interrupt number. Zero means DefaultIRQ.
	IRQ uint32
}

// Timer is the generic timer backend.
type Timer struct {
	hw   Counter
	freq uint64
	irq  uint32

	// period is the active periodic timeout in ns; zero means none.
	period uint64
}

// New reads and validates the counter frequency, disarms the compare
// register, and starts the counter. The frequency is read once here; every
// later conversion uses the cached value.
func New(cfg Config) (*Timer, error) {
	if cfg.Counter == nil {
		return nil, fmt.Errorf("arm: generic timer not exported: %w", ltimer.ErrUnsupported)
	}
	freq := cfg.Counter.Frequency()
	if freq == 0 {
		return nil, fmt.Errorf("arm: counter frequency reads zero: %w", ltimer.ErrUnsupported)
	}
	irq := cfg.IRQ
	if irq == 0 {
		irq = DefaultIRQ
	}

	t := &Timer{hw: cfg.Counter, freq: freq, irq: irq}
	t.hw.SetCompare(math.MaxUint64)
	t.hw.Enable()
	return t, nil
}

// Time implements ltimer.Timer. A single counter read, safe from the
// interrupt-handling context.
func (t *Timer) Time() (uint64, error) {
	return ltimer.TicksToNs(t.hw.Read(), t.freq), nil
}

// Resolution implements ltimer.Timer.
func (t *Timer) Resolution() (uint64, error) {
	ns := ltimer.TicksToNs(1, t.freq)
	if ns == 0 {
		ns = 1
	}
	return ns, nil
}

// SetTimeout implements ltimer.Timer. The compare register holds an
// absolute tick value, so relative and periodic targets are offset from a
// fresh counter read before programming. An absolute instant at or before
// the current time fails with ErrTimeoutPassed; a failed call leaves
// whatever was armed before it in place.
func (t *Timer) SetTimeout(ns uint64, kind ltimer.TimeoutKind) error {
	if !kind.Valid() {
		return fmt.Errorf("arm: %w: timeout kind %v", ltimer.ErrInvalidArgument, kind)
	}

	now, err := t.Time()
	if err != nil {
		return err
	}
	target := ns
	if kind != ltimer.TimeoutAbsolute {
		target = now + ns
	}
	if target <= now {
		return ltimer.ErrTimeoutPassed
	}

	if kind == ltimer.TimeoutPeriodic {
		t.period = ns
	} else {
		t.period = 0
	}
	t.hw.SetCompare(ltimer.NsToTicks(target, t.freq))
	return nil
}

// HandleIRQ implements ltimer.Timer. Re-arm the active periodic timeout,
// or push the compare register to the far future, which disarms it.
func (t *Timer) HandleIRQ(num uint32) error {
	if num != t.irq {
		slog.Warn("arm: unexpected irq", "irq", num)
		return nil
	}
	if t.period != 0 {
		return t.SetTimeout(t.period, ltimer.TimeoutPeriodic)
	}
	t.hw.SetCompare(math.MaxUint64)
	return nil
}

// Reset implements ltimer.Timer. The counter itself never stops, so time
// stays monotonic; only the pending timeout clears.
func (t *Timer) Reset() error {
	t.period = 0
	t.hw.SetCompare(math.MaxUint64)
	return nil
}

// Close implements ltimer.Timer.
func (t *Timer) Close() error {
	t.period = 0
	t.hw.Disable()
	return nil
}

var _ ltimer.Timer = (*Timer)(nil)
