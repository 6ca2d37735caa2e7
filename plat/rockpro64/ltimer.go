// Package rockpro64 realises the logical timer contract on the RockPro64.
// Two RK3399 timer units share one mapped register page: unit 0 free-runs
// as the time source, unit 1 owns the timeout slot. Each unit still has its
// own interrupt line, demultiplexed by a fixed lookup in HandleIRQ.
package rockpro64

import (
	"fmt"
	"log/slog"

	"github.com/tinyrange/hwtimer/hwio"
	"github.com/tinyrange/hwtimer/ltimer"
)

const (
	timerBase  = 0xFF85_0000
	regionLen  = 0x1000
	unitStride = 0x20

	irqTimer0 uint32 = 113
	irqTimer1 uint32 = 114

	// Both units count the 24 MHz crystal.
	inputFreqHz = 24_000_000
)

var resources = ltimer.Resources{
	IRQs: []ltimer.IRQ{
		{Number: irqTimer0},
		{Number: irqTimer1},
	},
	Regions: []ltimer.MemRegion{
		{Base: timerBase, Length: regionLen},
	},
}

// Describe declares the resources the backend needs before it is given
// anything. It answers from constants, touches no hardware, and returns
// the same set on every call.
func Describe() ltimer.Resources {
	return resources.Clone()
}

// Config carries the collaborators New needs.
type Config struct {
	Mapper hwio.Mapper
}

// Timer is the RockPro64 logical timer.
type Timer struct {
	page     *hwio.Mapping
	counter  *rk
	timeouts *rk
}

// New maps the shared timer page, constructs both units over it, and
// starts the time-keeping unit. A mapping failure leaves nothing behind.
func New(cfg Config) (*Timer, error) {
	if cfg.Mapper == nil {
		return nil, fmt.Errorf("rockpro64: %w: nil mapper", ltimer.ErrInvalidArgument)
	}

	page, err := cfg.Mapper.Map(resources.Regions[0])
	if err != nil {
		return nil, fmt.Errorf("rockpro64: map timer page: %w", err)
	}

	t := &Timer{page: page}
	window := page.Bytes()
	t.counter = newRK(window)
	t.timeouts = newRK(window[unitStride:])
	t.counter.startFreeRunning()
	return t, nil
}

// Time implements ltimer.Timer.
func (t *Timer) Time() (uint64, error) {
	return ltimer.TicksToNs(t.counter.ticks(), inputFreqHz), nil
}

// Resolution implements ltimer.Timer.
func (t *Timer) Resolution() (uint64, error) {
	return 0, ltimer.ErrNotImplemented
}

// SetTimeout implements ltimer.Timer. The timeout unit only counts
// relative durations, so absolute targets are converted against a fresh
// read of the time source; an instant already reached fails before any
// register changes.
func (t *Timer) SetTimeout(ns uint64, kind ltimer.TimeoutKind) error {
	switch kind {
	case ltimer.TimeoutRelative:
		t.timeouts.arm(ltimer.NsToTicks(ns, inputFreqHz), false)
	case ltimer.TimeoutPeriodic:
		t.timeouts.arm(ltimer.NsToTicks(ns, inputFreqHz), true)
	case ltimer.TimeoutAbsolute:
		now, err := t.Time()
		if err != nil {
			return err
		}
		if ns <= now {
			return ltimer.ErrTimeoutPassed
		}
		t.timeouts.arm(ltimer.NsToTicks(ns-now, inputFreqHz), false)
	default:
		return fmt.Errorf("rockpro64: %w: timeout kind %v", ltimer.ErrInvalidArgument, kind)
	}
	return nil
}

// HandleIRQ implements ltimer.Timer.
func (t *Timer) HandleIRQ(num uint32) error {
	switch num {
	case irqTimer0:
		t.counter.handleIRQ()
	case irqTimer1:
		t.timeouts.handleIRQ()
	default:
		slog.Warn("rockpro64: unexpected irq", "irq", num)
	}
	return nil
}

// Reset implements ltimer.Timer. Only the timeout unit stops; the time
// source keeps counting so Time stays monotonic across resets.
func (t *Timer) Reset() error {
	t.timeouts.stop()
	return nil
}

// Close implements ltimer.Timer. The shared page unmaps exactly once; a
// page that never mapped unmaps as a no-op.
func (t *Timer) Close() error {
	if t.counter != nil {
		t.counter.stop()
		t.counter = nil
	}
	if t.timeouts != nil {
		t.timeouts.stop()
		t.timeouts = nil
	}
	_ = t.page.Close()
	return nil
}

var _ ltimer.Timer = (*Timer)(nil)
