// Package hifive realises the logical timer contract on the HiFive
// Unleashed, composing two PWM units: PWM0 free-runs as the time source and
// PWM1 owns the timeout slot. Each unit has its own register window and its
// own interrupt line, demultiplexed by a fixed lookup in HandleIRQ.
package hifive

import (
	"fmt"
	"log/slog"

	"github.com/tinyrange/hwtimer/hwio"
	"github.com/tinyrange/hwtimer/ltimer"
)

const (
	pwm0Base  = 0x1002_0000
	pwm1Base  = 0x1002_1000
	regionLen = 0x1000

	irqPWM0 uint32 = 42
	irqPWM1 uint32 = 46

	// The PWM blocks count the tile-link clock.
	defaultInputFreqHz = 500_000_000
)

var resources = ltimer.Resources{
	IRQs: []ltimer.IRQ{
		{Number: irqPWM0},
		{Number: irqPWM1},
	},
	Regions: []ltimer.MemRegion{
		{Base: pwm0Base, Length: regionLen},
		{Base: pwm1Base, Length: regionLen},
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

	// InputFreq overrides the PWM input clock in Hz. Zero means the
	// platform default.
	InputFreq uint64
}

// Timer is the HiFive logical timer.
type Timer struct {
	freq     uint64
	maps     [2]*hwio.Mapping
	counter  *pwm
	timeouts *pwm
}

// New maps both PWM windows, starts the time-keeping unit, and returns a
// running timer. Any partial failure unwinds every window mapped so far
// before the error returns.
func New(cfg Config) (*Timer, error) {
	if cfg.Mapper == nil {
		return nil, fmt.Errorf("hifive: %w: nil mapper", ltimer.ErrInvalidArgument)
	}
	freq := cfg.InputFreq
	if freq == 0 {
		freq = defaultInputFreqHz
	}

	t := &Timer{freq: freq}
	for i, region := range resources.Regions {
		m, err := cfg.Mapper.Map(region)
		if err != nil {
			t.Close()
			return nil, fmt.Errorf("hifive: map pwm%d registers: %w", i, err)
		}
		t.maps[i] = m
	}

	t.counter = newPWM(t.maps[0].Bytes(), modeCount)
	t.timeouts = newPWM(t.maps[1].Bytes(), modeTimeout)
	t.counter.start()
	return t, nil
}

// Time implements ltimer.Timer.
func (t *Timer) Time() (uint64, error) {
	return ltimer.TicksToNs(t.counter.ticks(), t.freq), nil
}

// Resolution implements ltimer.Timer.
func (t *Timer) Resolution() (uint64, error) {
	return 0, ltimer.ErrNotImplemented
}

// SetTimeout implements ltimer.Timer. The timeout unit only understands
// relative durations, so absolute targets are converted against a fresh
// read of the time source.
func (t *Timer) SetTimeout(ns uint64, kind ltimer.TimeoutKind) error {
	switch kind {
	case ltimer.TimeoutRelative:
		return t.arm(ns, false)
	case ltimer.TimeoutPeriodic:
		return t.arm(ns, true)
	case ltimer.TimeoutAbsolute:
		now, err := t.Time()
		if err != nil {
			return err
		}
		if ns <= now {
			return ltimer.ErrTimeoutPassed
		}
		return t.arm(ns-now, false)
	default:
		return fmt.Errorf("hifive: %w: timeout kind %v", ltimer.ErrInvalidArgument, kind)
	}
}

func (t *Timer) arm(ns uint64, periodic bool) error {
	return t.timeouts.arm(ltimer.NsToTicks(ns, t.freq), periodic)
}

// HandleIRQ implements ltimer.Timer. The interrupt number picks exactly one
// unit; numbers matching neither are a provisioning bug, logged and
// swallowed because the dispatch loop has no way to recover.
func (t *Timer) HandleIRQ(num uint32) error {
	switch num {
	case irqPWM0:
		t.counter.handleIRQ()
	case irqPWM1:
		t.timeouts.handleIRQ()
	default:
		slog.Warn("hifive: unexpected irq", "irq", num)
	}
	return nil
}

// Reset implements ltimer.Timer. Only the timeout unit restarts; the time
// source keeps counting so Time stays monotonic across resets.
func (t *Timer) Reset() error {
	t.timeouts.stop()
	return nil
}

// Close implements ltimer.Timer. Each window unmaps exactly once and a
// window that never came up unmaps as a no-op, so Close is safe after a
// partially failed New.
func (t *Timer) Close() error {
	if t.counter != nil {
		t.counter.stop()
		t.counter = nil
	}
	if t.timeouts != nil {
		t.timeouts.stop()
		t.timeouts = nil
	}
	for _, m := range t.maps {
		_ = m.Close()
	}
	return nil
}

var _ ltimer.Timer = (*Timer)(nil)
