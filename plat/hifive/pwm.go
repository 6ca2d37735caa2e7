package hifive

import (
	"encoding/binary"
	"fmt"

	"github.com/tinyrange/hwtimer/ltimer"
)

// SiFive PWM register offsets. Each unit owns one 4 KiB window.
const (
	regCfg   = 0x00
	regCount = 0x08
	regCmp0  = 0x20
)

const (
	cfgScaleMask  uint32 = 0xF
	cfgSticky     uint32 = 1 << 8
	cfgZeroCmp    uint32 = 1 << 9
	cfgEnAlways   uint32 = 1 << 12
	cfgEnOneShot  uint32 = 1 << 13
	cfgCmpIPShift        = 28
	cfgCmpIPMask  uint32 = 0xF << cfgCmpIPShift
)

const (
	// The comparators see the 31-bit counter shifted right by the scale
	// field and truncated to 16 bits.
	counterMask uint32 = 1<<31 - 1
	maxCmp      uint64 = 0xFFFF
	maxScale           = 15
)

// counterQuantum is how many ticks elapse between wrap interrupts of the
// time-keeping unit: cmp0 at its ceiling with the scale maxed out, and
// zerocmp resetting the counter on every match.
const counterQuantum = maxCmp << maxScale

type pwmMode int

const (
	modeCount pwmMode = iota
	modeTimeout
)

// pwm drives one PWM unit over its mapped register window. A unit either
// free-runs as the time source or owns the timeout slot, never both.
type pwm struct {
	regs []byte
	mode pwmMode

	// modeCount: whole wraps folded in by wrap interrupts.
	accumulated uint64

	// modeTimeout: last programmed duration, kept for periodic re-arm.
	periodTicks uint64
	periodic    bool
}

func newPWM(regs []byte, mode pwmMode) *pwm {
	return &pwm{regs: regs, mode: mode}
}

func (p *pwm) read(off int) uint32 {
	return binary.LittleEndian.Uint32(p.regs[off:])
}

func (p *pwm) write(off int, v uint32) {
	binary.LittleEndian.PutUint32(p.regs[off:], v)
}

// start puts a time-keeping unit into its free-running configuration: wrap
// interrupts at the counter ceiling, counter cleared on every match.
func (p *pwm) start() {
	p.write(regCount, 0)
	p.write(regCmp0, uint32(maxCmp))
	p.write(regCfg, cfgEnAlways|cfgSticky|cfgZeroCmp|uint32(maxScale))
}

// stop halts the unit and clears any pending interrupt and armed timeout.
func (p *pwm) stop() {
	p.write(regCfg, 0)
	p.write(regCount, 0)
	p.periodTicks = 0
	p.periodic = false
}

// ticks returns the unit's running tick count, wrap accumulation included.
// A latched wrap that has not been serviced yet already reset the counter,
// so its quantum counts here; handleIRQ clears the latch before it
// accumulates, which keeps the two from double counting. The latch is
// re-read after the counter so a wrap between the two reads retries
// instead of returning a torn value.
func (p *pwm) ticks() uint64 {
	if p.mode != modeCount {
		return p.accumulated + uint64(p.read(regCount)&counterMask)
	}
	for {
		wrapped := p.pending()
		count := uint64(p.read(regCount) & counterMask)
		if p.pending() != wrapped {
			continue
		}
		t := p.accumulated + count
		if wrapped {
			t += counterQuantum
		}
		return t
	}
}

// arm programs a one-shot countdown of delta ticks. The comparator is only
// 16 bits wide, so the scale field shifts the counter until the target
// fits; the shifted target rounds up so the unit never fires early.
func (p *pwm) arm(delta uint64, periodic bool) error {
	scale := 0
	target := delta
	for target > maxCmp && scale < maxScale {
		scale++
		target = (delta + (1 << scale) - 1) >> scale
	}
	if target > maxCmp {
		return fmt.Errorf("hifive: %w: timeout of %d ticks exceeds the %d tick hardware range",
			ltimer.ErrInvalidArgument, delta, maxCmp<<maxScale)
	}
	if target == 0 {
		target = 1
	}

	p.periodTicks = delta
	p.periodic = periodic
	p.write(regCount, 0)
	p.write(regCmp0, uint32(target))
	p.write(regCfg, cfgEnOneShot|cfgSticky|uint32(scale))
	return nil
}

// pending reports whether the unit's compare interrupt is asserted.
func (p *pwm) pending() bool {
	return p.read(regCfg)&cfgCmpIPMask != 0
}

// handleIRQ acknowledges the unit's interrupt. The time-keeping unit folds
// one wrap quantum into its 64-bit accumulator; the timeout unit re-arms
// itself when a periodic timeout is active, so periodic timeouts never
// silently stop.
func (p *pwm) handleIRQ() {
	p.write(regCfg, p.read(regCfg)&^cfgCmpIPMask)

	switch p.mode {
	case modeCount:
		p.accumulated += counterQuantum
	case modeTimeout:
		if p.periodic && p.periodTicks != 0 {
			// arm cannot fail here: the period already fit once.
			_ = p.arm(p.periodTicks, true)
		}
	}
}
