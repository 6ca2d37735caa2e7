package rockpro64

import "encoding/binary"

// RK3399 timer registers, relative to each unit. Units sit 0x20 apart
// inside the shared timer page.
const (
	regLoadCount0    = 0x00
	regLoadCount1    = 0x04
	regCurrentValue0 = 0x08
	regCurrentValue1 = 0x0C
	regIntStatus     = 0x18
	regControl       = 0x1C
)

const (
	ctrlEnable    uint32 = 1 << 0
	ctrlModeUser  uint32 = 1 << 1
	ctrlIntUnmask uint32 = 1 << 2
)

// rk drives one RK3399 timer unit. The unit counts up to the 64-bit load
// value, interrupts, and reloads. Free-running mode with the all-ones load
// makes it a time source; user-defined mode with interrupts unmasked makes
// it a timeout source.
type rk struct {
	regs    []byte
	oneshot bool
}

func newRK(regs []byte) *rk {
	return &rk{regs: regs}
}

func (u *rk) read(off int) uint32 {
	return binary.LittleEndian.Uint32(u.regs[off:])
}

func (u *rk) write(off int, v uint32) {
	binary.LittleEndian.PutUint32(u.regs[off:], v)
}

// startFreeRunning makes the unit count the full 64-bit range with its
// interrupt masked.
func (u *rk) startFreeRunning() {
	u.write(regControl, 0)
	u.write(regLoadCount0, 0xFFFF_FFFF)
	u.write(regLoadCount1, 0xFFFF_FFFF)
	u.write(regControl, ctrlEnable)
}

// ticks reads the 64-bit counter. The high word is re-read until stable so
// a low-word rollover between the two reads cannot produce a torn value.
func (u *rk) ticks() uint64 {
	hi := u.read(regCurrentValue1)
	for {
		lo := u.read(regCurrentValue0)
		again := u.read(regCurrentValue1)
		if again == hi {
			return uint64(hi)<<32 | uint64(lo)
		}
		hi = again
	}
}

// arm programs a countdown of delta ticks. The unit must be disabled while
// the load registers change. In user-defined mode the hardware reloads the
// same count after every interrupt, which is exactly the periodic re-arm
// contract; one-shot timeouts are stopped by handleIRQ instead.
func (u *rk) arm(delta uint64, periodic bool) {
	u.write(regControl, 0)
	u.write(regLoadCount0, uint32(delta))
	u.write(regLoadCount1, uint32(delta>>32))
	u.write(regIntStatus, 1)
	u.oneshot = !periodic
	u.write(regControl, ctrlEnable|ctrlModeUser|ctrlIntUnmask)
}

// stop halts the unit and clears any pending interrupt.
func (u *rk) stop() {
	u.write(regControl, 0)
	u.write(regIntStatus, 1)
	u.oneshot = false
}

// pending reports whether the unit's interrupt is asserted.
func (u *rk) pending() bool {
	return u.read(regIntStatus)&1 != 0
}

// handleIRQ acknowledges the unit's interrupt before anything re-arms. A
// fired one-shot stops so the auto-reload cannot fire it again.
func (u *rk) handleIRQ() {
	u.write(regIntStatus, 1)
	if u.oneshot {
		u.write(regControl, 0)
		u.oneshot = false
	}
}
