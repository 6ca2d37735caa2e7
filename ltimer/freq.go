package ltimer

import (
	"math"
	"math/bits"
)

const nsPerSecond = 1_000_000_000

// TicksToNs converts a tick count at hz ticks per second to nanoseconds.
// The multiply happens before the divide through a 128-bit intermediate, so
// realistic frequencies (tens of MHz) and durations (years) neither
// overflow nor lose precision to early truncation. Results past the 64-bit
// range saturate at math.MaxUint64. A zero frequency yields zero; backends
// reject zero frequencies at initialization.
func TicksToNs(ticks, hz uint64) uint64 {
	return mulDiv(ticks, nsPerSecond, hz)
}

// NsToTicks converts nanoseconds to ticks at hz ticks per second, with the
// same widening and saturation rules as TicksToNs.
func NsToTicks(ns, hz uint64) uint64 {
	return mulDiv(ns, hz, nsPerSecond)
}

func mulDiv(value, mul, div uint64) uint64 {
	if div == 0 {
		return 0
	}
	hi, lo := bits.Mul64(value, mul)
	if hi >= div {
		return math.MaxUint64
	}
	quo, _ := bits.Div64(hi, lo, div)
	return quo
}
