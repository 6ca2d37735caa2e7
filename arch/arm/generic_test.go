package arm

import (
	"errors"
	"math"
	"testing"

	"github.com/tinyrange/hwtimer/ltimer"
)

// fakeCounter is a hand-driven architected counter.
type fakeCounter struct {
	freq    uint64
	ticks   uint64
	compare uint64

	enabled       bool
	compareWrites int
}

func (f *fakeCounter) Frequency() uint64 { return f.freq }
func (f *fakeCounter) Read() uint64      { return f.ticks }
func (f *fakeCounter) SetCompare(v uint64) {
	f.compare = v
	f.compareWrites++
}
func (f *fakeCounter) Enable()  { f.enabled = true }
func (f *fakeCounter) Disable() { f.enabled = false }

func newFake() *fakeCounter {
	return &fakeCounter{freq: 1_000_000}
}

func TestDescribeHasOneIRQNoRegions(t *testing.T) {
	res := Describe()
	if len(res.IRQs) != 1 || res.IRQs[0].Number != DefaultIRQ {
		t.Fatalf("unexpected irqs: %+v", res.IRQs)
	}
	if len(res.Regions) != 0 {
		t.Fatalf("architected counter should need no windows: %+v", res.Regions)
	}
}

func TestNewRequiresCounter(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ltimer.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestZeroFrequencyIsFatal(t *testing.T) {
	fc := &fakeCounter{}
	if _, err := New(Config{Counter: fc}); !errors.Is(err, ltimer.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if fc.enabled {
		t.Fatalf("failed init left the timer enabled")
	}
}

func TestNewDisarmsAndEnables(t *testing.T) {
	fc := newFake()
	timer, err := New(Config{Counter: fc})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer timer.Close()

	if fc.compare != math.MaxUint64 {
		t.Fatalf("expected disarmed compare, got %#x", fc.compare)
	}
	if !fc.enabled {
		t.Fatalf("counter not enabled")
	}
}

func TestPeriodicWorkedExample(t *testing.T) {
	fc := newFake()
	timer, err := New(Config{Counter: fc})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer timer.Close()

	// 5ms at 1 MHz lands the compare on tick 5000.
	if err := timer.SetTimeout(5_000_000, ltimer.TimeoutPeriodic); err != nil {
		t.Fatalf("set timeout: %v", err)
	}
	if fc.compare != 5000 {
		t.Fatalf("expected compare at tick 5000, got %d", fc.compare)
	}

	// The firing handler re-arms to now + period.
	fc.ticks = 5000
	if err := timer.HandleIRQ(DefaultIRQ); err != nil {
		t.Fatalf("handle irq: %v", err)
	}
	if fc.compare != 10_000 {
		t.Fatalf("expected re-arm at tick 10000, got %d", fc.compare)
	}

	fc.ticks = 10_000
	if err := timer.HandleIRQ(DefaultIRQ); err != nil {
		t.Fatalf("handle irq: %v", err)
	}
	if fc.compare != 15_000 {
		t.Fatalf("expected re-arm at tick 15000, got %d", fc.compare)
	}
}

func TestOneShotDisarmsAfterFiring(t *testing.T) {
	fc := newFake()
	timer, err := New(Config{Counter: fc})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer timer.Close()

	if err := timer.SetTimeout(5_000_000, ltimer.TimeoutRelative); err != nil {
		t.Fatalf("set timeout: %v", err)
	}
	fc.ticks = 5000
	if err := timer.HandleIRQ(DefaultIRQ); err != nil {
		t.Fatalf("handle irq: %v", err)
	}
	if fc.compare != math.MaxUint64 {
		t.Fatalf("one-shot did not disarm, compare=%d", fc.compare)
	}
}

func TestAbsoluteTimeout(t *testing.T) {
	fc := newFake()
	timer, err := New(Config{Counter: fc})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer timer.Close()

	fc.ticks = 10_000 // now = 10ms
	if err := timer.SetTimeout(15_000_000, ltimer.TimeoutAbsolute); err != nil {
		t.Fatalf("set timeout: %v", err)
	}
	if fc.compare != 15_000 {
		t.Fatalf("expected compare at tick 15000, got %d", fc.compare)
	}

	writes := fc.compareWrites
	if err := timer.SetTimeout(5_000_000, ltimer.TimeoutAbsolute); !errors.Is(err, ltimer.ErrTimeoutPassed) {
		t.Fatalf("expected ErrTimeoutPassed, got %v", err)
	}
	if fc.compareWrites != writes {
		t.Fatalf("passed timeout still programmed hardware")
	}

	// An instant exactly equal to now counts as already passed.
	fc.ticks = 20_000
	if err := timer.SetTimeout(20_000_000, ltimer.TimeoutAbsolute); !errors.Is(err, ltimer.ErrTimeoutPassed) {
		t.Fatalf("instant equal to now not treated as passed: %v", err)
	}
}

func TestFailedAbsoluteArmKeepsPeriodic(t *testing.T) {
	fc := newFake()
	timer, err := New(Config{Counter: fc})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer timer.Close()

	if err := timer.SetTimeout(5_000_000, ltimer.TimeoutPeriodic); err != nil {
		t.Fatalf("set timeout: %v", err)
	}

	fc.ticks = 10_000 // now = 10ms
	if err := timer.SetTimeout(1_000_000, ltimer.TimeoutAbsolute); !errors.Is(err, ltimer.ErrTimeoutPassed) {
		t.Fatalf("expected ErrTimeoutPassed, got %v", err)
	}

	// The failed arm superseded nothing: the next firing still re-arms
	// with the original period.
	if err := timer.HandleIRQ(DefaultIRQ); err != nil {
		t.Fatalf("handle irq: %v", err)
	}
	if fc.compare != 15_000 {
		t.Fatalf("periodic timeout lost after failed arm, compare=%d", fc.compare)
	}
}

func TestResetClearsPeriodicTimeout(t *testing.T) {
	fc := newFake()
	timer, err := New(Config{Counter: fc})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer timer.Close()

	if err := timer.SetTimeout(5_000_000, ltimer.TimeoutPeriodic); err != nil {
		t.Fatalf("set timeout: %v", err)
	}
	if err := timer.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if fc.compare != math.MaxUint64 {
		t.Fatalf("reset did not disarm, compare=%d", fc.compare)
	}

	// A stray firing after reset must not resurrect the period.
	fc.ticks = 20_000
	if err := timer.HandleIRQ(DefaultIRQ); err != nil {
		t.Fatalf("handle irq: %v", err)
	}
	if fc.compare != math.MaxUint64 {
		t.Fatalf("reset periodic timeout re-armed itself, compare=%d", fc.compare)
	}
}

func TestResolution(t *testing.T) {
	fc := &fakeCounter{freq: 62_500_000}
	timer, err := New(Config{Counter: fc})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer timer.Close()

	res, err := timer.Resolution()
	if err != nil {
		t.Fatalf("resolution: %v", err)
	}
	if res != 16 {
		t.Fatalf("expected 16ns at 62.5MHz, got %d", res)
	}
}

func TestUnexpectedIRQIsSwallowed(t *testing.T) {
	fc := newFake()
	timer, err := New(Config{Counter: fc})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer timer.Close()

	writes := fc.compareWrites
	if err := timer.HandleIRQ(99); err != nil {
		t.Fatalf("unexpected irq escalated: %v", err)
	}
	if fc.compareWrites != writes {
		t.Fatalf("unexpected irq touched hardware")
	}
}

func TestCloseDisables(t *testing.T) {
	fc := newFake()
	timer, err := New(Config{Counter: fc})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := timer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if fc.enabled {
		t.Fatalf("close left the timer enabled")
	}
}
