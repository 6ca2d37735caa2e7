package emu

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/tinyrange/hwtimer/arch/arm"
	"github.com/tinyrange/hwtimer/irq"
	"github.com/tinyrange/hwtimer/ltimer"
)

func TestReadTracksClock(t *testing.T) {
	mock := clock.NewMock()
	c := NewCounter(1_000_000, nil, WithClock(mock))

	if got := c.Read(); got != 0 {
		t.Fatalf("expected 0 at start, got %d", got)
	}
	mock.Add(5 * time.Millisecond)
	if got := c.Read(); got != 5000 {
		t.Fatalf("expected 5000 ticks after 5ms at 1MHz, got %d", got)
	}
	if got := c.Frequency(); got != 1_000_000 {
		t.Fatalf("unexpected frequency %d", got)
	}
}

func TestCompareFiresOnce(t *testing.T) {
	mock := clock.NewMock()
	fires := 0
	c := NewCounter(1_000_000, irq.LineFunc(func() { fires++ }), WithClock(mock))

	c.Enable()
	c.SetCompare(5000)

	mock.Add(4 * time.Millisecond)
	if fires != 0 {
		t.Fatalf("fired %d times before the compare value", fires)
	}
	mock.Add(1 * time.Millisecond)
	if fires != 1 {
		t.Fatalf("expected one firing at the compare value, got %d", fires)
	}

	// Without a new compare the line stays quiet.
	mock.Add(20 * time.Millisecond)
	if fires != 1 {
		t.Fatalf("fired again without re-arm, got %d", fires)
	}
}

func TestDisableStopsFiring(t *testing.T) {
	mock := clock.NewMock()
	fires := 0
	c := NewCounter(1_000_000, irq.LineFunc(func() { fires++ }), WithClock(mock))

	c.Enable()
	c.SetCompare(5000)
	c.Disable()

	mock.Add(10 * time.Millisecond)
	if fires != 0 {
		t.Fatalf("disabled timer fired %d times", fires)
	}

	// The counter itself keeps running while the timer is disabled.
	if got := c.Read(); got != 10_000 {
		t.Fatalf("expected the counter to keep counting, got %d", got)
	}
}

func TestDisarmedCompareNeverSchedules(t *testing.T) {
	mock := clock.NewMock()
	fires := 0
	c := NewCounter(1_000_000, irq.LineFunc(func() { fires++ }), WithClock(mock))

	c.Enable()
	mock.Add(time.Hour)
	if fires != 0 {
		t.Fatalf("disarmed timer fired %d times", fires)
	}
}

func TestGenericTimerOverEmulatedCounter(t *testing.T) {
	mock := clock.NewMock()

	var timer *arm.Timer
	fires := 0
	line := irq.LineFunc(func() {
		fires++
		if err := timer.HandleIRQ(arm.DefaultIRQ); err != nil {
			t.Errorf("handle irq: %v", err)
		}
	})

	c := NewCounter(1_000_000, line, WithClock(mock))
	timer, err := arm.New(arm.Config{Counter: c})
	if err != nil {
		t.Fatalf("new timer: %v", err)
	}
	defer timer.Close()

	if err := timer.SetTimeout(5_000_000, ltimer.TimeoutPeriodic); err != nil {
		t.Fatalf("set timeout: %v", err)
	}

	for step := 1; step <= 4; step++ {
		mock.Add(5 * time.Millisecond)
		if fires != step {
			t.Fatalf("after %d periods expected %d firings, got %d", step, step, fires)
		}
	}

	now, err := timer.Time()
	if err != nil {
		t.Fatalf("time: %v", err)
	}
	if now != 20_000_000 {
		t.Fatalf("expected 20ms of elapsed time, got %dns", now)
	}
}
