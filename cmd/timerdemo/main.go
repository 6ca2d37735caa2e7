// timerdemo runs the architected timer backend over the emulated counter
// and services its interrupts from a single loop, the way a platform's
// interrupt dispatch would. Each periodic firing advances a progress bar
// when stdout is a terminal, and logs otherwise.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/tinyrange/hwtimer/arch/arm"
	"github.com/tinyrange/hwtimer/emu"
	"github.com/tinyrange/hwtimer/irq"
	"github.com/tinyrange/hwtimer/ltimer"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	freq := fs.Uint64("freq", 62_500_000, "Emulated counter frequency in Hz")
	period := fs.Duration("period", 250*time.Millisecond, "Periodic timeout period")
	count := fs.Int("count", 20, "Number of firings to service before exiting")

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	// Delivered interrupts funnel through a channel so the timer only ever
	// sees one execution context, per its concurrency contract.
	fired := make(chan struct{}, 1)
	line := irq.LineFunc(func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})

	counter := emu.NewCounter(*freq, line)
	timer, err := arm.New(arm.Config{Counter: counter})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to bring up timer: %v\n", err)
		os.Exit(1)
	}
	defer timer.Close()

	dispatcher := irq.NewDispatcher()
	if err := dispatcher.RouteAll(arm.Describe(), timer); err != nil {
		fmt.Fprintf(os.Stderr, "failed to route interrupts: %v\n", err)
		os.Exit(1)
	}

	if err := timer.SetTimeout(uint64(period.Nanoseconds()), ltimer.TimeoutPeriodic); err != nil {
		fmt.Fprintf(os.Stderr, "failed to arm timeout: %v\n", err)
		os.Exit(1)
	}

	var bar *progressbar.ProgressBar
	if term.IsTerminal(int(os.Stdout.Fd())) {
		bar = progressbar.Default(int64(*count))
	}

	for i := 0; i < *count; i++ {
		<-fired
		if err := dispatcher.Deliver(arm.DefaultIRQ); err != nil {
			slog.Warn("timerdemo: delivery failed", "err", err)
		}
		now, _ := timer.Time()
		if bar != nil {
			_ = bar.Add(1)
		} else {
			slog.Info("timerdemo: timeout fired", "n", i+1, "now", time.Duration(now))
		}
	}
}
