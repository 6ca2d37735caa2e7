// Package irq carries delivered hardware interrupt numbers to the logical
// timer that owns them. It is the consumer-side half of interrupt handling
// only; registering lines with an interrupt controller stays the caller's
// job.
package irq

import (
	"fmt"
	"log/slog"

	"github.com/tinyrange/hwtimer/ltimer"
)

// Handler receives one delivered interrupt number.
type Handler interface {
	HandleIRQ(num uint32) error
}

// Dispatcher routes delivered interrupt numbers to handlers. Routes are
// fixed before delivery starts; Deliver does not mutate the table, so the
// lookup is safe from an interrupt-handling context.
type Dispatcher struct {
	routes map[uint32]Handler
}

// NewDispatcher returns a Dispatcher with no routes.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{routes: make(map[uint32]Handler)}
}

// Route binds one interrupt number to a handler. Double registration is a
// provisioning bug and fails loudly.
func (d *Dispatcher) Route(irq ltimer.IRQ, h Handler) error {
	if h == nil {
		return fmt.Errorf("irq: %w: nil handler for irq %d", ltimer.ErrInvalidArgument, irq.Number)
	}
	if _, exists := d.routes[irq.Number]; exists {
		return fmt.Errorf("irq: irq %d already routed", irq.Number)
	}
	d.routes[irq.Number] = h
	return nil
}

// RouteAll binds every IRQ a backend declared to that backend's handler.
func (d *Dispatcher) RouteAll(res ltimer.Resources, h Handler) error {
	for _, irq := range res.IRQs {
		if err := d.Route(irq, h); err != nil {
			return err
		}
	}
	return nil
}

// Deliver forwards one interrupt number to its handler. A number with no
// route means the caller wired delivery wrong.
func (d *Dispatcher) Deliver(num uint32) error {
	h, ok := d.routes[num]
	if !ok {
		return fmt.Errorf("irq: no route for irq %d", num)
	}
	return h.HandleIRQ(num)
}

// Line is an interrupt line a hardware model can assert.
type Line interface {
	Assert()
}

// LineFunc adapts a function to Line.
type LineFunc func()

// Assert implements Line.
func (f LineFunc) Assert() {
	if f != nil {
		f()
	}
}

type detachedLine struct{}

func (detachedLine) Assert() {}

// Detached returns a Line that drops all assertions.
func Detached() Line {
	return detachedLine{}
}

// Line returns a Line that delivers num through the dispatcher. Delivery
// errors are logged, not returned: an asserting hardware model has nowhere
// to send them.
func (d *Dispatcher) Line(num uint32) Line {
	return LineFunc(func() {
		if err := d.Deliver(num); err != nil {
			slog.Warn("irq: dropped assertion", "irq", num, "err", err)
		}
	})
}
