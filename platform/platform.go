// Package platform names the available logical timer backends so tooling
// and callers can pick one at runtime without importing each backend
// directly.
package platform

import (
	"fmt"
	"sort"

	"github.com/tinyrange/hwtimer/arch/arm"
	"github.com/tinyrange/hwtimer/hwio"
	"github.com/tinyrange/hwtimer/ltimer"
	"github.com/tinyrange/hwtimer/plat/hifive"
	"github.com/tinyrange/hwtimer/plat/rockpro64"
)

// Options carries the collaborators a backend may need. Backends ignore
// fields they have no use for; a backend missing a collaborator it does
// need fails from its own constructor.
type Options struct {
	// Mapper provisions register windows for memory-mapped backends.
	Mapper hwio.Mapper

	// Counter supplies the architected counter for the generic timer
	// backend.
	Counter arm.Counter
}

// Platform pairs a backend's resource description with its constructor.
// Describe is pure and side-effect free; New performs the whole mapping
// and hardware bring-up.
type Platform struct {
	Name     string
	Describe func() ltimer.Resources
	New      func(Options) (ltimer.Timer, error)
}

var platforms = make(map[string]Platform)

func register(p Platform) {
	if _, exists := platforms[p.Name]; exists {
		panic(fmt.Sprintf("platform: %q registered twice", p.Name))
	}
	platforms[p.Name] = p
}

func init() {
	register(Platform{
		Name:     "hifive",
		Describe: hifive.Describe,
		New: func(opts Options) (ltimer.Timer, error) {
			return hifive.New(hifive.Config{Mapper: opts.Mapper})
		},
	})
	register(Platform{
		Name:     "rockpro64",
		Describe: rockpro64.Describe,
		New: func(opts Options) (ltimer.Timer, error) {
			return rockpro64.New(rockpro64.Config{Mapper: opts.Mapper})
		},
	})
	register(Platform{
		Name:     "arm-generic",
		Describe: arm.Describe,
		New: func(opts Options) (ltimer.Timer, error) {
			return arm.New(arm.Config{Counter: opts.Counter})
		},
	})
}

// Lookup returns the named backend.
func Lookup(name string) (Platform, error) {
	p, ok := platforms[name]
	if !ok {
		return Platform{}, fmt.Errorf("platform: unknown platform %q", name)
	}
	return p, nil
}

// Names lists every registered backend in sorted order.
func Names() []string {
	names := make([]string, 0, len(platforms))
	for name := range platforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
