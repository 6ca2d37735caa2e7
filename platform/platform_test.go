package platform

import (
	"errors"
	"testing"

	"github.com/tinyrange/hwtimer/hwio"
	"github.com/tinyrange/hwtimer/ltimer"
)

func TestNamesAreSorted(t *testing.T) {
	names := Names()
	if len(names) != 3 {
		t.Fatalf("expected 3 platforms, got %v", names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("names not sorted: %v", names)
		}
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, err := Lookup("z80"); err == nil {
		t.Fatalf("expected error for unknown platform")
	}
}

func TestEveryPlatformDescribes(t *testing.T) {
	for _, name := range Names() {
		p, err := Lookup(name)
		if err != nil {
			t.Fatalf("lookup %q: %v", name, err)
		}
		res := p.Describe()
		if len(res.IRQs) == 0 {
			t.Fatalf("platform %q declares no interrupts", name)
		}
	}
}

func TestMappedPlatformsConstructAndClose(t *testing.T) {
	for _, name := range []string{"hifive", "rockpro64"} {
		mem := hwio.NewMemMapper()
		p, err := Lookup(name)
		if err != nil {
			t.Fatalf("lookup %q: %v", name, err)
		}

		timer, err := p.New(Options{Mapper: mem})
		if err != nil {
			t.Fatalf("new %q: %v", name, err)
		}
		if _, err := timer.Time(); err != nil {
			t.Fatalf("%q time: %v", name, err)
		}
		if err := timer.Close(); err != nil {
			t.Fatalf("%q close: %v", name, err)
		}
		if got := mem.Outstanding(); got != 0 {
			t.Fatalf("%q leaked %d mappings", name, got)
		}
	}
}

func TestGenericNeedsCounter(t *testing.T) {
	p, err := Lookup("arm-generic")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if _, err := p.New(Options{}); !errors.Is(err, ltimer.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
