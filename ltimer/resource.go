package ltimer

// IRQ describes one interrupt line a backend needs delivered.
type IRQ struct {
	Number uint32
}

// MemRegion describes one physical register window a backend needs mapped.
type MemRegion struct {
	Base      uint64
	Length    uint64
	Cacheable bool
}

// Resources is the full resource set a backend declares before it is given
// anything. Each backend's Describe function produces it from compile-time
// constants without touching hardware, so callers can provision resources
// in a separate phase, even at image-build time.
type Resources struct {
	IRQs    []IRQ
	Regions []MemRegion
}

// Clone returns a copy that shares nothing with r, letting backends hand
// out their constant tables without risking caller mutation.
func (r Resources) Clone() Resources {
	out := Resources{}
	if len(r.IRQs) > 0 {
		out.IRQs = append([]IRQ(nil), r.IRQs...)
	}
	if len(r.Regions) > 0 {
		out.Regions = append([]MemRegion(nil), r.Regions...)
	}
	return out
}
