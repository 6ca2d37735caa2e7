// Package hwio provides the memory-mapping collaborator that turns a
// backend's declared physical register windows into accessible memory.
// Timer backends are the only intended callers: they map during
// construction and unmap during Close.
package hwio

import (
	"fmt"
	"sync"

	"github.com/tinyrange/hwtimer/ltimer"
)

// Mapper maps one declared physical region into accessible memory.
type Mapper interface {
	Map(region ltimer.MemRegion) (*Mapping, error)
}

// Mapping is one mapped register window. Close releases it exactly once;
// closing again, or closing a nil Mapping, is a no-op. That makes a
// backend's teardown safe to run after a partially failed construction
// without tracking which windows actually came up.
type Mapping struct {
	bytes []byte
	unmap func([]byte) error
}

// NewMapping wraps an accessible window and its release function.
func NewMapping(b []byte, unmap func([]byte) error) *Mapping {
	return &Mapping{bytes: b, unmap: unmap}
}

// Bytes returns the mapped window, or nil once closed.
func (m *Mapping) Bytes() []byte {
	if m == nil {
		return nil
	}
	return m.bytes
}

// Close releases the window. Safe on nil and after a previous Close.
func (m *Mapping) Close() error {
	if m == nil || m.bytes == nil {
		return nil
	}
	b := m.bytes
	m.bytes = nil
	if m.unmap == nil {
		return nil
	}
	return m.unmap(b)
}

// MemMapper serves mappings out of process memory. It backs tests and
// emulated platforms: a window installed with Preset stays shared between
// the mapper and the backend, so a test can poke register state while the
// backend holds the mapping.
type MemMapper struct {
	mu          sync.Mutex
	backing     map[uint64][]byte
	outstanding int
	mapCalls    int
}

// NewMemMapper returns an empty in-memory mapper.
func NewMemMapper() *MemMapper {
	return &MemMapper{backing: make(map[uint64][]byte)}
}

// Preset installs the backing window served for regions based at base.
func (m *MemMapper) Preset(base uint64, window []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backing[base] = window
}

// Map implements Mapper. Unknown bases get a fresh zeroed window.
func (m *MemMapper) Map(region ltimer.MemRegion) (*Mapping, error) {
	if region.Length == 0 {
		return nil, fmt.Errorf("hwio: %w: zero-length region at 0x%x", ltimer.ErrInvalidArgument, region.Base)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	window, ok := m.backing[region.Base]
	if !ok {
		window = make([]byte, region.Length)
		m.backing[region.Base] = window
	}
	if uint64(len(window)) < region.Length {
		return nil, fmt.Errorf("hwio: backing window at 0x%x is %d bytes, region wants %d",
			region.Base, len(window), region.Length)
	}

	m.mapCalls++
	m.outstanding++
	return NewMapping(window[:region.Length], func([]byte) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.outstanding--
		return nil
	}), nil
}

// Outstanding reports how many mappings are currently held.
func (m *MemMapper) Outstanding() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outstanding
}

// MapCalls reports how many times Map has been called.
func (m *MemMapper) MapCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mapCalls
}

var _ Mapper = (*MemMapper)(nil)
