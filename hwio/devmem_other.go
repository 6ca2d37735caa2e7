//go:build !linux

package hwio

import (
	"fmt"

	"github.com/tinyrange/hwtimer/ltimer"
)

// DevMemMapper maps physical register windows through /dev/mem. Only Linux
// hosts expose that device; elsewhere Map always fails.
type DevMemMapper struct {
	Path string
}

// Map implements Mapper.
func (d *DevMemMapper) Map(region ltimer.MemRegion) (*Mapping, error) {
	return nil, fmt.Errorf("hwio: /dev/mem mapping: %w", ltimer.ErrUnsupported)
}

var _ Mapper = (*DevMemMapper)(nil)
