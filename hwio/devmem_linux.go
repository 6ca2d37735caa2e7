//go:build linux

package hwio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/tinyrange/hwtimer/ltimer"
)

const defaultDevMemPath = "/dev/mem"

// DevMemMapper maps physical register windows through /dev/mem. It needs a
// kernel without CONFIG_STRICT_DEVMEM restrictions on the target range and
// a process allowed to open the device.
type DevMemMapper struct {
	// Path overrides the device node, mainly for tests. Empty means
	// /dev/mem.
	Path string
}

// Map implements Mapper.
func (d *DevMemMapper) Map(region ltimer.MemRegion) (*Mapping, error) {
	path := d.Path
	if path == "" {
		path = defaultDevMemPath
	}

	flags := os.O_RDWR
	if !region.Cacheable {
		// O_SYNC gives an uncached mapping on Linux, which device
		// registers require.
		flags |= os.O_SYNC
	}
	f, err := os.OpenFile(path, flags, 0)
	if err != nil {
		return nil, fmt.Errorf("hwio: open %s: %w", path, err)
	}
	defer f.Close()

	b, err := unix.Mmap(int(f.Fd()), int64(region.Base), int(region.Length),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("hwio: mmap 0x%x+0x%x: %w", region.Base, region.Length, err)
	}

	return NewMapping(b, unix.Munmap), nil
}

var _ Mapper = (*DevMemMapper)(nil)
