//go:build unix

package osregion

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Map reserves and commits size bytes of anonymous, process-private
// memory via mmap. The region has no file behind it and is never
// shared with another process.
func (System) Map(size int) ([]byte, error) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("osregion: mmap %d bytes: %w", size, err)
	}
	return data, nil
}

// Unmap releases a region obtained from Map.
func (System) Unmap(region []byte) error {
	if len(region) == 0 {
		return nil
	}
	if err := unix.Munmap(region); err != nil {
		return fmt.Errorf("osregion: munmap: %w", err)
	}
	return nil
}
