//go:build windows

package osregion

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Map reserves and commits size bytes of anonymous memory via
// VirtualAlloc(..., MEM_COMMIT|MEM_RESERVE, PAGE_READWRITE).
func (System) Map(size int) ([]byte, error) {
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, fmt.Errorf("osregion: VirtualAlloc %d bytes: %w", size, err)
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

// Unmap releases a region obtained from Map.
func (System) Unmap(region []byte) error {
	if len(region) == 0 {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&region[0]))
	if err := windows.VirtualFree(addr, 0, windows.MEM_RELEASE); err != nil {
		return fmt.Errorf("osregion: VirtualFree: %w", err)
	}
	return nil
}
