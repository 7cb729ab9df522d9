// Package rawmem is the one place in this repository that performs
// pointer arithmetic with unsafe.Pointer. Every engine routes its
// intrusive-list bookkeeping (FSA's recycled-slot index word, CA's
// block header fields) through these helpers instead of scattering
// unsafe casts through the engine implementations, so the arithmetic
// stays auditable in one small file.
//
// Every address passed here must point inside the backing array of a
// live osregion.Provider region. Such regions are mapped outside the
// Go heap (mmap/VirtualAlloc), so holding their addresses as plain
// uintptr values across calls is safe: the GC never moves or reclaims
// them.
package rawmem

import "unsafe"

// BaseOf returns the absolute address of the first byte of region.
// Panics if region is empty.
func BaseOf(region []byte) uintptr {
	if len(region) == 0 {
		panic("rawmem: BaseOf of empty region")
	}
	return uintptr(unsafe.Pointer(&region[0]))
}

// ReadInt32 loads a little-endian-irrelevant native int32 at addr.
func ReadInt32(addr uintptr) int32 {
	return *(*int32)(unsafe.Pointer(addr)) //nolint:govet // addr is known-live region memory
}

// WriteInt32 stores v at addr.
func WriteInt32(addr uintptr, v int32) {
	*(*int32)(unsafe.Pointer(addr)) = v //nolint:govet
}

// ReadUintptr loads a native-width address value at addr.
func ReadUintptr(addr uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(addr)) //nolint:govet
}

// WriteUintptr stores v at addr.
func WriteUintptr(addr uintptr, v uintptr) {
	*(*uintptr)(unsafe.Pointer(addr)) = v //nolint:govet
}

// ReadUint64 loads a native uint64 at addr.
func ReadUint64(addr uintptr) uint64 {
	return *(*uint64)(unsafe.Pointer(addr)) //nolint:govet
}

// WriteUint64 stores v at addr.
func WriteUint64(addr uintptr, v uint64) {
	*(*uint64)(unsafe.Pointer(addr)) = v //nolint:govet
}

// SliceAt reconstructs the []byte view of a region given its base
// address and length, the inverse of BaseOf. Used only to recover the
// slice osregion.Provider.Unmap expects for a region whose address was
// the only thing bookkeeping kept.
func SliceAt(addr uintptr, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n) //nolint:govet
}

// RoundUp8 rounds n up to the next multiple of 8.
func RoundUp8(n uint64) uint64 {
	return (n + 7) &^ 7
}
