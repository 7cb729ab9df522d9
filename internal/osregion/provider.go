// Package osregion is the allocator's sole dependency on the operating
// system: it reserves and releases page-aligned, process-private
// regions of memory. Every engine (FSA, CA, and the dispatcher's OS
// path and bookkeeping slab) goes through a Provider rather than
// calling the platform primitive directly, so tests can substitute an
// instrumented or size-limited fake.
package osregion

// Provider reserves and releases regions of raw memory. Map commits
// size bytes of readable/writable memory at an address of the
// platform's choosing; Unmap releases the entire region a prior Map
// returned. There is no partial unmap and no protection change.
type Provider interface {
	Map(size int) ([]byte, error)
	Unmap(region []byte) error
}

// System is the default Provider, backed by the platform's native
// anonymous-mapping primitive (mmap on unix, VirtualAlloc on Windows).
type System struct{}

// Default is the Provider every engine uses unless a test substitutes
// its own.
var Default Provider = System{}
