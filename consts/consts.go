// Package consts holds the compile-time configuration for the tiered
// allocator. None of these values are runtime-configurable.
package consts

const (
	// ChunkSize is the total size of one FSA page, header and payload
	// included.
	ChunkSize = 4096

	// Buffer is the size of one CA buffer, header and payload included.
	Buffer = 10 * 1024 * 1024

	// OSThreshold is the request size at and above which the dispatcher
	// maps a dedicated region instead of delegating to the CA.
	OSThreshold = 10 * 1024 * 1024

	// BaseSize is the size of the dispatcher's bookkeeping region.
	BaseSize = 100 * 1024 * 1024

	// MinBytes is the minimum CA block size, including its header.
	MinBytes = 24

	// Align is the byte alignment every engine guarantees.
	Align = 8
)

// Sizes is the FSA size-class roster. FSAs[i] vends blocks of Sizes[i]
// bytes; the dispatcher picks the smallest class with n < Sizes[i].
var Sizes = [6]int{16, 32, 64, 128, 256, 512}
