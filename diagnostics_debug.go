//go:build alloc_debug

package tieredalloc

import (
	"fmt"
	"io"

	"tieredalloc/internal/bookkeeping"
)

// DumpStat writes a human-readable accounting of every engine's
// free/engaged bookkeeping to w: one line per FSA class, one line for
// the CA, and one line per outstanding OS-path block.
func (a *Allocator) DumpStat(w io.Writer) {
	a.machine.RequireInitialized()

	for _, f := range a.fsas {
		s := f.Stat()
		fmt.Fprintf(w, "FSA %d bytes:\n\tFree: %d\n\tEngaged: %d\n", s.BlockSize, s.Free, s.Engaged)
	}

	cs := a.ca.Stat()
	fmt.Fprintf(w, "CA %d bytes:\n\tEngaged size: %d\n\tEngaged: %d\n", cs.BufferBytes, cs.EngagedSize, cs.EngagedCount)

	a.book.Each(func(r bookkeeping.Record) {
		if r.Engine == bookkeeping.EngineOS {
			fmt.Fprintf(w, "OC  block:\n\tEngaged: %d\n", r.Size)
		}
	})
}

// DumpBlocks enumerates every outstanding dispatcher record.
func (a *Allocator) DumpBlocks(w io.Writer) {
	a.machine.RequireInitialized()

	fmt.Fprint(w, "Dump Blocks:\n")
	a.book.Each(func(r bookkeeping.Record) {
		fmt.Fprintf(w, "\tBlock: %#x, size %d\n", r.Chunk, r.Size)
	})
}
