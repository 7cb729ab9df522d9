//go:build !alloc_debug

package tieredalloc

import "io"

// DumpStat is a no-op outside binaries built with the alloc_debug tag.
func (a *Allocator) DumpStat(w io.Writer) {}

// DumpBlocks is a no-op outside binaries built with the alloc_debug
// tag.
func (a *Allocator) DumpBlocks(w io.Writer) {}
