// Package tieredalloc is a tiered general-purpose memory allocator: a
// dispatcher routes each request by size to one of three engines — a
// family of fixed-size segregated allocators for small requests, a
// coalescing first-fit allocator for medium requests, and a direct
// OS-mapped region for oversized requests — and records every
// outstanding allocation so Free can route back to the engine that
// produced it.
package tieredalloc

import (
	"fmt"

	"tieredalloc/ca"
	"tieredalloc/consts"
	"tieredalloc/errs"
	"tieredalloc/fsa"
	"tieredalloc/internal/bookkeeping"
	"tieredalloc/internal/lifecycle"
	"tieredalloc/internal/osregion"
	"tieredalloc/internal/rawmem"
)

// Ptr is the numeric address of a byte inside some live Region. It is
// safe to hold across calls because every Region backing it comes
// from an osregion.Provider (mmap/VirtualAlloc), memory the Go garbage
// collector never owns, moves, or reclaims.
type Ptr = uintptr

// Allocator is one tiered-allocator instance: six fixed-size classes,
// one coalescing allocator, and the bookkeeping that ties outstanding
// pointers back to whichever engine produced them.
type Allocator struct {
	machine lifecycle.Machine

	provider osregion.Provider
	fsas     [len(consts.Sizes)]*fsa.FSA
	ca       *ca.CA
	book     *bookkeeping.Book
}

// New returns an uninitialized Allocator backed by provider. Passing
// nil uses osregion.Default.
func New(provider osregion.Provider) *Allocator {
	if provider == nil {
		provider = osregion.Default
	}
	return &Allocator{provider: provider}
}

// Init maps the bookkeeping region, initializes every FSA class and
// the CA, and transitions the instance to Initialized. An instance may
// be re-Init'ed after Destroy.
func (a *Allocator) Init() error {
	a.book = bookkeeping.New(a.provider)
	if err := a.book.Init(); err != nil {
		return err
	}
	for i, size := range consts.Sizes {
		f := fsa.New(a.provider)
		if err := f.Init(size); err != nil {
			for _, g := range a.fsas[:i] {
				g.Destroy()
			}
			a.book.Destroy()
			return err
		}
		a.fsas[i] = f
	}
	a.ca = ca.New(a.provider)
	if err := a.ca.Init(); err != nil {
		for _, g := range a.fsas {
			g.Destroy()
		}
		a.book.Destroy()
		return err
	}
	a.machine.Init()
	return nil
}

// classify picks the engine tag and size class index (meaningful only
// for FSA tags) a request of n bytes should be served from.
func classify(n int) (bookkeeping.Engine, int) {
	if n >= consts.OSThreshold {
		return bookkeeping.EngineOS, -1
	}
	if n >= consts.Sizes[len(consts.Sizes)-1] {
		return bookkeeping.EngineCA, -1
	}
	for i, size := range consts.Sizes {
		if n < size {
			return bookkeeping.Engine(i), i
		}
	}
	// unreachable: consts.Sizes[len-1] is checked by the CA branch above.
	return bookkeeping.EngineCA, -1
}

// Alloc returns a pointer to at least n bytes, dispatching to the FSA
// class, the CA, or a dedicated OS region depending on n.
func (a *Allocator) Alloc(n int) (Ptr, error) {
	a.machine.RequireInitialized()
	if n <= 0 {
		panic(fmt.Sprintf("alloc: invalid request size %d", n))
	}

	engine, slot := classify(n)
	var addr uintptr
	var err error
	switch engine {
	case bookkeeping.EngineOS:
		region, mapErr := a.provider.Map(n)
		if mapErr != nil {
			return 0, fmt.Errorf("alloc: %w: %v", errs.ErrGrowFailed, mapErr)
		}
		addr = rawmem.BaseOf(region)
	case bookkeeping.EngineCA:
		addr, err = a.ca.Alloc(n)
	default:
		addr, err = a.fsas[slot].Alloc()
	}
	if err != nil {
		return 0, err
	}
	a.book.Put(addr, uint64(n), engine)
	return addr, nil
}

// Free releases a pointer previously returned by Alloc, routing to
// whichever engine the bookkeeping recorded — never re-deriving the
// engine from the pointer's size, since the three engines partition
// address space disjointly and share no pointer-tagging scheme.
func (a *Allocator) Free(p Ptr) error {
	a.machine.RequireInitialized()

	rec, ok := a.book.Take(p)
	if !ok {
		panic(fmt.Sprintf("alloc: free of unrecognized pointer %#x: %v", p, errs.ErrBadRef))
	}
	switch rec.Engine {
	case bookkeeping.EngineOS:
		region := rawmem.SliceAt(p, int(rec.Size))
		if err := a.provider.Unmap(region); err != nil {
			return fmt.Errorf("alloc: unmap OS region: %w", err)
		}
	case bookkeeping.EngineCA:
		a.ca.Free(p)
	default:
		a.fsas[rec.Engine].Free(p)
	}
	return nil
}

// Destroy releases every FSA, the CA, any still-outstanding OS-path
// region, and the bookkeeping slab itself.
func (a *Allocator) Destroy() error {
	var leftover []bookkeeping.Record
	a.book.Each(func(r bookkeeping.Record) {
		if r.Engine == bookkeeping.EngineOS {
			leftover = append(leftover, r)
		}
	})
	for _, r := range leftover {
		if err := a.provider.Unmap(rawmem.SliceAt(r.Chunk, int(r.Size))); err != nil {
			return fmt.Errorf("alloc: unmap leftover OS region: %w", err)
		}
	}
	for _, f := range a.fsas {
		if err := f.Destroy(); err != nil {
			return err
		}
	}
	if err := a.ca.Destroy(); err != nil {
		return err
	}
	if err := a.book.Destroy(); err != nil {
		return err
	}
	a.machine.Destroy()
	return nil
}
