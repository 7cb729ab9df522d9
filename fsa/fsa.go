// Package fsa implements the fixed-size segregated allocator: one
// instance vends blocks of a single, fixed size out of a chain of
// pages. Each page is a bump region plus an intrusive free-list
// threaded through recycled slots.
package fsa

import (
	"fmt"

	"tieredalloc/consts"
	"tieredalloc/errs"
	"tieredalloc/internal/fs"
	"tieredalloc/internal/lifecycle"
	"tieredalloc/internal/osregion"
	"tieredalloc/internal/rawmem"
)

// headerSize is the notional size of a page's header (next link,
// payload base, free-list head). This implementation keeps that
// bookkeeping in a Go-side struct rather than inside the mapped bytes,
// but still reserves headerSize bytes of each page's capacity so that
// slotsPerPage matches what a byte-packed header would have allowed,
// and the unused tail is wasted exactly as a packed layout would
// waste it.
const headerSize = 24

// noFree is the sentinel stored in freeHead when a page's free-list is
// empty.
const noFree = int32(-1)

type page struct {
	region   []byte
	base     uintptr
	freeHead int32
	next     *page
}

// Stat is a snapshot of one FSA instance's slot accounting, shaped for
// DumpStat's FSA line.
type Stat struct {
	BlockSize int
	Free      int
	Engaged   int
}

// FSA is one fixed-size segregated allocator instance. The zero value
// is not usable; construct with New and call Init before Alloc/Free.
type FSA struct {
	machine lifecycle.Machine

	provider     osregion.Provider
	blockSize    int
	slotsPerPage int

	head         *page
	blocksInited int // bump cursor into head's payload; resets when head changes

	// OnGrow, if set, is invoked every time a new page is mapped, with
	// a stable label identifying which one. It exists purely for tests
	// and diagnostics; the hot path never depends on it being set.
	OnGrow func(label string)
	pages  int
}

// New returns an uninitialized FSA backed by provider.
func New(provider osregion.Provider) *FSA {
	return &FSA{provider: provider}
}

// Init fixes the block size this instance will ever serve and maps
// its first page. blockSize must be at least 4 bytes, enough to hold
// the intrusive free-list's index word.
func (f *FSA) Init(blockSize int) error {
	if blockSize < 4 {
		panic(fmt.Sprintf("fsa: blockSize %d too small for free-list index word", blockSize))
	}
	f.blockSize = blockSize
	f.slotsPerPage = (consts.ChunkSize - headerSize) / blockSize
	if f.slotsPerPage <= 0 {
		panic(fmt.Sprintf("fsa: blockSize %d leaves no slots in a %d-byte page", blockSize, consts.ChunkSize))
	}
	f.head = nil
	f.blocksInited = 0
	f.pages = 0
	f.machine.Init()
	if err := f.grow(); err != nil {
		return err
	}
	return nil
}

// grow maps one new page and prepends it as the head.
func (f *FSA) grow() error {
	region, err := f.provider.Map(consts.ChunkSize)
	if err != nil {
		return fmt.Errorf("alloc: %w: %v", errs.ErrGrowFailed, err)
	}
	p := &page{
		region:   region,
		base:     rawmem.BaseOf(region),
		freeHead: noFree,
		next:     f.head,
	}
	f.head = p
	f.blocksInited = 0
	f.pages++
	if f.OnGrow != nil {
		f.OnGrow(fs.Label(fmt.Sprintf("fsa%d-page", f.blockSize), f.pages-1))
	}
	return nil
}

// Alloc returns the address of one unused blockSize-byte slot.
func (f *FSA) Alloc() (uintptr, error) {
	f.machine.RequireInitialized()

	if f.blocksInited < f.slotsPerPage || f.head.freeHead != noFree {
		return f.allocFrom(f.head), nil
	}
	for p := f.head.next; p != nil; p = p.next {
		if p.freeHead != noFree {
			return f.allocFrom(p), nil
		}
	}
	if err := f.grow(); err != nil {
		return 0, err
	}
	return f.allocFrom(f.head), nil
}

// allocFrom pops p's free-list if non-empty, otherwise bumps. Only
// valid to bump from p if p == f.head, matching the invariant that
// blocksInited belongs to the head page alone.
func (f *FSA) allocFrom(p *page) uintptr {
	if p.freeHead != noFree {
		idx := p.freeHead
		slot := p.base + uintptr(idx)*uintptr(f.blockSize)
		p.freeHead = rawmem.ReadInt32(slot)
		return slot
	}
	idx := f.blocksInited
	f.blocksInited++
	return p.base + uintptr(idx)*uintptr(f.blockSize)
}

// Free releases a slot previously returned by Alloc on this instance.
// Freeing an address this FSA never issued is a precondition
// violation.
func (f *FSA) Free(addr uintptr) {
	f.machine.RequireInitialized()

	for p := f.head; p != nil; p = p.next {
		limit := p.base + uintptr(f.slotsPerPage)*uintptr(f.blockSize)
		if addr < p.base || addr >= limit {
			continue
		}
		offset := addr - p.base
		if offset%uintptr(f.blockSize) != 0 {
			panic(fmt.Sprintf("fsa: free of misaligned address %#x", addr))
		}
		idx := int32(offset / uintptr(f.blockSize))
		rawmem.WriteInt32(addr, p.freeHead)
		p.freeHead = idx
		return
	}
	panic(fmt.Sprintf("fsa: free of address %#x not owned by this FSA: %v", addr, errs.ErrBadRef))
}

// Destroy releases every page this instance ever mapped.
func (f *FSA) Destroy() error {
	f.machine.Destroy()
	for p := f.head; p != nil; {
		next := p.next
		if err := f.provider.Unmap(p.region); err != nil {
			return fmt.Errorf("fsa: unmap page: %w", err)
		}
		p = next
	}
	f.head = nil
	return nil
}

// Stat summarizes current slot accounting across every page.
func (f *FSA) Stat() Stat {
	s := Stat{BlockSize: f.blockSize}
	total := 0
	for p := f.head; p != nil; p = p.next {
		total += f.slotsPerPage
		for idx := p.freeHead; idx != noFree; {
			s.Free++
			slot := p.base + uintptr(idx)*uintptr(f.blockSize)
			idx = rawmem.ReadInt32(slot)
		}
	}
	if f.head != nil {
		s.Free += f.slotsPerPage - f.blocksInited
	}
	s.Engaged = total - s.Free
	return s
}
