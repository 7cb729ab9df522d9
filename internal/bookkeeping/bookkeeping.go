// Package bookkeeping tracks every outstanding allocation the
// dispatcher has handed out, independent of user memory, so that Free
// can recover which engine produced a pointer without re-deriving it
// from the pointer's size class.
package bookkeeping

import (
	"fmt"

	"tieredalloc/consts"
	"tieredalloc/errs"
	"tieredalloc/internal/index"
	"tieredalloc/internal/lifecycle"
	"tieredalloc/internal/osregion"
	"tieredalloc/internal/rawmem"
)

// bucketCount is deliberately small and fixed: the slab this indexes
// is bounded by consts.BaseSize, not by arbitrary growth.
const bucketCount = 64

// Engine tags which strategy produced a given outstanding pointer.
type Engine int8

const (
	EngineFSA0 Engine = iota
	EngineFSA1
	EngineFSA2
	EngineFSA3
	EngineFSA4
	EngineFSA5
	EngineCA
	EngineOS
)

// recordSize is sizeof{chunk uintptr, size uint64, engine int8,
// padding}, rounded to 8-byte alignment.
const recordSize = 24

const (
	offChunk  = 0
	offSize   = 8
	offEngine = 16
)

// Record is a snapshot of one outstanding allocation, returned by
// lookups and used by DumpBlocks.
type Record struct {
	Chunk  uintptr
	Size   uint64
	Engine Engine
}

// Book is the dispatcher's bookkeeping slab: a bump-allocated array of
// fixed-size records inside a dedicated Region, with slots freed by
// Free pushed onto an internal free-list and reused by later Alloc
// calls, plus a hash index for O(1) lookup by pointer.
type Book struct {
	machine lifecycle.Machine

	provider osregion.Provider
	region   []byte
	base     uintptr

	slotsTotal int
	bumped     int
	freeHead   int32 // index into the slot free-list, -1 if empty

	index index.Index
}

const noSlot = int32(-1)

// New returns an uninitialized Book backed by provider.
func New(provider osregion.Provider) *Book {
	return &Book{provider: provider}
}

// Init maps the Base bookkeeping region and resets the slab.
func (b *Book) Init() error {
	region, err := b.provider.Map(consts.BaseSize)
	if err != nil {
		return fmt.Errorf("alloc: %w: bookkeeping region: %v", errs.ErrGrowFailed, err)
	}
	b.region = region
	b.base = rawmem.BaseOf(region)
	b.slotsTotal = consts.BaseSize / recordSize
	b.bumped = 0
	b.freeHead = noSlot
	b.index = index.NewTable(bucketCount)
	b.machine.Init()
	return nil
}

func (b *Book) slotAddr(idx int32) uintptr {
	return b.base + uintptr(idx)*recordSize
}

// Put records a new outstanding allocation. Panics if the slab is
// exhausted; unlike a failed engine growth, this is not returned as an
// error. The bookkeeping region's size is chosen so this never happens
// in practice (see consts.BaseSize).
func (b *Book) Put(chunk uintptr, size uint64, engine Engine) {
	b.machine.RequireInitialized()

	var idx int32
	if b.freeHead != noSlot {
		idx = b.freeHead
		slot := b.slotAddr(idx)
		b.freeHead = rawmem.ReadInt32(slot)
	} else {
		if b.bumped >= b.slotsTotal {
			panic("alloc: bookkeeping slab exhausted")
		}
		idx = int32(b.bumped)
		b.bumped++
	}
	slot := b.slotAddr(idx)
	rawmem.WriteUintptr(slot+offChunk, chunk)
	rawmem.WriteUint64(slot+offSize, size)
	rawmem.WriteInt32(slot+offEngine, int32(engine))
	b.index.Set(chunk, idx)
}

// Take removes and returns the record for chunk. ok is false if chunk
// is not a recorded outstanding allocation.
func (b *Book) Take(chunk uintptr) (Record, bool) {
	b.machine.RequireInitialized()

	idx, found := b.index.Get(chunk)
	if !found {
		return Record{}, false
	}
	slot := b.slotAddr(idx)
	rec := Record{
		Chunk:  rawmem.ReadUintptr(slot + offChunk),
		Size:   rawmem.ReadUint64(slot + offSize),
		Engine: Engine(rawmem.ReadInt32(slot + offEngine)),
	}
	b.index.Del(chunk)
	rawmem.WriteInt32(slot, b.freeHead)
	b.freeHead = idx
	return rec, true
}

// Each calls fn for every outstanding record, in no particular order.
// Used by DumpBlocks and by Destroy's OS-path sweep.
func (b *Book) Each(fn func(Record)) {
	b.index.Range(func(chunk uintptr, idx int32) {
		slot := b.slotAddr(idx)
		fn(Record{
			Chunk:  chunk,
			Size:   rawmem.ReadUint64(slot + offSize),
			Engine: Engine(rawmem.ReadInt32(slot + offEngine)),
		})
	})
}

// Len returns the number of outstanding records.
func (b *Book) Len() int {
	return b.index.Len()
}

// Destroy releases the bookkeeping region.
func (b *Book) Destroy() error {
	b.machine.Destroy()
	if err := b.provider.Unmap(b.region); err != nil {
		return fmt.Errorf("bookkeeping: unmap: %w", err)
	}
	b.region = nil
	b.index = nil
	return nil
}
