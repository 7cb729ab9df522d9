// Package ca implements the coalescing allocator: a first-fit,
// boundary-coalescing allocator serving arbitrarily sized requests out
// of one or more large linear buffers.
package ca

import (
	"fmt"

	"tieredalloc/consts"
	"tieredalloc/errs"
	"tieredalloc/internal/fs"
	"tieredalloc/internal/lifecycle"
	"tieredalloc/internal/osregion"
	"tieredalloc/internal/rawmem"
)

// headerSize is sizeof(header): prevFree, nextFree (both uintptr) and
// size (uint64). This is also consts.MinBytes.
const headerSize = 24

const noBlock = uintptr(0)

// block field offsets within a header, in bytes.
const (
	offPrevFree = 0
	offNextFree = 8
	offSize     = 16
)

func readPrev(hdr uintptr) uintptr    { return rawmem.ReadUintptr(hdr + offPrevFree) }
func writePrev(hdr, v uintptr)        { rawmem.WriteUintptr(hdr+offPrevFree, v) }
func readNext(hdr uintptr) uintptr    { return rawmem.ReadUintptr(hdr + offNextFree) }
func writeNext(hdr, v uintptr)        { rawmem.WriteUintptr(hdr+offNextFree, v) }
func readSize(hdr uintptr) uint64     { return rawmem.ReadUint64(hdr + offSize) }
func writeSize(hdr uintptr, v uint64) { rawmem.WriteUint64(hdr+offSize, v) }

// buffer is one mapped Region backing some number of blocks.
type buffer struct {
	region []byte
	base   uintptr
	limit  uintptr // base + len(region): one past the last valid address in this buffer
	next   *buffer
}

// Stat is a snapshot of the CA's accounting, shaped for DumpStat's CA
// line.
type Stat struct {
	BufferBytes  int
	EngagedSize  uint64
	EngagedCount int
}

// CA is a coalescing allocator instance. The zero value is not usable;
// construct with New and call Init before Alloc/Free.
type CA struct {
	machine lifecycle.Machine

	provider osregion.Provider
	buffers  *buffer
	freeHead uintptr // 0 means empty

	engagedSize  uint64
	engagedCount int

	// OnGrow, if set, is invoked every time a new buffer is mapped,
	// with a stable label identifying which one.
	OnGrow func(label string)
	nbufs  int
}

// New returns an uninitialized CA backed by provider.
func New(provider osregion.Provider) *CA {
	return &CA{provider: provider}
}

// Init maps the first buffer and installs it as a single free block
// spanning the entire payload.
func (c *CA) Init() error {
	c.buffers = nil
	c.freeHead = noBlock
	c.engagedSize = 0
	c.engagedCount = 0
	c.nbufs = 0
	c.machine.Init()
	return c.grow()
}

// grow maps one new buffer, installs its full span as a single free
// block, and links it in front of the existing free-list.
func (c *CA) grow() error {
	region, err := c.provider.Map(consts.Buffer)
	if err != nil {
		return fmt.Errorf("alloc: %w: %v", errs.ErrGrowFailed, err)
	}
	base := rawmem.BaseOf(region)
	b := &buffer{region: region, base: base, limit: base + uintptr(len(region)), next: c.buffers}
	c.buffers = b
	c.nbufs++

	writePrev(base, noBlock)
	writeNext(base, c.freeHead)
	if c.freeHead != noBlock {
		writePrev(c.freeHead, base)
	}
	writeSize(base, uint64(len(region)))
	c.freeHead = base

	if c.OnGrow != nil {
		c.OnGrow(fs.Label("ca-buffer", c.nbufs-1))
	}
	return nil
}

func blockSizeFor(n int) uint64 {
	s := rawmem.RoundUp8(uint64(n) + headerSize)
	if s < consts.MinBytes {
		s = consts.MinBytes
	}
	return s
}

// unlink removes hdr from the free-list.
func (c *CA) unlink(hdr uintptr) {
	prev := readPrev(hdr)
	next := readNext(hdr)
	if prev != noBlock {
		writeNext(prev, next)
	} else {
		c.freeHead = next
	}
	if next != noBlock {
		writePrev(next, prev)
	}
}

// Alloc returns the address just past the header of a block whose
// capacity is at least n bytes, first-fit over the free-list.
func (c *CA) Alloc(n int) (uintptr, error) {
	c.machine.RequireInitialized()

	s := blockSizeFor(n)
	if s > consts.Buffer {
		return 0, fmt.Errorf("alloc: %w: need %d bytes", errs.ErrNoSpace, n)
	}
	for {
		if addr, engaged, ok := c.allocFit(s); ok {
			c.engagedSize += engaged
			c.engagedCount++
			return addr, nil
		}
		if err := c.grow(); err != nil {
			return 0, err
		}
	}
}

// allocFit walks the free-list for the first block of size >= s and
// carves it out, applying the splinter policy. It returns the actual
// block size the caller ends up engaged with, which may exceed s when
// the remainder is absorbed.
func (c *CA) allocFit(s uint64) (addr uintptr, engaged uint64, ok bool) {
	for hdr := c.freeHead; hdr != noBlock; hdr = readNext(hdr) {
		bsize := readSize(hdr)
		if bsize < s {
			continue
		}
		remainder := bsize - s
		if remainder < consts.MinBytes {
			c.unlink(hdr)
			writeSize(hdr, bsize)
			return hdr + headerSize, bsize, true
		}
		rem := hdr + uintptr(s)
		writeSize(hdr, s)
		writeSize(rem, remainder)
		writePrev(rem, readPrev(hdr))
		writeNext(rem, readNext(hdr))
		if readPrev(rem) != noBlock {
			writeNext(readPrev(rem), rem)
		} else {
			c.freeHead = rem
		}
		if readNext(rem) != noBlock {
			writePrev(readNext(rem), rem)
		}
		return hdr + headerSize, s, true
	}
	return 0, 0, false
}

// bufferOf returns the buffer containing addr, or nil.
func (c *CA) bufferOf(addr uintptr) *buffer {
	for b := c.buffers; b != nil; b = b.next {
		if addr >= b.base && addr < b.limit {
			return b
		}
	}
	return nil
}

// Free releases a block previously returned by Alloc, coalescing with
// any adjacent free neighbor in the same buffer.
func (c *CA) Free(addr uintptr) {
	c.machine.RequireInitialized()

	hdr := addr - headerSize
	buf := c.bufferOf(hdr)
	if buf == nil {
		panic(fmt.Sprintf("ca: free of address %#x not owned by this CA: %v", addr, errs.ErrBadRef))
	}
	size := readSize(hdr)

	var leftHdr, rightHdr uintptr
	for f := c.freeHead; f != noBlock; f = readNext(f) {
		if f >= buf.base && f+uintptr(readSize(f)) == hdr {
			leftHdr = f
		}
		if f < buf.limit && hdr+uintptr(size) == f {
			rightHdr = f
		}
	}

	switch {
	case leftHdr != noBlock && rightHdr != noBlock:
		writeSize(leftHdr, readSize(leftHdr)+size+readSize(rightHdr))
		c.unlink(rightHdr)
	case leftHdr != noBlock:
		writeSize(leftHdr, readSize(leftHdr)+size)
	case rightHdr != noBlock:
		writePrev(hdr, readPrev(rightHdr))
		writeNext(hdr, readNext(rightHdr))
		if readPrev(hdr) != noBlock {
			writeNext(readPrev(hdr), hdr)
		} else {
			c.freeHead = hdr
		}
		if readNext(hdr) != noBlock {
			writePrev(readNext(hdr), hdr)
		}
		writeSize(hdr, size+readSize(rightHdr))
	default:
		writePrev(hdr, noBlock)
		writeNext(hdr, c.freeHead)
		if c.freeHead != noBlock {
			writePrev(c.freeHead, hdr)
		}
		c.freeHead = hdr
	}

	c.engagedSize -= size
	c.engagedCount--
}

// Destroy releases every buffer this instance ever mapped.
func (c *CA) Destroy() error {
	c.machine.Destroy()
	for b := c.buffers; b != nil; {
		next := b.next
		if err := c.provider.Unmap(b.region); err != nil {
			return fmt.Errorf("ca: unmap buffer: %w", err)
		}
		b = next
	}
	c.buffers = nil
	return nil
}

// Stat summarizes current engagement accounting.
func (c *CA) Stat() Stat {
	return Stat{
		BufferBytes:  consts.Buffer,
		EngagedSize:  c.engagedSize,
		EngagedCount: c.engagedCount,
	}
}
