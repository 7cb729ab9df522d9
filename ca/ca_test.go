package ca

import (
	"testing"

	"tieredalloc/consts"
	"tieredalloc/internal/osregion"
	"tieredalloc/internal/osregiontest"
)

func newCA(t *testing.T) *CA {
	t.Helper()
	c := New(osregion.Default)
	if err := c.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return c
}

func TestAllocReturnsFittingBlock(t *testing.T) {
	c := newCA(t)
	defer c.Destroy()

	p, err := c.Alloc(100)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if p == 0 {
		t.Fatal("Alloc returned nil address")
	}
}

func TestFreeThenMergeThenLargeAlloc(t *testing.T) {
	c := newCA(t)
	defer c.Destroy()

	a, err := c.Alloc(600)
	if err != nil {
		t.Fatalf("Alloc a: %v", err)
	}
	b, err := c.Alloc(600)
	if err != nil {
		t.Fatalf("Alloc b: %v", err)
	}
	c.Free(a)
	c.Free(b)

	got, err := c.Alloc(1100)
	if err != nil {
		t.Fatalf("Alloc after merge: %v", err)
	}
	if got != a && got != b {
		t.Logf("coalesced block served from %#x (a=%#x b=%#x)", got, a, b)
	}
	s := c.Stat()
	if s.EngagedCount != 1 {
		t.Fatalf("expected exactly one engaged block after coalesce+realloc, got %d", s.EngagedCount)
	}
}

func TestAbsorbsRemainderBelowMinBytes(t *testing.T) {
	c := newCA(t)
	defer c.Destroy()

	// The whole buffer is one free block of consts.Buffer bytes. Ask
	// for everything except a sliver smaller than MinBytes so the
	// splinter policy absorbs it instead of splitting.
	n := consts.Buffer - headerSize - (consts.MinBytes - 1)
	p, err := c.Alloc(n)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	hdr := p - headerSize
	if readSize(hdr) != uint64(consts.Buffer) {
		t.Fatalf("expected absorbed block size %d, got %d", consts.Buffer, readSize(hdr))
	}
}

func TestNoAdjacentFreeBlocksAfterFree(t *testing.T) {
	c := newCA(t)
	defer c.Destroy()

	a, _ := c.Alloc(200)
	b, _ := c.Alloc(200)
	d, _ := c.Alloc(200)
	c.Free(a)
	c.Free(d)
	c.Free(b)

	// After freeing all three in this order, every adjacency should
	// have coalesced into a single free block covering the buffer.
	count := 0
	for f := c.freeHead; f != noBlock; f = readNext(f) {
		count++
	}
	if count != 1 {
		t.Fatalf("expected one coalesced free block, found %d", count)
	}
}

func TestGrowthPrependsRatherThanLeaking(t *testing.T) {
	counting := osregiontest.NewCounting(osregion.Default)
	c := New(counting)
	if err := c.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	var ptrs []uintptr
	for i := 0; i < 3; i++ {
		p, err := c.Alloc(consts.Buffer - 1024)
		if err != nil {
			t.Fatalf("Alloc %d: %v", i, err)
		}
		ptrs = append(ptrs, p)
	}
	mapped, _ := counting.Balance()
	if mapped < 2 {
		t.Fatalf("expected multiple buffers to be mapped, got %d", mapped)
	}

	if err := c.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	gotMapped, unmapped := counting.Balance()
	if gotMapped != unmapped {
		t.Fatalf("leak: mapped %d buffers, unmapped %d", gotMapped, unmapped)
	}
}

func TestFreeOfUnownedAddressPanics(t *testing.T) {
	c := newCA(t)
	defer c.Destroy()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic freeing an address this CA never issued")
		}
	}()
	c.Free(0xdeadbeef)
}

func TestFreeRequiresInit(t *testing.T) {
	c := New(osregion.Default)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic calling Free before Init")
		}
	}()
	c.Free(1)
}
