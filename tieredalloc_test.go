package tieredalloc

import (
	"testing"

	"tieredalloc/consts"
)

func newAllocator(t *testing.T) *Allocator {
	t.Helper()
	a := New(nil)
	if err := a.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return a
}

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		n      int
		engine byte
	}{
		{4, 0}, {15, 0},
		{16, 1}, {31, 1},
		{32, 2}, {63, 2},
		{64, 3}, {127, 3},
		{128, 4}, {255, 4},
		{256, 5}, {511, 5},
	}
	for _, c := range cases {
		engine, slot := classify(c.n)
		if int(engine) != int(c.engine) || slot != int(c.engine) {
			t.Errorf("classify(%d): got engine=%v slot=%d, want FSA class %d", c.n, engine, slot, c.engine)
		}
	}

	if e, _ := classify(512); e != 6 {
		t.Errorf("classify(512): want CA(6) got %v", e)
	}
	if e, _ := classify(consts.OSThreshold - 1); e != 6 {
		t.Errorf("classify(OSThreshold-1): want CA(6) got %v", e)
	}
	if e, _ := classify(consts.OSThreshold); e != 7 {
		t.Errorf("classify(OSThreshold): want OS(7) got %v", e)
	}
}

func TestAllocFreeMix(t *testing.T) {
	a := newAllocator(t)
	defer a.Destroy()

	p, err := a.Alloc(4)
	if err != nil {
		t.Fatalf("Alloc(4): %v", err)
	}
	d, err := a.Alloc(8)
	if err != nil {
		t.Fatalf("Alloc(8): %v", err)
	}
	big, err := a.Alloc(40)
	if err != nil {
		t.Fatalf("Alloc(40): %v", err)
	}

	if err := a.Free(big); err != nil {
		t.Fatalf("Free(big): %v", err)
	}
	if err := a.Free(d); err != nil {
		t.Fatalf("Free(d): %v", err)
	}
	if err := a.Free(p); err != nil {
		t.Fatalf("Free(p): %v", err)
	}

	for i, f := range a.fsas {
		if s := f.Stat(); s.Engaged != 0 {
			t.Errorf("FSA class %d: %d still engaged", i, s.Engaged)
		}
	}
	if s := a.ca.Stat(); s.EngagedCount != 0 {
		t.Errorf("CA: %d still engaged", s.EngagedCount)
	}
}

func TestOSPathAllocation(t *testing.T) {
	a := newAllocator(t)
	defer a.Destroy()

	p, err := a.Alloc(11 * 1024 * 1024)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	for _, f := range a.fsas {
		if s := f.Stat(); s.Engaged != 0 {
			t.Fatalf("OS-path allocation unexpectedly landed in an FSA")
		}
	}
	if err := a.Free(p); err != nil {
		t.Fatalf("Free: %v", err)
	}
}

func TestFreeRoutesByRecordedEngineNotSize(t *testing.T) {
	a := newAllocator(t)
	defer a.Destroy()

	// 500 falls in FSA[5] (256<=n<512), 512 falls in CA. Both are
	// on the boundary a size-derived re-classification could confuse.
	fromFSA, err := a.Alloc(500)
	if err != nil {
		t.Fatalf("Alloc(500): %v", err)
	}
	fromCA, err := a.Alloc(512)
	if err != nil {
		t.Fatalf("Alloc(512): %v", err)
	}

	if err := a.Free(fromFSA); err != nil {
		t.Fatalf("Free(fromFSA): %v", err)
	}
	if err := a.Free(fromCA); err != nil {
		t.Fatalf("Free(fromCA): %v", err)
	}
	if s := a.fsas[5].Stat(); s.Engaged != 0 {
		t.Fatalf("FSA[5] still shows %d engaged after Free", s.Engaged)
	}
	if s := a.ca.Stat(); s.EngagedCount != 0 {
		t.Fatalf("CA still shows %d engaged after Free", s.EngagedCount)
	}
}

func TestReuseAfterDestroyBehavesLikeFreshInstance(t *testing.T) {
	a := New(nil)
	if err := a.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	p, err := a.Alloc(4)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if err := a.Free(p); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if err := a.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	if err := a.Init(); err != nil {
		t.Fatalf("re-Init: %v", err)
	}
	defer a.Destroy()
	q, err := a.Alloc(4)
	if err != nil {
		t.Fatalf("Alloc after re-Init: %v", err)
	}
	if err := a.Free(q); err != nil {
		t.Fatalf("Free after re-Init: %v", err)
	}
}

func TestAllocRequiresInitialized(t *testing.T) {
	a := New(nil)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic calling Alloc before Init")
		}
	}()
	a.Alloc(8)
}

func TestFreeOfUnrecognizedPointerPanics(t *testing.T) {
	a := newAllocator(t)
	defer a.Destroy()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic freeing an unrecognized pointer")
		}
	}()
	a.Free(0xdeadbeef)
}

func TestDoubleDestroyPanics(t *testing.T) {
	a := newAllocator(t)
	if err := a.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on double Destroy")
		}
	}()
	a.Destroy()
}
