package tieredalloc

import (
	"math/rand"
	"testing"
)

func mustBenchAllocator(b *testing.B) *Allocator {
	b.Helper()
	a := New(nil)
	if err := a.Init(); err != nil {
		b.Fatalf("Init: %v", err)
	}
	return a
}

func BenchmarkAllocFreeSmall(b *testing.B) {
	a := mustBenchAllocator(b)
	defer a.Destroy()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p, err := a.Alloc(24)
		if err != nil {
			b.Fatalf("Alloc: %v", err)
		}
		if err := a.Free(p); err != nil {
			b.Fatalf("Free: %v", err)
		}
	}
}

func BenchmarkAllocFreeMedium(b *testing.B) {
	a := mustBenchAllocator(b)
	defer a.Destroy()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p, err := a.Alloc(2048)
		if err != nil {
			b.Fatalf("Alloc: %v", err)
		}
		if err := a.Free(p); err != nil {
			b.Fatalf("Free: %v", err)
		}
	}
}

// BenchmarkMixSizes drives the dispatcher across its full size range.
// The allocator is explicitly single-threaded, so this stays serial
// rather than using b.RunParallel.
func BenchmarkMixSizes(b *testing.B) {
	a := mustBenchAllocator(b)
	defer a.Destroy()

	r := rand.New(rand.NewSource(1))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		n := 1 + r.Intn(1000)
		p, err := a.Alloc(n)
		if err != nil {
			b.Fatalf("Alloc: %v", err)
		}
		if err := a.Free(p); err != nil {
			b.Fatalf("Free: %v", err)
		}
	}
}
