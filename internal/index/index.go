// Package index gives the dispatcher's bookkeeping slab O(1) lookup
// by pointer. It keeps a hash-bucketed lookup shape (Index interface,
// fnv-hashed buckets) but drops any per-bucket locking: the allocator
// is single-threaded, so nothing ever contends for a bucket.
package index

// Index maps an outstanding allocation's address to the slot index of
// its bookkeeping record.
type Index interface {
	Get(p uintptr) (slot int32, ok bool)
	Set(p uintptr, slot int32)
	Del(p uintptr)
	Len() int
	Range(fn func(p uintptr, slot int32))
	Clear()
}
