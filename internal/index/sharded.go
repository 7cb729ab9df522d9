package index

// Table is a bucketed Index implementation: a fixed array of buckets
// keyed on address. No locks — Get/Set/Del run on the allocator's
// single caller goroutine.
type Table struct {
	buckets []map[uintptr]int32
}

// NewTable creates an Index backed by bucketCount buckets.
func NewTable(bucketCount int) *Table {
	buckets := make([]map[uintptr]int32, bucketCount)
	for i := range buckets {
		buckets[i] = make(map[uintptr]int32)
	}
	return &Table{buckets: buckets}
}

func (t *Table) bucket(p uintptr) map[uintptr]int32 {
	return t.buckets[hashPtr(p, len(t.buckets))]
}

func (t *Table) Get(p uintptr) (int32, bool) {
	slot, ok := t.bucket(p)[p]
	return slot, ok
}

func (t *Table) Set(p uintptr, slot int32) {
	t.bucket(p)[p] = slot
}

func (t *Table) Del(p uintptr) {
	delete(t.bucket(p), p)
}

func (t *Table) Len() int {
	n := 0
	for _, b := range t.buckets {
		n += len(b)
	}
	return n
}

func (t *Table) Range(fn func(p uintptr, slot int32)) {
	for _, b := range t.buckets {
		for p, slot := range b {
			fn(p, slot)
		}
	}
}

func (t *Table) Clear() {
	for _, b := range t.buckets {
		for k := range b {
			delete(b, k)
		}
	}
}
