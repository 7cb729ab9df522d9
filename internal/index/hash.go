package index

import "hash/fnv"

// hashPtr buckets an address by running it through FNV-1a and folding
// the result into bucketCount buckets.
func hashPtr(p uintptr, bucketCount int) int {
	h := fnv.New32a()
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(p >> (8 * i))
	}
	h.Write(b[:])
	return int(h.Sum32()) % bucketCount
}
