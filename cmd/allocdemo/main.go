// Command allocdemo exercises a tieredalloc.Allocator directly: a few
// raw allocations across all three tiers, then a small generic
// typed-pointer convenience built on top of the public API. This is
// the allocator's own example program, not a database or other
// product built on it.
package main

import (
	"fmt"
	"os"
	"reflect"
	"unsafe"

	"tieredalloc"
)

func assertNoPointers[T any]() error {
	var zero T
	return typeNoPointers(reflect.TypeOf(zero))
}

func typeNoPointers(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return nil
	case reflect.Array:
		return typeNoPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if err := typeNoPointers(t.Field(i).Type); err != nil {
				return fmt.Errorf("field %s: %w", t.Field(i).Name, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("type %s is not safe to place in raw allocator memory", t.String())
	}
}

// New allocates space for one T out of a and returns a typed pointer
// into that memory plus the Ptr Delete needs to release it. T must
// contain no pointers, slices, maps, or interfaces — its bytes are the
// allocation, nothing more.
func New[T any](a *tieredalloc.Allocator) (*T, tieredalloc.Ptr, error) {
	if err := assertNoPointers[T](); err != nil {
		return nil, 0, err
	}
	var zero T
	n := int(unsafe.Sizeof(zero))
	p, err := a.Alloc(n)
	if err != nil {
		return nil, 0, err
	}
	return (*T)(unsafe.Pointer(p)), p, nil
}

// Delete releases memory obtained from New.
func Delete[T any](a *tieredalloc.Allocator, p tieredalloc.Ptr) error {
	return a.Free(p)
}

type point struct {
	X, Y int64
}

func main() {
	a := tieredalloc.New(nil)
	if err := a.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "init:", err)
		os.Exit(1)
	}
	defer a.Destroy()

	small, err := a.Alloc(8)
	must(err)
	medium, err := a.Alloc(600)
	must(err)
	large, err := a.Alloc(11 * 1024 * 1024)
	must(err)

	a.DumpStat(os.Stdout)

	must(a.Free(small))
	must(a.Free(medium))
	must(a.Free(large))

	p, ref, err := New[point](a)
	must(err)
	p.X, p.Y = 3, 4
	fmt.Printf("point at %#x: {%d %d}\n", ref, p.X, p.Y)
	must(Delete[point](a, ref))
}

func must(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
