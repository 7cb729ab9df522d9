// Package errs holds the sentinel errors returned by the allocator's
// reportable failure paths. Precondition violations (double-init,
// operating on a non-Initialized instance, freeing an unrecognized
// pointer) are not represented here — those panic, they don't return
// an error.
package errs

import "errors"

var (
	// ErrGrowFailed indicates that the OS region provider could not
	// satisfy a Map request while an engine was trying to grow.
	ErrGrowFailed = errors.New("alloc: grow failed")

	// ErrNoSpace indicates an engine exhausted its free lists and
	// growth either wasn't attempted or didn't produce a fitting block.
	ErrNoSpace = errors.New("alloc: no free cell large enough")

	// ErrBadRef indicates a pointer that doesn't belong to the engine
	// or dispatcher it was passed to.
	ErrBadRef = errors.New("alloc: bad reference")
)
