// Package fs formats human-readable labels for the regions an engine
// maps as it grows. It once named on-disk segment files; the regions
// are anonymous memory now, but callers still want a stable name per
// grown unit for logging and diagnostics.
package fs

import "fmt"

// Label names the nth region an engine identified by base has mapped.
func Label(base string, id int) string {
	return fmt.Sprintf("%s.%03d", base, id)
}
