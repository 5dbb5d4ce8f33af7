package graph

import "fmt"

// ObjectName returns the build-dir-relative object file produced for the
// idx-th source of a compiled target. Both the direct builder and the
// generator backends use this naming so they can share artifacts.
func ObjectName(target string, idx int) string {
	return fmt.Sprintf("%s_%d.o", target, idx)
}
