// Package calltree reconstructs caller/callee nesting from a linear
// edge sequence and attributes inclusive/exclusive cost to each edge.
package calltree

// SubCall is an aggregated caller→callee fact: the wall time spent in
// callee (Inclusive) and in callee alone, minus its direct children
// (Exclusive).
type SubCall struct {
	CallerAddr uint32
	CalleeAddr uint32
	Inclusive  uint64
	Exclusive  uint64
}
