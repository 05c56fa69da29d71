package calltree

import "github.com/orbcode/orbprofile/internal/tracein"

// Walker reconstructs the SubCall list from a window's edge sequence,
// treating IsEntry edges as opens and non-entry edges as the matching
// close (spec.md §4.3).
type Walker struct {
	edges    []tracein.Edge
	psn      int
	subcalls []SubCall
}

// NewWalker prepares a Walker over edges. The Walker keeps a reference
// to the edges slice for its own lifetime and never modifies it.
func NewWalker(edges []tracein.Edge) *Walker {
	return &Walker{edges: edges}
}

// Walk runs the reconstruction once and returns the SubCall list in
// emission order (innermost calls first within a nest, per sibling in
// trace order).
func (w *Walker) Walk() []SubCall {
	w.psn = 0
	w.subcalls = nil
	for w.psn < len(w.edges) {
		before := w.psn
		w.traverse(0)
		if w.psn == before {
			break
		}
	}
	return w.subcalls
}

// traverse consumes one nested call starting at w.psn and returns its
// inclusive cost, or 0 for a stray close or a truncated call that was
// never matched with a return.
//
// At layer 0 it first drains every leading unmatched close: a batch
// sampling window can begin mid-burst with more than one dangling
// return before any call has been observed (spec.md §9 leaves this an
// open question; draining all of them, not just one, is the choice
// made here).
func (w *Walker) traverse(layer int) uint64 {
	edges := w.edges

	if layer == 0 {
		for w.psn < len(edges) && !edges[w.psn].IsEntry {
			w.psn++
		}
		if w.psn >= len(edges) {
			return 0
		}
	}

	start := w.psn
	w.psn++ // consume the open edge

	var childTotal uint64
	for w.psn < len(edges) && edges[w.psn].IsEntry {
		childTotal += w.traverse(layer + 1)
	}

	if w.psn >= len(edges) {
		// Decoder truncation: the call-in was never closed. Whatever
		// was accumulated for its children is discarded; no SubCall
		// is emitted for the unclosed call itself.
		return 0
	}

	closeEdge := edges[w.psn]
	inclusive := closeEdge.Timestamp - edges[start].Timestamp
	w.subcalls = append(w.subcalls, SubCall{
		CallerAddr: closeEdge.DstAddr,
		CalleeAddr: closeEdge.SrcAddr,
		Inclusive:  inclusive,
		Exclusive:  inclusive - childTotal,
	})
	w.psn++

	return inclusive
}
