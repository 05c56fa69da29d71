// Package callgrind emits a Callgrind-format text profile consumable
// by KCacheGrind (spec.md §4.5).
package callgrind

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/orbcode/orbprofile/internal/calltree"
	"github.com/orbcode/orbprofile/internal/names"
	"github.com/orbcode/orbprofile/internal/tracein"
)

// Write emits the Callgrind text for subcalls against cache, to w.
// edges supplies the window's first/last timestamps for the summary
// line; elfPath and deletePrefix are the `-e`/`-d` configuration.
func Write(w io.Writer, edges []tracein.Edge, subcalls []calltree.SubCall, cache *names.Cache, elfPath, deletePrefix string) error {
	var summary uint64
	if len(edges) > 0 {
		summary = edges[len(edges)-1].Timestamp - edges[0].Timestamp
	}

	if _, err := fmt.Fprintf(w,
		"# callgrind format\npositions: line instr\nevent: Cyc : Processor Clock Cycles\nevents: Cyc\nsummary: %d\nob=%s\n",
		summary, elfPath); err != nil {
		return err
	}

	sorted := sortByCalleeThenCaller(subcalls)

	if err := writeSelfCosts(w, sorted, cache, deletePrefix); err != nil {
		return err
	}
	return writeCalls(w, sorted, cache, deletePrefix)
}

func sortByCalleeThenCaller(subcalls []calltree.SubCall) []calltree.SubCall {
	sorted := append([]calltree.SubCall(nil), subcalls...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].CalleeAddr != sorted[j].CalleeAddr {
			return sorted[i].CalleeAddr < sorted[j].CalleeAddr
		}
		return sorted[i].CallerAddr < sorted[j].CallerAddr
	})
	return sorted
}

// writeSelfCosts is Pass 1 (spec.md §4.5): per-function self costs.
func writeSelfCosts(w io.Writer, sorted []calltree.SubCall, cache *names.Cache, deletePrefix string) error {
	cache.ResetSeen()

	i := 0
	for i < len(sorted) {
		j := i
		var myCost uint64
		for j < len(sorted) && sorted[j].CalleeAddr == sorted[i].CalleeAddr {
			myCost += sorted[j].Exclusive
			j++
		}

		callee := cache.LookupOrInsert(sorted[i].CalleeAddr)
		if !callee.Seen {
			if err := writeFull(w, callee, sorted[i].CalleeAddr, deletePrefix, myCost); err != nil {
				return err
			}
		}
		i = j
	}
	return nil
}

// writeCalls is Pass 2 (spec.md §4.5): calls.
func writeCalls(w io.Writer, sorted []calltree.SubCall, cache *names.Cache, deletePrefix string) error {
	cache.ResetSeen()

	i := 0
	for i < len(sorted) {
		j := i
		var totalCost, myCost uint64
		for j < len(sorted) && sorted[j].CalleeAddr == sorted[i].CalleeAddr && sorted[j].CallerAddr == sorted[i].CallerAddr {
			totalCost += sorted[j].Inclusive
			myCost += sorted[j].Exclusive
			j++
		}
		totalCalls := j - i
		calleeAddr, callerAddr := sorted[i].CalleeAddr, sorted[i].CallerAddr

		callee := cache.LookupOrInsert(calleeAddr)
		if !callee.Seen {
			if err := writeFull(w, callee, calleeAddr, deletePrefix, myCost); err != nil {
				return err
			}
		}

		caller := cache.LookupOrInsert(callerAddr)
		if !caller.Seen {
			// The caller's own exclusive cost is not attributable
			// here without double-counting it against its own self
			// cost row from Pass 1, hence the literal 1.
			if err := writeFull(w, caller, callerAddr, deletePrefix, 1); err != nil {
				return err
			}
		} else {
			if err := writeShort(w, caller); err != nil {
				return err
			}
		}

		if _, err := fmt.Fprintf(w, "cfi=(%d)\ncfn=(%d)\ncalls=%d 0x%08x %d\n0x%08x %d %d\n",
			callee.Index, callee.Index, totalCalls, calleeAddr, callee.Record.Line,
			callerAddr, caller.Record.Line, totalCost); err != nil {
			return err
		}

		i = j
	}
	return nil
}

func writeFull(w io.Writer, n *names.InternedName, addr uint32, deletePrefix string, cost uint64) error {
	file := strings.TrimPrefix(n.Record.File, deletePrefix)
	if _, err := fmt.Fprintf(w, "fl=(%d) %s\nfn=(%d) %s\n0x%08x %d %d\n",
		n.Index, file, n.Index, n.Record.Function, addr, n.Record.Line, cost); err != nil {
		return err
	}
	n.Seen = true
	return nil
}

func writeShort(w io.Writer, n *names.InternedName) error {
	_, err := fmt.Fprintf(w, "fl=(%d)\nfn=(%d)\n", n.Index, n.Index)
	return err
}
