// Package graphviz emits a clustered Graphviz "dot" call graph
// (spec.md §4.4).
package graphviz

import (
	"fmt"
	"io"
	"sort"

	"github.com/orbcode/orbprofile/internal/calltree"
	"github.com/orbcode/orbprofile/internal/graph"
	"github.com/orbcode/orbprofile/internal/names"
)

// header is the literal preamble every dot output begins with.
const header = "digraph calls\n{\n  overlap=false; splines=true; size=\"7.75,10.25\"; orientation=portrait; sep=0.1; nodesep=0.1;\n"

type endpoint struct {
	file, fn string
}

// Write emits the clustered call graph for subcalls, resolving node
// names and files through cache, to w.
func Write(w io.Writer, subcalls []calltree.SubCall, cache *names.Cache) error {
	b := graph.NewBuilder()
	endpoints := make([]endpoint, 0, len(subcalls)*2)

	for _, sc := range subcalls {
		caller := cache.LookupOrInsert(sc.CallerAddr)
		callee := cache.LookupOrInsert(sc.CalleeAddr)
		callerEP := endpoint{caller.Record.File, caller.Record.Function}
		calleeEP := endpoint{callee.Record.File, callee.Record.Function}
		b.AddEdge(callerEP, calleeEP)
		endpoints = append(endpoints, callerEP, calleeEP)
	}

	g := b.Graph()
	bg := graph.MakeBiGraph(g)
	keys := b.Keys()

	if _, err := io.WriteString(w, header); err != nil {
		return err
	}

	// Destination-file pass: cluster every node that is called by at
	// least one edge, grouped by its own file.
	if err := writeClusters(w, keys, func(i int) bool { return len(bg.In(i)) > 0 }); err != nil {
		return err
	}
	// Source-file pass: cluster every node that calls at least one
	// other node, grouped by its own file.
	if err := writeClusters(w, keys, func(i int) bool { return len(g.Out(i)) > 0 }); err != nil {
		return err
	}

	if err := writeEdges(w, endpoints); err != nil {
		return err
	}

	_, err := io.WriteString(w, "}\n")
	return err
}

func writeClusters(w io.Writer, keys []interface{}, include func(i int) bool) error {
	byFile := map[string]map[string]bool{}
	var fileOrder []string
	for i, k := range keys {
		if !include(i) {
			continue
		}
		ep := k.(endpoint)
		if byFile[ep.file] == nil {
			byFile[ep.file] = map[string]bool{}
			fileOrder = append(fileOrder, ep.file)
		}
		byFile[ep.file][ep.fn] = true
	}
	sort.Strings(fileOrder)

	for _, file := range fileOrder {
		fns := make([]string, 0, len(byFile[file]))
		for fn := range byFile[file] {
			fns = append(fns, fn)
		}
		sort.Strings(fns)

		if _, err := fmt.Fprintf(w, "  subgraph \"cluster_%s\" { label=\"%s\"; bgcolor=lightgrey;", file, file); err != nil {
			return err
		}
		for _, fn := range fns {
			if _, err := fmt.Fprintf(w, " %s [style=filled, fillcolor=white];", fn); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, " }\n"); err != nil {
			return err
		}
	}
	return nil
}

// writeEdges aggregates consecutive identical (src, dst) pairs after
// sorting by (src file, src fn, dst file, dst fn), per spec.md §4.4.
func writeEdges(w io.Writer, endpoints []endpoint) error {
	type callEdge struct{ src, dst endpoint }

	edges := make([]callEdge, 0, len(endpoints)/2)
	for i := 0; i+1 < len(endpoints); i += 2 {
		edges = append(edges, callEdge{src: endpoints[i], dst: endpoints[i+1]})
	}

	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.src.file != b.src.file {
			return a.src.file < b.src.file
		}
		if a.src.fn != b.src.fn {
			return a.src.fn < b.src.fn
		}
		if a.dst.file != b.dst.file {
			return a.dst.file < b.dst.file
		}
		return a.dst.fn < b.dst.fn
	})

	i := 0
	for i < len(edges) {
		j := i
		for j < len(edges) && edges[j] == edges[i] {
			j++
		}
		if _, err := fmt.Fprintf(w, "%s -> %s [label=%d , weight=0.1;];\n", edges[i].src.fn, edges[i].dst.fn, j-i); err != nil {
			return err
		}
		i = j
	}
	return nil
}
