// Package graph is a minimal directed-graph abstraction used by the
// Graphviz emitter to compute reverse adjacency for its source-file
// clustering pass, adapted from the teacher's
// obj/internal/graph package (originally used to render basic-block
// control-flow graphs; here the nodes are call-graph (file, function)
// pairs instead of basic blocks).
package graph

// Graph represents a directed graph. Nodes are densely numbered
// starting at 0.
type Graph interface {
	// NumNodes returns the number of nodes in this graph.
	NumNodes() int

	// Out returns the nodes to which node i points. A node may point
	// to the same successor more than once; Out does not dedup.
	Out(i int) []int
}

// BiGraph extends Graph with reverse adjacency.
type BiGraph interface {
	Graph

	// In returns the nodes which point to node i.
	In(i int) []int
}

// MakeBiGraph constructs a BiGraph from a unidirectional Graph by
// inverting its out-edges once. If g is already a BiGraph, it is
// returned unchanged.
func MakeBiGraph(g Graph) BiGraph {
	if bg, ok := g.(BiGraph); ok {
		return bg
	}

	preds := make([][]int, g.NumNodes())
	for i := range preds {
		for _, j := range g.Out(i) {
			preds[j] = append(preds[j], i)
		}
	}

	return &bigraph{g, preds}
}

type bigraph struct {
	Graph
	preds [][]int
}

func (b *bigraph) In(i int) []int {
	return b.preds[i]
}

// Builder accumulates (from, to) node pairs under caller-supplied keys
// and produces a dense Graph once done, assigning each distinct key
// the node number of its first appearance.
type Builder struct {
	index map[interface{}]int
	keys  []interface{}
	out   [][]int
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{index: make(map[interface{}]int)}
}

// Node returns the dense node number for key, assigning a new one if
// key has not been seen before.
func (b *Builder) Node(key interface{}) int {
	if i, ok := b.index[key]; ok {
		return i
	}
	i := len(b.keys)
	b.index[key] = i
	b.keys = append(b.keys, key)
	b.out = append(b.out, nil)
	return i
}

// AddEdge records an edge from the node for fromKey to the node for
// toKey, creating either node as needed.
func (b *Builder) AddEdge(fromKey, toKey interface{}) {
	from := b.Node(fromKey)
	to := b.Node(toKey)
	b.out[from] = append(b.out[from], to)
}

// Keys returns the keys in node-number order.
func (b *Builder) Keys() []interface{} {
	return b.keys
}

// Graph returns the built Graph. The Builder must not be modified
// afterward.
func (b *Builder) Graph() Graph {
	return intGraph(b.out)
}

type intGraph [][]int

func (g intGraph) NumNodes() int   { return len(g) }
func (g intGraph) Out(i int) []int { return g[i] }
