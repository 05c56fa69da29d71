// Package stats computes a summary of self cost per function over a
// sampling window, purely observational (it does not affect the
// Callgrind or Graphviz output).
package stats

import (
	"sort"

	gmstats "github.com/aclements/go-moremath/stats"

	"github.com/orbcode/orbprofile/internal/calltree"
)

// FunctionCost is one function's total self cost across the window.
type FunctionCost struct {
	Addr uint32
	Self uint64
}

// Summary is the result of summarizing a SubCall list.
type Summary struct {
	Mean   float64
	StdDev float64
	Top    []FunctionCost // sorted by Self, descending
}

// Summarize aggregates exclusive cost per callee address and computes
// mean/standard deviation over the resulting distribution using
// github.com/aclements/go-moremath/stats, already a dependency of the
// teacher's benchplot/buildstats tooling.
func Summarize(subcalls []calltree.SubCall) Summary {
	byAddr := map[uint32]uint64{}
	for _, sc := range subcalls {
		byAddr[sc.CalleeAddr] += sc.Exclusive
	}

	costs := make([]FunctionCost, 0, len(byAddr))
	xs := make([]float64, 0, len(byAddr))
	for addr, self := range byAddr {
		costs = append(costs, FunctionCost{Addr: addr, Self: self})
		xs = append(xs, float64(self))
	}
	sort.Slice(costs, func(i, j int) bool { return costs[i].Self > costs[j].Self })

	var summary Summary
	summary.Top = costs
	if len(xs) > 0 {
		sample := gmstats.Sample{Xs: xs}
		summary.Mean = sample.Mean()
		summary.StdDev = sample.StdDev()
	}
	return summary
}
