package graphviz

import (
	"bytes"
	"strings"
	"testing"

	"github.com/orbcode/orbprofile/internal/calltree"
	"github.com/orbcode/orbprofile/internal/names"
	"github.com/orbcode/orbprofile/internal/symbols"
)

type staticResolver map[uint32]symbols.Record

func (s staticResolver) Lookup(addr uint32, stripPrefix string) (symbols.Record, bool) {
	r, ok := s[addr]
	return r, ok
}

func TestWriteAggregatesRepeatedEdges(t *testing.T) {
	// S5 — Graphviz aggregation: three consecutive foo->bar calls and
	// one foo->baz call.
	resolver := staticResolver{
		1: {File: "a.c", Function: "foo"},
		2: {File: "a.c", Function: "bar"},
		3: {File: "a.c", Function: "baz"},
	}
	cache := names.NewCache(resolver, "")
	subcalls := []calltree.SubCall{
		{CallerAddr: 1, CalleeAddr: 2},
		{CallerAddr: 1, CalleeAddr: 2},
		{CallerAddr: 1, CalleeAddr: 2},
		{CallerAddr: 1, CalleeAddr: 3},
	}

	var buf bytes.Buffer
	if err := Write(&buf, subcalls, cache); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "foo -> bar [label=3 , weight=0.1;];\n") {
		t.Errorf("missing aggregated foo->bar edge:\n%s", out)
	}
	if !strings.Contains(out, "foo -> baz [label=1 , weight=0.1;];\n") {
		t.Errorf("missing foo->baz edge:\n%s", out)
	}
	if !strings.HasPrefix(out, header) {
		t.Errorf("missing literal header, got:\n%s", out)
	}
}
