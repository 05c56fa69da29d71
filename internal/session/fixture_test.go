package session

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"github.com/orbcode/orbprofile/internal/calltree"
	"github.com/orbcode/orbprofile/internal/callgrind"
	"github.com/orbcode/orbprofile/internal/decoder"
	"github.com/orbcode/orbprofile/internal/graphviz"
	"github.com/orbcode/orbprofile/internal/names"
	"github.com/orbcode/orbprofile/internal/symbols"
	"github.com/orbcode/orbprofile/internal/tracein"
)

type fixtureResolver map[uint32]symbols.Record

func (r fixtureResolver) Lookup(addr uint32, stripPrefix string) (symbols.Record, bool) {
	rec, ok := r[addr]
	return rec, ok
}

// parseSymbols reads "addr file function line [jump=<target>[,four]]"
// rows, one per non-blank line, into a fixtureResolver. The optional
// jump field gives the record a single disassembled instruction at
// addr classified as a taken branch to target — enough for the
// recorder's lastWasJump bookkeeping to mark the following transition
// as a call-in (IsEntry=true) rather than a stray close.
func parseSymbols(t *testing.T, data []byte) fixtureResolver {
	t.Helper()
	resolver := fixtureResolver{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 && len(fields) != 5 {
			t.Fatalf("symbols fixture: bad line %q", line)
		}
		addr, err := strconv.ParseUint(strings.TrimPrefix(fields[0], "0x"), 16, 32)
		if err != nil {
			t.Fatalf("symbols fixture: bad addr in %q: %v", line, err)
		}
		lineNo, err := strconv.ParseUint(fields[3], 10, 32)
		if err != nil {
			t.Fatalf("symbols fixture: bad line number in %q: %v", line, err)
		}
		rec := symbols.Record{
			Addr:     uint32(addr),
			File:     fields[1],
			Function: fields[2],
			Line:     uint32(lineNo),
		}
		if len(fields) == 5 {
			spec := strings.TrimPrefix(fields[4], "jump=")
			parts := strings.Split(spec, ",")
			target, err := strconv.ParseUint(strings.TrimPrefix(parts[0], "0x"), 16, 32)
			if err != nil {
				t.Fatalf("symbols fixture: bad jump target in %q: %v", line, err)
			}
			inst := symbols.Instruction{Addr: uint32(addr), IsJump: true, JumpTarget: uint32(target)}
			if len(parts) > 1 && parts[1] == "four" {
				inst.IsFourByte = true
			}
			rec.Assembly = []symbols.Instruction{inst}
		}
		resolver[uint32(addr)] = rec
	}
	return resolver
}

// TestEndToEndFixture drives decoder.Pump, tracein.Recorder,
// calltree.Walker and both emitters from a single txtar archive —
// a "symbols" section (the resolver's static answers, with an
// optional jump= instruction per row), a "trace" section
// (decoder.Pump's text line format) and "want-callgrind"/"want-dot"
// sections (substrings the corresponding emitter's output must
// contain) — the same multi-file-fixture-per-archive shape the
// teacher's txtar-based test helpers use elsewhere in the pack.
//
// The trace replays: main (0x100) takes a call branch into helper
// (0x200); helper's own instruction is not disassembled as a branch,
// so the recorder's lastWasJump bookkeeping is false going into the
// next step; the trace then reports address 0x104 directly (as a
// real ETM indirect-return waypoint would), which the recorder
// therefore records as a close rather than another call-in. That
// produces exactly one call edge and one matching return edge, and
// so exactly one SubCall for main -> helper.
func TestEndToEndFixture(t *testing.T) {
	ar := txtar.Parse([]byte(`
-- symbols --
0x100 main.c main 10 jump=0x200
0x200 lib.c  helper 20
0x104 main.c main 11

-- trace --
addr=0x100 eatoms=0 natoms=1 disposition=0x1 icount=100 exentry=0 exexit=0
eatoms=0 natoms=1 disposition=0x0 icount=200 exentry=0 exexit=0
addr=0x104 eatoms=0 natoms=1 disposition=0x0 icount=300 exentry=0 exexit=0

-- want-callgrind --
summary:
fn=
calls=

-- want-dot --
digraph
helper
`))

	var symbolsData, traceData, wantCallgrind, wantDot []byte
	for _, f := range ar.Files {
		switch f.Name {
		case "symbols":
			symbolsData = f.Data
		case "trace":
			traceData = f.Data
		case "want-callgrind":
			wantCallgrind = f.Data
		case "want-dot":
			wantDot = f.Data
		}
	}

	resolver := parseSymbols(t, symbolsData)
	recorder := tracein.NewRecorder(resolver, "")
	if err := decoder.Pump(bytes.NewReader(traceData), 0, recorder.HandleEvent); err != nil {
		t.Fatalf("decoder.Pump: %v", err)
	}

	edges := recorder.Edges()
	if len(edges) == 0 {
		t.Fatal("fixture produced no edges")
	}
	subcalls := calltree.NewWalker(edges).Walk()
	if len(subcalls) != 1 {
		t.Fatalf("got %d subcalls, want 1 (main -> helper): %+v", len(subcalls), subcalls)
	}
	if subcalls[0].CalleeAddr != 0x200 {
		t.Fatalf("subcall callee addr = %#x, want 0x200 (helper)", subcalls[0].CalleeAddr)
	}

	cache := names.NewCache(resolver, "")
	var cgOut bytes.Buffer
	if err := callgrind.Write(&cgOut, edges, subcalls, cache, "/bin/target.elf", ""); err != nil {
		t.Fatalf("callgrind.Write: %v", err)
	}
	for _, want := range strings.Fields(string(wantCallgrind)) {
		if !strings.Contains(cgOut.String(), want) {
			t.Errorf("callgrind output missing %q:\n%s", want, cgOut.String())
		}
	}

	cache2 := names.NewCache(resolver, "")
	var dotOut bytes.Buffer
	if err := graphviz.Write(&dotOut, subcalls, cache2); err != nil {
		t.Fatalf("graphviz.Write: %v", err)
	}
	for _, want := range strings.Fields(string(wantDot)) {
		if !strings.Contains(dotOut.String(), want) {
			t.Errorf("dot output missing %q:\n%s", want, dotOut.String())
		}
	}
}
