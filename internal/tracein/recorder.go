package tracein

import (
	"github.com/orbcode/orbprofile/internal/decoder"
	"github.com/orbcode/orbprofile/internal/symbols"
)

// entryFn labels the synthetic "caller" of the very first edge in a
// window, before any real function has been observed.
const entryFn = "Entry"

// interruptFn is the synthetic function name an exception entry
// switches the cursor to (spec.md §4.2).
const interruptFn = "INTERRUPT"

// Resolver is the narrow lookup contract the recorder needs. The
// recorder calls it directly rather than through names.Cache: spec.md
// §4.2 step 1 allows bypassing the Name Cache on this path because
// correctness of edge detection does not require caching.
type Resolver interface {
	Lookup(addr uint32, stripPrefix string) (symbols.Record, bool)
}

// cursor tracks the function the recorder currently believes it is
// in, between decoder callbacks.
type cursor struct {
	currentFile string
	currentFn   string
	workingAddr uint32
	lastAddr    uint32
	lastWasJump bool
	entered     bool // false until the first edge has been recorded
}

// Recorder is the Transition Recorder: it consumes decoder.Event
// callbacks and appends Edges whenever the instruction stream crosses
// a (file, function) boundary.
type Recorder struct {
	resolver    Resolver
	stripPrefix string
	cur         cursor
	edges       []Edge
}

// NewRecorder creates a Recorder that resolves addresses through
// resolver, stripping stripPrefix from reported file names.
func NewRecorder(resolver Resolver, stripPrefix string) *Recorder {
	return &Recorder{resolver: resolver, stripPrefix: stripPrefix}
}

// Edges returns the edge sequence recorded so far. The caller must
// not modify the returned slice.
func (r *Recorder) Edges() []Edge {
	return r.edges
}

// HandleEvent processes one decoder callback (spec.md §4.2).
func (r *Recorder) HandleEvent(ev decoder.Event) {
	if ev.StateChanged&decoder.EvChAddress != 0 {
		r.cur.workingAddr = ev.Addr
	}

	if ev.StateChanged&decoder.EvChExEntry != 0 {
		r.switchFunction(ev.InstructionCount, "", interruptFn)
		r.cur.lastWasJump = true
	}

	// EV_CH_EX_EXIT is intentionally a no-op: spec.md §9 leaves the
	// semantics of returning from an interrupt as an open question
	// pending trace corpora that exercise it.

	if ev.StateChanged&decoder.EvChENAtoms != 0 {
		n := int(ev.EAtoms) + int(ev.NAtoms)
		disposition := ev.Disposition
		for i := 0; i < n; i++ {
			r.step(ev.InstructionCount, disposition)
			disposition >>= 1
		}
	}
}

// step replays a single atom at the current working address.
func (r *Recorder) step(timestamp uint64, disposition uint32) {
	record, ok := r.resolver.Lookup(r.cur.workingAddr, r.stripPrefix)
	if !ok {
		// Address with no symbol: best-effort, not an error (spec.md
		// §7). Treat as no function change and advance conservatively.
		r.cur.lastWasJump = false
		r.cur.lastAddr = r.cur.workingAddr
		r.cur.workingAddr += 2
		return
	}

	if !r.cur.entered || record.File != r.cur.currentFile || record.Function != r.cur.currentFn {
		r.switchFunction(timestamp, record.File, record.Function)
	}

	r.cur.lastWasJump = false
	r.cur.lastAddr = r.cur.workingAddr

	inst := record.InstructionAt(r.cur.workingAddr)
	switch {
	case inst == nil:
		// No disassembly at this address: conservative default.
		r.cur.workingAddr += 2
	case inst.IsJump:
		if disposition&1 != 0 {
			r.cur.workingAddr = inst.JumpTarget
			r.cur.lastWasJump = true
		} else if inst.IsFourByte {
			r.cur.workingAddr += 4
		} else {
			r.cur.workingAddr += 2
		}
	case inst.IsFourByte:
		r.cur.workingAddr += 4
	default:
		r.cur.workingAddr += 2
	}
}

// switchFunction appends an Edge recording the transition into
// (file, fn) and updates the cursor to match.
func (r *Recorder) switchFunction(timestamp uint64, file, fn string) {
	srcFile, srcFn := r.cur.currentFile, r.cur.currentFn
	if !r.cur.entered {
		srcFile, srcFn = "", entryFn
	}

	r.edges = append(r.edges, Edge{
		Timestamp: timestamp,
		SrcAddr:   r.cur.lastAddr,
		SrcFile:   srcFile,
		SrcFn:     srcFn,
		DstAddr:   r.cur.workingAddr,
		DstFile:   file,
		DstFn:     fn,
		IsEntry:   r.cur.lastWasJump,
	})

	r.cur.currentFile = file
	r.cur.currentFn = fn
	r.cur.entered = true
}
