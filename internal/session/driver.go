package session

import (
	"bytes"
	"io"
	"log"
	"os"
	"time"

	"github.com/orbcode/orbprofile/internal/calltree"
	"github.com/orbcode/orbprofile/internal/callgrind"
	"github.com/orbcode/orbprofile/internal/chart"
	"github.com/orbcode/orbprofile/internal/decoder"
	"github.com/orbcode/orbprofile/internal/graphviz"
	"github.com/orbcode/orbprofile/internal/names"
	"github.com/orbcode/orbprofile/internal/source"
	"github.com/orbcode/orbprofile/internal/stats"
	"github.com/orbcode/orbprofile/internal/symbols"
	"github.com/orbcode/orbprofile/internal/tracein"
)

// Driver is the single-threaded session driver (spec.md §4.6): it
// owns the RunTime-equivalent state for one sampling window — the
// Name Cache and the Transition Recorder — pumps Source bytes through
// the decoder, and on window end runs the Tree Walker and both
// emitters. It replaces the original program's global `_r`/`_options`
// singleton (spec.md §9) with a value created fresh per window.
type Driver struct {
	opts     Options
	resolver *symbols.Resolver
	cache    *names.Cache
	recorder *tracein.Recorder
}

// NewDriver prepares a Driver for one sampling window against
// resolver, which must already have the target ELF file open.
func NewDriver(opts Options, resolver *symbols.Resolver) *Driver {
	return &Driver{
		opts:     opts,
		resolver: resolver,
		cache:    names.NewCache(resolver, opts.DeleteMaterial),
		recorder: tracein.NewRecorder(resolver, opts.DeleteMaterial),
	}
}

type readResult struct {
	data []byte
	err  error
}

// Run pumps src through the decoder until the sampling window ends —
// either the configured duration elapses after the first non-empty
// block, or the input stream terminates — then reconstructs the call
// tree and invokes the emitters. If cancel is closed first, the
// window is abandoned and no emission happens at all (spec.md §5
// cancellation: "no partial files are left behind").
//
// The single goroutine below is the one concession to concurrency
// spec.md §5 allows: blocking reads on the Source must not block the
// 1 ms driver tick, so one pump goroutine feeds blocks over a
// channel. All core state (cache, recorder) is read and written only
// from this function, on one goroutine — single-writer, as required.
func (d *Driver) Run(src *source.Source, cancel <-chan struct{}) error {
	defer src.Close()

	blocks := make(chan readResult, 1)
	go func() {
		for {
			buf := make([]byte, TransferSize)
			n, err := src.Read(buf)
			if n > 0 {
				blocks <- readResult{data: buf[:n]}
			}
			if err != nil {
				blocks <- readResult{err: err}
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	var deadline time.Time
	sampling := false

	for {
		select {
		case <-cancel:
			return nil

		case r := <-blocks:
			if len(r.data) > 0 {
				if !sampling {
					sampling = true
					deadline = time.Now().Add(d.opts.SampleDuration)
				}
				if err := decoder.PumpWithOptions(bytes.NewReader(r.data), TransferSize, d.opts.AltAddr, d.recorder.HandleEvent); err != nil {
					log.Printf("session: decode error: %v", err)
				}
			}
			if r.err != nil {
				if r.err == io.EOF && !src.TerminateOnEOF {
					// Wait out the rest of the window instead of
					// ending now (`-E` not given).
					continue
				}
				return d.emit()
			}

		case <-ticker.C:
			if sampling && !time.Now().Before(deadline) {
				return d.emit()
			}
		}
	}
}

// emit runs the Tree Walker and both emitters. Per spec.md §7,
// output-file failures are logged and absorbed, not propagated: the
// process still exits cleanly.
func (d *Driver) emit() error {
	edges := d.recorder.Edges()
	subcalls := calltree.NewWalker(edges).Walk()

	if d.opts.ProfileFile != "" {
		if err := writeFile(d.opts.ProfileFile, func(w io.Writer) error {
			return callgrind.Write(w, edges, subcalls, d.cache, d.opts.ElfFile, d.opts.DeleteMaterial)
		}); err != nil {
			log.Printf("session: writing callgrind profile: %v", err)
		}
	}

	if d.opts.DotFile != "" {
		if err := writeFile(d.opts.DotFile, func(w io.Writer) error {
			return graphviz.Write(w, subcalls, d.cache)
		}); err != nil {
			log.Printf("session: writing dot graph: %v", err)
		}
	}

	summary := stats.Summarize(subcalls)
	if d.opts.Verbosity >= 2 {
		log.Printf("session: %d functions, self cost mean %.1f stddev %.1f", len(summary.Top), summary.Mean, summary.StdDev)
	}

	if d.opts.ChartFile != "" {
		if err := writeFile(d.opts.ChartFile, func(w io.Writer) error {
			chart.Write(w, summary, d.cache, d.opts.ChartTop)
			return nil
		}); err != nil {
			log.Printf("session: writing chart: %v", err)
		}
	}

	return nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return fn(f)
}
