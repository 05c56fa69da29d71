// Package session wires the trace-to-profile pipeline together: a
// single-threaded Driver owns the RunTime value for the duration of
// one sampling window, replacing the original program's pattern of a global
// mutable singleton (spec.md §9's "global mutable singleton" redesign
// flag — `_r`/`_options` become values threaded explicitly through the
// pipeline).
package session

import "time"

// DefaultDuration is the default sampling window (`-r`, spec.md §6).
const DefaultDuration = 1000 * time.Millisecond

// DefaultPort is the trace server's base port; the actual TCP connect
// port is this plus one (spec.md §6 `-s`).
const DefaultPort = 2332

// TransferSize is the block size the Driver reads Source bytes in
// before handing them to the decoder (spec.md §4.6).
const TransferSize = 4096

// Options is the program's configuration, either defaults or parsed
// from the command line (spec.md §6).
type Options struct {
	Demangle      bool
	File          string
	FileTerminate bool

	DeleteMaterial string

	ElfFile string

	DotFile     string
	ProfileFile string
	ChartFile   string
	ChartTop    int

	SampleDuration time.Duration

	AltAddr bool

	Port   int
	Server string

	Verbosity int
}

// DefaultOptions returns the options in effect before any flag is
// parsed.
func DefaultOptions() Options {
	return Options{
		Demangle:       true,
		SampleDuration: DefaultDuration,
		Port:           DefaultPort,
		Server:         "localhost",
		ChartTop:       10,
	}
}
