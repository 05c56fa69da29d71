// Command orbprofile decodes an ETM instruction trace against an ELF
// symbol table and emits a Graphviz call graph and/or a Callgrind
// profile for one sampling window.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/orbcode/orbprofile/internal/session"
	"github.com/orbcode/orbprofile/internal/source"
	"github.com/orbcode/orbprofile/internal/symbols"
)

// Exit codes, per spec.md §6.
const (
	exitOK            = 0
	exitUnknownOption = -1
	exitMissingOption = -2
	exitSocketFailure = -5 // stands in for -EIO: no portable EIO constant in the flag layer
)

// fs is built with ContinueOnError, not the package-level
// flag.CommandLine's default ExitOnError, because spec.md §6 assigns
// "-h" and "unknown option" different exit codes (0 and -1) from the
// flag package's own default of 2 for both.
var fs = flag.NewFlagSet("orbprofile", flag.ContinueOnError)

var (
	flagAltAddr   = fs.Bool("a", false, "select alternate ETM address encoding")
	flagNoDemang  = fs.Bool("D", false, "disable C++ name demangling")
	flagDelete    = fs.String("d", "", "`prefix` stripped from file paths in emitted output")
	flagFileTerm  = fs.Bool("E", false, "when reading a file, exit at EOF instead of waiting")
	flagElf       = fs.String("e", "", "`path` to ELF file for symbol resolution (required)")
	flagFile      = fs.String("f", "", "read trace from `path` instead of network")
	flagDuration  = fs.Int("r", int(session.DefaultDuration/time.Millisecond), "sampling window duration in `ms` (must be > 0)")
	flagServer    = fs.String("s", "localhost", "trace server `host[:port]` (actual connect port = given port + 1)")
	flagVerbosity = fs.Int("v", 0, "verbosity `0..3`: errors / warn / info / debug")
	flagDot       = fs.String("y", "", "emit Graphviz dot to `path`")
	flagProfile   = fs.String("z", "", "emit Callgrind profile to `path`")
	flagChart     = fs.String("g", "", "emit an SVG bar chart of top self costs to `path`")
	flagChartTop  = fs.Int("gn", 10, "`number` of functions shown in the chart")
)

func main() {
	fs.Usage = func() {
		w := fs.Output()
		fmt.Fprintf(w, "Usage: %s -e <elf> [flags]\n", os.Args[0])
		fs.PrintDefaults()
	}
	switch err := fs.Parse(os.Args[1:]); {
	case err == flag.ErrHelp:
		os.Exit(exitOK)
	case err != nil:
		os.Exit(exitUnknownOption)
	}
	if fs.NArg() > 0 {
		fs.Usage()
		os.Exit(exitUnknownOption)
	}

	if *flagElf == "" {
		fmt.Fprintln(os.Stderr, "orbprofile: -e <elf> is required")
		fs.Usage()
		os.Exit(exitMissingOption)
	}
	if *flagDuration <= 0 {
		fmt.Fprintln(os.Stderr, "orbprofile: -r must be > 0")
		os.Exit(exitMissingOption)
	}

	log.SetPrefix("orbprofile: ")
	log.SetFlags(0)

	opts := session.DefaultOptions()
	opts.Demangle = !*flagNoDemang
	opts.AltAddr = *flagAltAddr
	opts.DeleteMaterial = *flagDelete
	opts.File = *flagFile
	opts.FileTerminate = *flagFileTerm
	opts.ElfFile = *flagElf
	opts.SampleDuration = time.Duration(*flagDuration) * time.Millisecond
	opts.DotFile = *flagDot
	opts.ProfileFile = *flagProfile
	opts.ChartFile = *flagChart
	opts.ChartTop = *flagChartTop
	opts.Verbosity = *flagVerbosity
	opts.Server, opts.Port = splitHostPort(*flagServer, session.DefaultPort)

	resolver, err := symbols.Open(opts.ElfFile, opts.Demangle)
	if err != nil {
		log.Printf("opening ELF file: %v", err)
		os.Exit(exitMissingOption)
	}
	defer resolver.Close()

	cancel := make(chan struct{})
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		close(cancel)
	}()

	src, err := source.Open(source.Options{
		File:          opts.File,
		FileTerminate: opts.FileTerminate,
		Server:        opts.Server,
		Port:          opts.Port,
	})
	if err != nil {
		log.Printf("opening trace source: %v", err)
		os.Exit(exitSocketFailure)
	}

	if err := session.NewDriver(opts, resolver).Run(src, cancel); err != nil {
		log.Printf("session error: %v", err)
		os.Exit(exitSocketFailure)
	}
}

// splitHostPort parses `-s host[:port]`; the decoded port is the
// configured base port, matching session.Options.Port's role as the
// value source.Open adds one to before connecting.
func splitHostPort(s string, defaultPort int) (host string, port int) {
	if i := strings.LastIndex(s, ":"); i >= 0 {
		if p, err := strconv.Atoi(s[i+1:]); err == nil {
			return s[:i], p
		}
	}
	return s, defaultPort
}
