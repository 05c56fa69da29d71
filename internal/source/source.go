// Package source opens the byte stream the ETM decoder pumps: either
// a TCP connection to a trace distribution server or a local file
// (spec.md §4.6, §6 `-f`/`-s`).
package source

import (
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"time"
)

// Options configures where trace bytes come from.
type Options struct {
	// File, if non-empty, is read instead of connecting to Server.
	File string
	// FileTerminate makes EOF on File end the window instead of
	// waiting for more bytes (`-E`).
	FileTerminate bool

	Server string
	Port   int
}

// Source is an opened byte stream plus whether reaching EOF on it
// should end the sampling window.
type Source struct {
	io.ReadCloser
	TerminateOnEOF bool
}

// retryDelay is how long Open waits between failed connection
// attempts, per spec.md §7 ("back off one second and retry").
const retryDelay = time.Second

// Open connects to opts.Server (retrying network failures once a
// second, forever) or opens opts.File, returning an error if the file
// cannot be opened (the command exits on that error).
func Open(opts Options) (*Source, error) {
	if opts.File != "" {
		f, err := os.Open(opts.File)
		if err != nil {
			return nil, fmt.Errorf("source: open %s: %w", opts.File, err)
		}
		return &Source{ReadCloser: f, TerminateOnEOF: opts.FileTerminate}, nil
	}

	addr := fmt.Sprintf("%s:%d", opts.Server, opts.Port+1)
	for {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			// A dropped network connection always ends the window
			// immediately; there is no "wait out the rest of the
			// window" option once the stream itself is gone.
			return &Source{ReadCloser: conn, TerminateOnEOF: true}, nil
		}
		log.Printf("source: connect %s: %v, retrying in %s", addr, err, retryDelay)
		time.Sleep(retryDelay)
	}
}
