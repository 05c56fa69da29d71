package session

import (
	"io"
	"testing"
	"time"

	"github.com/orbcode/orbprofile/internal/source"
	"github.com/orbcode/orbprofile/internal/symbols"
)

// blockingReadCloser never returns from Read until closed, standing in
// for a network source that simply has nothing to say yet.
type blockingReadCloser struct {
	closed chan struct{}
}

func newBlockingReadCloser() *blockingReadCloser {
	return &blockingReadCloser{closed: make(chan struct{})}
}

func (b *blockingReadCloser) Read(p []byte) (int, error) {
	<-b.closed
	return 0, io.EOF
}

func (b *blockingReadCloser) Close() error {
	select {
	case <-b.closed:
	default:
		close(b.closed)
	}
	return nil
}

func TestDriverRunCancelAbandonsWindow(t *testing.T) {
	opts := DefaultOptions()
	opts.ElfFile = "unused.elf"
	opts.ProfileFile = "" // nothing to write; cancellation must not even try

	// A nil resolver is safe here: cancellation fires before the
	// driver ever calls into it.
	var resolver *symbols.Resolver
	d := NewDriver(opts, resolver)

	src := &source.Source{ReadCloser: newBlockingReadCloser()}
	cancel := make(chan struct{})
	close(cancel)

	done := make(chan error, 1)
	go func() { done <- d.Run(src, cancel) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel was closed")
	}
}
