package names

import (
	"testing"

	"github.com/orbcode/orbprofile/internal/symbols"
)

type fakeResolver struct{ calls int }

func (f *fakeResolver) Lookup(addr uint32, stripPrefix string) (symbols.Record, bool) {
	f.calls++
	return symbols.Record{Addr: addr}, true
}

func TestLookupOrInsertDeterministic(t *testing.T) {
	// S4 — name cache determinism.
	r := &fakeResolver{}
	c := NewCache(r, "")

	addrs := []uint32{0x100, 0x200, 0x100, 0x300, 0x200}
	want := []uint32{0, 1, 0, 2, 1}

	for i, a := range addrs {
		got := c.LookupOrInsert(a).Index
		if got != want[i] {
			t.Errorf("lookup %d (addr %#x): got index %d, want %d", i, a, got, want[i])
		}
	}
	if r.calls != 3 {
		t.Errorf("resolver called %d times, want 3 (one per distinct address)", r.calls)
	}
}

func TestResetSeen(t *testing.T) {
	r := &fakeResolver{}
	c := NewCache(r, "")
	e := c.LookupOrInsert(0x10)
	e.Seen = true
	c.ResetSeen()
	if e.Seen {
		t.Error("ResetSeen did not clear Seen")
	}
}
