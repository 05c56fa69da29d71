package decoder

import (
	"strings"
	"testing"
)

func TestPumpParsesFields(t *testing.T) {
	in := "addr=0x1000 eatoms=2 natoms=1 disposition=0x3 icount=7 exentry=1 exexit=0\n"
	var got []Event
	if err := Pump(strings.NewReader(in), 0, func(ev Event) { got = append(got, ev) }); err != nil {
		t.Fatalf("Pump: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	ev := got[0]
	if ev.Addr != 0x1000 || ev.EAtoms != 2 || ev.NAtoms != 1 || ev.Disposition != 3 || ev.InstructionCount != 7 {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.StateChanged&EvChAddress == 0 || ev.StateChanged&EvChENAtoms == 0 || ev.StateChanged&EvChExEntry == 0 {
		t.Fatalf("unexpected StateChanged: %#x", ev.StateChanged)
	}
	if ev.StateChanged&EvChExExit != 0 {
		t.Fatalf("exexit should not be set")
	}
}

func TestPumpWithOptionsAltAddrShifts(t *testing.T) {
	in := "addr=0x0800\n"
	var got Event
	err := PumpWithOptions(strings.NewReader(in), 0, true, func(ev Event) { got = ev })
	if err != nil {
		t.Fatalf("PumpWithOptions: %v", err)
	}
	if got.Addr != 0x1000 {
		t.Fatalf("altAddr shift: got %#x, want %#x", got.Addr, 0x1000)
	}
}

func TestPumpIgnoresBlankLines(t *testing.T) {
	in := "\n  \naddr=0x4\n\n"
	n := 0
	if err := Pump(strings.NewReader(in), 0, func(Event) { n++ }); err != nil {
		t.Fatalf("Pump: %v", err)
	}
	if n != 1 {
		t.Fatalf("got %d events, want 1", n)
	}
}
