// Package decoder defines the event shape the ETM consumer is driven
// by (spec.md §6, "Consumed decoder interface") and a reference
// implementation that turns a line-oriented byte stream into that
// event shape. The real ETM packet grammar is hardware-specific and
// out of scope for this repository; Pump exists so the pipeline has
// something genuine to run end to end in file-replay mode and in
// tests.
package decoder

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// State-change bits carried on Event.StateChanged.
const (
	EvChAddress uint32 = 1 << iota
	EvChENAtoms
	EvChExEntry
	EvChExExit
)

// Event is one decoder callback: a state-changed bitmask plus the CPU
// state fields the recorder reads.
type Event struct {
	StateChanged     uint32
	Addr             uint32
	EAtoms           uint8
	NAtoms           uint8
	Disposition      uint32
	InstructionCount uint64
}

// Pump reads lines of the form
//
//	addr=<hex> eatoms=<n> natoms=<n> disposition=<hex> icount=<n> exentry=<0|1> exexit=<0|1>
//
// from r, in blocks of at most blockSize bytes, and invokes onEvent
// once per line. A short final line with no trailing newline is still
// delivered. This is the reference decoder adapter: a real ETM
// decoder would call onEvent directly from its own packet state
// machine instead of parsing text.
func Pump(r io.Reader, blockSize int, onEvent func(Event)) error {
	return PumpWithOptions(r, blockSize, false, onEvent)
}

// PumpWithOptions is Pump with altAddr selecting the alternate ETM
// address encoding (`-a`): addresses on the wire are halfword-packed
// (the low bit of a Thumb instruction address is implicit) and must
// be shifted left one bit to recover the byte address the symbol
// resolver expects.
func PumpWithOptions(r io.Reader, blockSize int, altAddr bool, onEvent func(Event)) error {
	if blockSize <= 0 {
		blockSize = 4096
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, blockSize), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		ev, err := parseLine(line)
		if err != nil {
			return fmt.Errorf("decoder: %w", err)
		}
		if altAddr && ev.StateChanged&EvChAddress != 0 {
			ev.Addr <<= 1
		}
		onEvent(ev)
	}
	return sc.Err()
}

func parseLine(line string) (Event, error) {
	var ev Event
	var haveAddr, haveAtoms bool
	for _, field := range strings.Fields(line) {
		kv := strings.SplitN(field, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key, val := kv[0], kv[1]
		switch key {
		case "addr":
			n, err := strconv.ParseUint(strings.TrimPrefix(val, "0x"), 16, 32)
			if err != nil {
				return Event{}, err
			}
			ev.Addr = uint32(n)
			haveAddr = true
		case "eatoms":
			n, err := strconv.ParseUint(val, 10, 8)
			if err != nil {
				return Event{}, err
			}
			ev.EAtoms = uint8(n)
			haveAtoms = true
		case "natoms":
			n, err := strconv.ParseUint(val, 10, 8)
			if err != nil {
				return Event{}, err
			}
			ev.NAtoms = uint8(n)
			haveAtoms = true
		case "disposition":
			n, err := strconv.ParseUint(strings.TrimPrefix(val, "0x"), 16, 32)
			if err != nil {
				return Event{}, err
			}
			ev.Disposition = uint32(n)
		case "icount":
			n, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return Event{}, err
			}
			ev.InstructionCount = n
		case "exentry":
			if val == "1" {
				ev.StateChanged |= EvChExEntry
			}
		case "exexit":
			if val == "1" {
				ev.StateChanged |= EvChExExit
			}
		}
	}
	if haveAddr {
		ev.StateChanged |= EvChAddress
	}
	if haveAtoms {
		ev.StateChanged |= EvChENAtoms
	}
	return ev, nil
}
