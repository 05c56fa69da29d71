package symbols

import (
	"debug/dwarf"
	"debug/elf"
	"fmt"
	"sort"
	"strings"

	"github.com/ianlancetaylor/demangle"
)

// Resolver answers (file, function, line, assembly) for an address
// against one ELF binary. It is the symbol resolver spec.md describes
// as an external collaborator of the core pipeline; this package gives
// it a concrete, wired implementation on top of debug/elf and
// debug/dwarf, adapted from the teacher's
// obj/internal/obj/elf.go and obj/internal/symtab/symtab.go.
type Resolver struct {
	demangle bool
	elf      *elf.File
	text     *elf.Section
	dwarf    *dwarf.Data // nil if the binary carries no debug info
	table    *symtab
	lines    []lineRow // sorted by addr, built once from the DWARF line table
}

type lineRow struct {
	addr uint32
	file string
	line uint32
}

// Open parses elfPath once and prepares it for repeated lookups.
func Open(elfPath string, demangleNames bool) (*Resolver, error) {
	f, err := elf.Open(elfPath)
	if err != nil {
		return nil, fmt.Errorf("symbols: open %s: %w", elfPath, err)
	}

	syms, err := f.Symbols()
	if err != nil {
		return nil, fmt.Errorf("symbols: read symbol table of %s: %w", elfPath, err)
	}

	var funcs []*funcSym
	for _, s := range syms {
		if elf.ST_TYPE(s.Info) != elf.STT_FUNC || s.Size == 0 {
			continue
		}
		funcs = append(funcs, &funcSym{name: s.Name, value: s.Value, size: s.Size})
	}

	r := &Resolver{
		demangle: demangleNames,
		elf:      f,
		text:     f.Section(".text"),
		table:    newSymtab(funcs),
	}

	if dw, err := f.DWARF(); err == nil {
		r.dwarf = dw
		r.lines = readLineTable(dw)
	}

	return r, nil
}

// Close releases the underlying ELF file.
func (r *Resolver) Close() error {
	return r.elf.Close()
}

// Lookup resolves addr to a Record, stripping stripPrefix from the
// front of the reported file path. ok is false when addr falls
// outside any known function, matching the "address with no symbol"
// case the recorder treats as no function change (spec.md §7).
func (r *Resolver) Lookup(addr uint32, stripPrefix string) (Record, bool) {
	fs := r.table.at(uint64(addr))
	if fs == nil {
		return Record{}, false
	}

	if !fs.disassembled {
		fs.assembly = r.disassemble(fs)
		fs.disassembled = true
	}

	name := fs.name
	if r.demangle {
		name = demangle.Filter(name)
	}

	file, _ := r.lineFor(uint32(fs.value))
	file = strings.TrimPrefix(file, stripPrefix)
	_, line := r.lineFor(addr)

	return Record{
		Addr:     addr,
		File:     file,
		Function: name,
		Line:     line,
		Assembly: fs.assembly,
	}, true
}

// lineFor returns the source file and line number covering addr, or
// ("", 0) if the binary has no DWARF line information for it.
func (r *Resolver) lineFor(addr uint32) (string, uint32) {
	rows := r.lines
	lo, hi := 0, len(rows)
	for lo < hi {
		mid := (lo + hi) / 2
		if rows[mid].addr <= addr {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo > 0 && lo <= len(rows) {
		row := rows[lo-1]
		return row.file, row.line
	}
	return "", 0
}

// readLineTable flattens every compilation unit's line program into a
// single address-sorted slice, so lookups are a binary search instead
// of re-walking DWARF on every query.
func readLineTable(dw *dwarf.Data) []lineRow {
	var rows []lineRow

	reader := dw.Reader()
	for {
		entry, err := reader.Next()
		if err != nil || entry == nil {
			break
		}
		if entry.Tag != dwarf.TagCompileUnit {
			continue
		}

		lr, err := dw.LineReader(entry)
		if err != nil || lr == nil {
			continue
		}

		var le dwarf.LineEntry
		for {
			if err := lr.Next(&le); err != nil {
				break
			}
			if le.IsStmt {
				rows = append(rows, lineRow{
					addr: uint32(le.Address),
					file: fileName(le.File),
					line: uint32(le.Line),
				})
			}
		}
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].addr < rows[j].addr })

	return rows
}

func fileName(f *dwarf.LineFile) string {
	if f == nil {
		return ""
	}
	return f.Name
}
