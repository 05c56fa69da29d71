package symbols

import "sort"

// funcSym is one text symbol pulled from the ELF symbol table.
type funcSym struct {
	name         string
	value, size  uint64
	assembly     []Instruction // filled in lazily by disassemble, nil until then
	disassembled bool
}

// symtab facilitates fast address-to-function lookup, adapted from
// the dense sorted-slice table the teacher's object browser used for
// the same purpose.
type symtab struct {
	byAddr []*funcSym
}

func newSymtab(syms []*funcSym) *symtab {
	sort.Slice(syms, func(i, j int) bool {
		return syms[i].value < syms[j].value
	})
	return &symtab{byAddr: syms}
}

// at returns the function symbol containing addr, if any.
func (t *symtab) at(addr uint64) *funcSym {
	i := sort.Search(len(t.byAddr), func(i int) bool {
		return addr < t.byAddr[i].value
	})
	if i == 0 {
		return nil
	}
	s := t.byAddr[i-1]
	if s.value != 0 && s.value <= addr && addr < s.value+s.size {
		return s
	}
	return nil
}
