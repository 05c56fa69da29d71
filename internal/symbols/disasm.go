package symbols

import (
	"strings"

	"golang.org/x/arch/arm/armasm"
)

// disassemble decodes fs's byte range out of the .text section as
// Thumb-2 instructions and classifies each as a jump or not, adapted
// from the teacher's x86 disassembly pass in
// obj/internal/asm/x86.go, generalized from x86 to ARM/Thumb opcodes.
// Firmware traced by ETM on Cortex-M parts runs exclusively in Thumb
// state, so ModeThumb is the only mode this resolver decodes.
func (r *Resolver) disassemble(fs *funcSym) []Instruction {
	if r.text == nil || fs.size == 0 {
		return nil
	}
	if fs.value < r.text.Addr || fs.value+fs.size > r.text.Addr+r.text.Size {
		return nil
	}

	buf := make([]byte, fs.size)
	if _, err := r.text.ReadAt(buf, int64(fs.value-r.text.Addr)); err != nil {
		return nil
	}

	var out []Instruction
	pc := uint32(fs.value)
	for len(buf) > 0 {
		inst, err := armasm.Decode(buf, armasm.ModeThumb)
		size := inst.Len
		if err != nil || size == 0 {
			size = 2
			out = append(out, Instruction{Addr: pc, IsFourByte: false})
			buf = buf[size:]
			pc += uint32(size)
			continue
		}

		isJump, target := classifyBranch(inst, pc)
		out = append(out, Instruction{
			Addr:       pc,
			IsJump:     isJump,
			JumpTarget: target,
			IsFourByte: size == 4,
		})

		buf = buf[size:]
		pc += uint32(size)
	}
	return out
}

// classifyBranch reports whether inst is a branch instruction and, if
// it carries a direct PC-relative target, what address that is. B,
// BL, BLX, BX (in any condition), CBZ and CBNZ are the branch family
// on ARM/Thumb; register-form branches (BX Rm, BLX Rm) have no encoded
// target, so the trace's own disposition bit is what tells the
// recorder whether it was taken (spec.md §4.2 step 4).
func classifyBranch(inst armasm.Inst, pc uint32) (isJump bool, target uint32) {
	name := inst.Op.String()
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	switch name {
	case "B", "BL", "BLX", "BX", "CBZ", "CBNZ":
		isJump = true
	default:
		return false, 0
	}

	for _, arg := range inst.Args {
		if arg == nil {
			break
		}
		if rel, ok := arg.(armasm.PCRel); ok {
			// Thumb's PC reads as the address of the current
			// instruction plus 4, regardless of instruction width.
			target = pc + 4 + uint32(rel)
			return isJump, target
		}
	}
	return isJump, 0
}
