package vm

import (
	"fmt"
	"strings"

	"github.com/agenthands/ktguide/pkg/core/value"
)

// Bytecode represents the compiled output of a program.
type Bytecode struct {
	Instructions []uint32
	Constants    []value.Value
	// Arena holds the bytes of string constants. Offsets are relative to
	// this slice until Machine.Load relocates them.
	Arena []byte
	// Lines maps each instruction to the source line it came from.
	Lines []int32
}

// Disassemble lists the instructions one per line.
func (bc *Bytecode) Disassemble() string {
	var b strings.Builder
	for i, instr := range bc.Instructions {
		op, arg := Decode(instr)
		line := int32(0)
		if i < len(bc.Lines) {
			line = bc.Lines[i]
		}
		fmt.Fprintf(&b, "%04d L%-3d %-9s", i, line, OpName(op))
		switch op {
		case OP_PUSH_C:
			fmt.Fprintf(&b, " %d (%s)", arg, bc.Constants[arg].Format(bc.Arena))
		case OP_SYSCALL:
			fmt.Fprintf(&b, " %d argc=%d", arg&0xFFFF, arg>>16)
		case OP_PUSH_L, OP_POP_L, OP_JMP, OP_JMP_FALSE, OP_JMP_TRUE, OP_CONVERT:
			fmt.Fprintf(&b, " %d", arg)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
