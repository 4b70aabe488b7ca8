package vm

import "fmt"

const (
	OP_HALT      uint8 = 0x00
	OP_NOOP      uint8 = 0x01
	OP_PUSH_C    uint8 = 0x02
	OP_PUSH_L    uint8 = 0x03
	OP_POP_L     uint8 = 0x04
	OP_DUP       uint8 = 0x05
	OP_DROP      uint8 = 0x06
	OP_ADD       uint8 = 0x10
	OP_SUB       uint8 = 0x11
	OP_MUL       uint8 = 0x12
	OP_DIV       uint8 = 0x13
	OP_REM       uint8 = 0x14
	OP_NEG       uint8 = 0x15
	OP_AND       uint8 = 0x16
	OP_OR        uint8 = 0x17
	OP_XOR       uint8 = 0x18
	OP_INV       uint8 = 0x19
	OP_SHL       uint8 = 0x1A
	OP_SHR       uint8 = 0x1B
	OP_USHR      uint8 = 0x1C
	OP_CONVERT   uint8 = 0x1D // arg: target width in bits
	OP_EQ        uint8 = 0x20
	OP_NE        uint8 = 0x21
	OP_LT        uint8 = 0x22
	OP_GT        uint8 = 0x23
	OP_LE        uint8 = 0x24
	OP_GE        uint8 = 0x25
	OP_NOT       uint8 = 0x26
	OP_CONCAT    uint8 = 0x28
	OP_STR       uint8 = 0x29
	OP_JMP       uint8 = 0x30
	OP_JMP_FALSE uint8 = 0x31
	OP_JMP_TRUE  uint8 = 0x32
	OP_SYSCALL   uint8 = 0x40 // arg: argc<<16 | host index
)

var opNames = map[uint8]string{
	OP_HALT: "HALT", OP_NOOP: "NOOP", OP_PUSH_C: "PUSH_C", OP_PUSH_L: "PUSH_L",
	OP_POP_L: "POP_L", OP_DUP: "DUP", OP_DROP: "DROP",
	OP_ADD: "ADD", OP_SUB: "SUB", OP_MUL: "MUL", OP_DIV: "DIV", OP_REM: "REM",
	OP_NEG: "NEG", OP_AND: "AND", OP_OR: "OR", OP_XOR: "XOR", OP_INV: "INV",
	OP_SHL: "SHL", OP_SHR: "SHR", OP_USHR: "USHR", OP_CONVERT: "CONVERT",
	OP_EQ: "EQ", OP_NE: "NE", OP_LT: "LT", OP_GT: "GT", OP_LE: "LE", OP_GE: "GE",
	OP_NOT: "NOT", OP_CONCAT: "CONCAT", OP_STR: "STR",
	OP_JMP: "JMP", OP_JMP_FALSE: "JMP_FALSE", OP_JMP_TRUE: "JMP_TRUE",
	OP_SYSCALL: "SYSCALL",
}

// OpName returns the mnemonic of op.
func OpName(op uint8) string {
	if n, ok := opNames[op]; ok {
		return n
	}
	return fmt.Sprintf("OP_%02X", op)
}

// Encode packs an 8-bit opcode and a 24-bit argument.
func Encode(op uint8, arg uint32) uint32 {
	return (uint32(op) << 24) | (arg & 0x00FFFFFF)
}

// Decode splits an instruction into opcode and argument.
func Decode(instr uint32) (uint8, uint32) {
	return uint8(instr >> 24), instr & 0x00FFFFFF
}

// SyscallArg packs a host function index and its argument count.
func SyscallArg(index, argc int) uint32 {
	return uint32(argc)<<16 | uint32(index)&0xFFFF
}
