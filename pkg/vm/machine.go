package vm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/agenthands/ktguide/pkg/core/fixedint"
	"github.com/agenthands/ktguide/pkg/core/value"
	"github.com/agenthands/ktguide/pkg/debug"
)

var (
	ErrStackOverflow  = errors.New("vm: stack overflow")
	ErrStackUnderflow = errors.New("vm: stack underflow")
	ErrGasExhausted   = errors.New("vm: gas exhausted")
	ErrTypeMismatch   = errors.New("vm: operand type mismatch")
	ErrUnknownOpcode  = errors.New("vm: unknown opcode")
)

// RuntimeError attaches the source line of the failing instruction.
type RuntimeError struct {
	Line int
	Err  error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// HostFunction is a Go function registered to the VM. It pops its argc
// arguments and pushes exactly one result.
type HostFunction func(m *Machine, argc int) error

const (
	StackDepth = 128
	MaxLocals  = 256
)

// Machine represents a single script's execution sandbox.
// It uses fixed-size arrays to ensure a predictable memory footprint.
type Machine struct {
	Stack [StackDepth]value.Value
	SP    int // Stack Pointer

	// Locals survive Load so a session can run chunk after chunk.
	Locals [MaxLocals]value.Value

	IP    int      // Instruction Pointer
	Code  []uint32 // Bytecode instructions
	Lines []int32

	Constants []value.Value // Constant pool

	// Arena for string data
	Arena []byte

	HostRegistry []HostFunction

	// Out receives program output; nil means os.Stdout.
	Out io.Writer
}

// Reset clears the machine state for reuse (sync.Pool compliant).
func (m *Machine) Reset() {
	m.SP = 0
	m.IP = 0
	m.Code = nil
	m.Lines = nil
	m.Constants = m.Constants[:0]
	m.Arena = m.Arena[:0]
	m.HostRegistry = m.HostRegistry[:0]
	m.Out = nil

	// Zero out the stack and locals to avoid data leakage between runs
	for i := range m.Stack {
		m.Stack[i] = value.Value{}
	}
	for i := range m.Locals {
		m.Locals[i] = value.Value{}
	}
}

// Load points the machine at bc. String constants are copied into the
// machine's arena, after any strings already there, and their offsets
// relocated. Locals are kept.
func (m *Machine) Load(bc *Bytecode) {
	base := uint32(len(m.Arena))
	m.Arena = append(m.Arena, bc.Arena...)
	m.Constants = m.Constants[:0]
	for _, c := range bc.Constants {
		if c.Type == value.TypeString {
			c.Data += uint64(base) << 32
		}
		m.Constants = append(m.Constants, c)
	}
	m.Code = bc.Instructions
	m.Lines = bc.Lines
	m.IP = 0
	m.SP = 0
}

// RegisterHostFunction adds a host-side Go function to the VM's registry.
func (m *Machine) RegisterHostFunction(fn HostFunction) uint32 {
	m.HostRegistry = append(m.HostRegistry, fn)
	return uint32(len(m.HostRegistry) - 1)
}

// Output returns the writer host functions print to.
func (m *Machine) Output() io.Writer {
	if m.Out == nil {
		return os.Stdout
	}
	return m.Out
}

// Push adds a value to the stack. Panics on overflow.
func (m *Machine) Push(v value.Value) {
	if m.SP >= StackDepth {
		panic(ErrStackOverflow)
	}
	m.Stack[m.SP] = v
	m.SP++
}

// Pop removes and returns the top value from the stack. Panics on underflow.
func (m *Machine) Pop() value.Value {
	if m.SP <= 0 {
		panic(ErrStackUnderflow)
	}
	m.SP--
	return m.Stack[m.SP]
}

// PushString appends s to the arena and pushes a view of it.
func (m *Machine) PushString(s string) {
	offset := uint32(len(m.Arena))
	m.Arena = append(m.Arena, s...)
	m.Push(value.FromString(offset, uint32(len(s))))
}

// String returns the text of a string value.
func (m *Machine) String(v value.Value) string {
	return value.UnpackString(v.Data, m.Arena)
}

// Result returns the top of the stack, or Unit when it is empty.
func (m *Machine) Result() value.Value {
	if m.SP == 0 {
		return value.Unit
	}
	return m.Stack[m.SP-1]
}

func (m *Machine) line(ip int) int {
	if ip >= 0 && ip < len(m.Lines) {
		return int(m.Lines[ip])
	}
	return 0
}

// Run executes instructions until HALT, error, or gas exhaustion. Errors
// carry the source line as a *RuntimeError when line information is loaded.
func (m *Machine) Run(gasLimit int) (err error) {
	defer func() {
		// Convert internal stack panics to errors
		if r := recover(); r != nil {
			e, ok := r.(error)
			switch {
			case ok && (errors.Is(e, ErrStackOverflow) || errors.Is(e, ErrStackUnderflow)):
				err = e
			case ok && isRuntime(e):
				if m.SP >= StackDepth {
					err = ErrStackOverflow
				} else {
					err = ErrStackUnderflow
				}
			default:
				panic(r)
			}
		}
		if err != nil && len(m.Lines) > 0 {
			err = &RuntimeError{Line: m.line(m.IP), Err: err}
		}
	}()

	// Cache hot fields in local variables for register allocation
	ip := m.IP
	sp := m.SP
	code := m.Code
	trace := debug.VM()

	for i := 0; i < gasLimit; i++ {
		// Mandatory state sync for syscalls/errors
		m.IP = ip
		m.SP = sp

		op, arg := Decode(code[ip])
		if trace {
			debug.Logf("vm: %04d %-9s %-6d sp=%d\n", ip, OpName(op), arg, sp)
		}

		switch op {
		case OP_HALT:
			return nil

		case OP_NOOP:
			ip++

		case OP_PUSH_C:
			m.Stack[sp] = m.Constants[arg]
			sp++
			ip++

		case OP_PUSH_L:
			m.Stack[sp] = m.Locals[arg]
			sp++
			ip++

		case OP_POP_L:
			if sp <= 0 {
				return fmt.Errorf("%w at POP_L %d", ErrStackUnderflow, arg)
			}
			sp--
			m.Locals[arg] = m.Stack[sp]
			ip++

		case OP_DUP:
			m.Stack[sp] = m.Stack[sp-1]
			sp++
			ip++

		case OP_DROP:
			if sp <= 0 {
				return ErrStackUnderflow
			}
			sp--
			ip++

		case OP_ADD, OP_SUB, OP_MUL, OP_DIV, OP_REM,
			OP_AND, OP_OR, OP_XOR, OP_SHL, OP_SHR, OP_USHR:
			a, b := m.Stack[sp-2], m.Stack[sp-1]
			res, err := binary(op, a, b)
			if err != nil {
				return err
			}
			m.Stack[sp-2] = res
			sp--
			ip++

		case OP_NEG, OP_INV:
			a := m.Stack[sp-1]
			if a.Type != value.TypeInt {
				return ErrTypeMismatch
			}
			if op == OP_NEG {
				m.Stack[sp-1] = value.FromInt(fixedint.Neg(a.Int))
			} else {
				m.Stack[sp-1] = value.FromInt(fixedint.Inv(a.Int))
			}
			ip++

		case OP_NOT:
			a := m.Stack[sp-1]
			if a.Type != value.TypeBool {
				return ErrTypeMismatch
			}
			m.Stack[sp-1] = value.FromBool(!a.Bool())
			ip++

		case OP_CONVERT:
			a := m.Stack[sp-1]
			w := fixedint.Width(arg)
			if a.Type != value.TypeInt || !w.Valid() {
				return ErrTypeMismatch
			}
			m.Stack[sp-1] = value.FromInt(fixedint.Convert(a.Int, w))
			ip++

		case OP_EQ, OP_NE:
			eq := value.Equal(m.Stack[sp-2], m.Stack[sp-1], m.Arena)
			m.Stack[sp-2] = value.FromBool(eq == (op == OP_EQ))
			sp--
			ip++

		case OP_LT, OP_GT, OP_LE, OP_GE:
			c, err := m.compare(m.Stack[sp-2], m.Stack[sp-1])
			if err != nil {
				return err
			}
			var res bool
			switch op {
			case OP_LT:
				res = c < 0
			case OP_GT:
				res = c > 0
			case OP_LE:
				res = c <= 0
			default:
				res = c >= 0
			}
			m.Stack[sp-2] = value.FromBool(res)
			sp--
			ip++

		case OP_CONCAT:
			a, b := m.Stack[sp-2], m.Stack[sp-1]
			s := a.Format(m.Arena) + b.Format(m.Arena)
			sp -= 2
			m.SP = sp
			m.PushString(s)
			sp = m.SP
			ip++

		case OP_STR:
			a := m.Stack[sp-1]
			if a.Type != value.TypeString {
				s := a.Format(m.Arena)
				sp--
				m.SP = sp
				m.PushString(s)
				sp = m.SP
			}
			ip++

		case OP_JMP:
			ip = int(arg)

		case OP_JMP_FALSE, OP_JMP_TRUE:
			cond := m.Stack[sp-1]
			sp--
			if cond.Type != value.TypeBool {
				return ErrTypeMismatch
			}
			if cond.Bool() == (op == OP_JMP_TRUE) {
				ip = int(arg)
			} else {
				ip++
			}

		case OP_SYSCALL:
			idx, argc := int(arg&0xFFFF), int(arg>>16)
			if idx >= len(m.HostRegistry) {
				return fmt.Errorf("vm: unknown host function %d", idx)
			}

			// Sync Machine state before Syscall
			m.IP = ip
			m.SP = sp
			if err := m.HostRegistry[idx](m, argc); err != nil {
				return err
			}

			// Restore state after Syscall (SP might have changed)
			sp = m.SP
			ip++ // Advance past syscall

		default:
			return fmt.Errorf("%w 0x%02x", ErrUnknownOpcode, op)
		}
	}

	m.IP = ip
	m.SP = sp
	return ErrGasExhausted
}

func isRuntime(err error) bool {
	var re runtime.Error
	return errors.As(err, &re)
}

func binary(op uint8, a, b value.Value) (value.Value, error) {
	if a.Type == value.TypeBool && b.Type == value.TypeBool {
		switch op {
		case OP_AND:
			return value.FromBool(a.Bool() && b.Bool()), nil
		case OP_OR:
			return value.FromBool(a.Bool() || b.Bool()), nil
		case OP_XOR:
			return value.FromBool(a.Bool() != b.Bool()), nil
		}
	}
	if a.Type != value.TypeInt || b.Type != value.TypeInt {
		return value.Value{}, ErrTypeMismatch
	}
	x, y := a.Int, b.Int
	var r fixedint.Int
	var err error
	switch op {
	case OP_ADD:
		r = fixedint.Add(x, y)
	case OP_SUB:
		r = fixedint.Sub(x, y)
	case OP_MUL:
		r = fixedint.Mul(x, y)
	case OP_DIV:
		r, err = fixedint.Div(x, y)
	case OP_REM:
		r, err = fixedint.Rem(x, y)
	case OP_AND:
		r = fixedint.And(x, y)
	case OP_OR:
		r = fixedint.Or(x, y)
	case OP_XOR:
		r = fixedint.Xor(x, y)
	case OP_SHL:
		r = fixedint.Shl(x, y)
	case OP_SHR:
		r = fixedint.Shr(x, y)
	case OP_USHR:
		r = fixedint.Ushr(x, y)
	}
	if err != nil {
		return value.Value{}, err
	}
	return value.FromInt(r), nil
}

func (m *Machine) compare(a, b value.Value) (int, error) {
	switch {
	case a.Type == value.TypeInt && b.Type == value.TypeInt:
		return fixedint.Cmp(a.Int, b.Int), nil
	case a.Type == value.TypeString && b.Type == value.TypeString:
		return strings.Compare(m.String(a), m.String(b)), nil
	case a.Type == value.TypeBool && b.Type == value.TypeBool:
		// false < true
		return int(a.Data) - int(b.Data), nil
	}
	return 0, ErrTypeMismatch
}
