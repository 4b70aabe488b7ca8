package vm_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/agenthands/ktguide/pkg/core/fixedint"
	"github.com/agenthands/ktguide/pkg/core/value"
	"github.com/agenthands/ktguide/pkg/vm"
)

func intValue(tb testing.TB, v int64, w fixedint.Width) value.Value {
	tb.Helper()
	i, err := fixedint.FromInt64(v, w)
	if err != nil {
		tb.Fatal(err)
	}
	return value.FromInt(i)
}

// run loads code with constants and runs it with a generous gas limit.
func run(t *testing.T, consts []value.Value, code ...uint32) (*vm.Machine, error) {
	t.Helper()
	m := &vm.Machine{}
	m.Load(&vm.Bytecode{Instructions: append(code, vm.Encode(vm.OP_HALT, 0)), Constants: consts})
	return m, m.Run(1000)
}

func TestMachineReset(t *testing.T) {
	m := &vm.Machine{}

	// Dirty the machine
	m.SP = 10
	m.IP = 5
	m.Stack[0] = intValue(t, 100, fixedint.W32)
	m.Locals[3] = value.FromBool(true)
	m.PushString("leak")

	m.Reset()

	if m.SP != 0 || m.IP != 0 {
		t.Errorf("Reset failed: SP=%d, IP=%d", m.SP, m.IP)
	}
	if m.Stack[0].Type != value.TypeUnit || m.Locals[3].Type != value.TypeUnit {
		t.Errorf("Reset failed to zero out stack and locals")
	}
	if len(m.Arena) != 0 {
		t.Errorf("Reset kept %d arena bytes", len(m.Arena))
	}
}

func TestMachineStackOps(t *testing.T) {
	m := &vm.Machine{}

	m.Push(intValue(t, 42, fixedint.W32))
	if m.SP != 1 {
		t.Errorf("expected SP=1, got %d", m.SP)
	}
	if val := m.Pop(); val.Int.Int64() != 42 {
		t.Errorf("expected 42, got %v", val.Int)
	}
	if m.SP != 0 {
		t.Errorf("expected SP=0, got %d", m.SP)
	}
	if m.Result().Type != value.TypeUnit {
		t.Errorf("empty stack result should be Unit")
	}
}

func TestMachineStackOverflow(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic on stack overflow")
		}
	}()

	m := &vm.Machine{}
	for i := 0; i <= vm.StackDepth; i++ {
		m.Push(value.FromBool(true))
	}
}

func TestMachineStackUnderflow(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic on stack underflow")
		}
	}()

	m := &vm.Machine{}
	m.Pop()
}

func TestMachineRun(t *testing.T) {
	// val result = 1 + 2
	m, err := run(t,
		[]value.Value{intValue(t, 1, fixedint.W32), intValue(t, 2, fixedint.W32)},
		vm.Encode(vm.OP_PUSH_C, 0),
		vm.Encode(vm.OP_PUSH_C, 1),
		vm.Encode(vm.OP_ADD, 0),
		vm.Encode(vm.OP_POP_L, 0),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := m.Locals[0]
	if res.Type != value.TypeInt || res.Int.Int64() != 3 || res.Int.Width() != fixedint.W32 {
		t.Errorf("expected 3 (Int), got %v (%v)", res.Int, res.Kind())
	}
}

func TestArithmeticWraps(t *testing.T) {
	tests := []struct {
		name string
		a, b value.Value
		op   uint8
		want int64
		w    fixedint.Width
	}{
		{"int max plus one", intValue(t, 2147483647, fixedint.W32), intValue(t, 1, fixedint.W32), vm.OP_ADD, -2147483648, fixedint.W32},
		{"byte max plus one", intValue(t, 127, fixedint.W8), intValue(t, 1, fixedint.W8), vm.OP_ADD, -128, fixedint.W8},
		{"long min minus one", intValue(t, -1<<63, fixedint.W64), intValue(t, 1, fixedint.W64), vm.OP_SUB, 1<<63 - 1, fixedint.W64},
		{"int promoted to long", intValue(t, 2147483647, fixedint.W32), intValue(t, 1, fixedint.W64), vm.OP_ADD, 2147483648, fixedint.W64},
		{"int min div minus one", intValue(t, -2147483648, fixedint.W32), intValue(t, -1, fixedint.W32), vm.OP_DIV, -2147483648, fixedint.W32},
		{"rem sign follows dividend", intValue(t, -7, fixedint.W32), intValue(t, 2, fixedint.W32), vm.OP_REM, -1, fixedint.W32},
		{"shl masks count", intValue(t, 1, fixedint.W32), intValue(t, 33, fixedint.W32), vm.OP_SHL, 2, fixedint.W32},
		{"ushr", intValue(t, -1, fixedint.W32), intValue(t, 28, fixedint.W32), vm.OP_USHR, 15, fixedint.W32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := run(t, []value.Value{tt.a, tt.b},
				vm.Encode(vm.OP_PUSH_C, 0),
				vm.Encode(vm.OP_PUSH_C, 1),
				vm.Encode(tt.op, 0),
			)
			if err != nil {
				t.Fatal(err)
			}
			got := m.Result().Int
			if got.Int64() != tt.want || got.Width() != tt.w {
				t.Errorf("got %v (%v), want %d (%v)", got, got.Width(), tt.want, tt.w)
			}
		})
	}
}

func TestNegateMinimum(t *testing.T) {
	m, err := run(t, []value.Value{intValue(t, -2147483648, fixedint.W32)},
		vm.Encode(vm.OP_PUSH_C, 0),
		vm.Encode(vm.OP_NEG, 0),
	)
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Result().Int.Int64(); got != -2147483648 {
		t.Errorf("-MIN = %d", got)
	}
}

func TestConvert(t *testing.T) {
	m, err := run(t, []value.Value{intValue(t, 300, fixedint.W32)},
		vm.Encode(vm.OP_PUSH_C, 0),
		vm.Encode(vm.OP_CONVERT, 8),
	)
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Result(); got.Int.Int64() != 44 || got.Int.Width() != fixedint.W8 {
		t.Errorf("300.toByte() = %v (%v)", got.Int, got.Kind())
	}
}

func TestDivisionByZeroCarriesLine(t *testing.T) {
	m := &vm.Machine{}
	m.Load(&vm.Bytecode{
		Instructions: []uint32{
			vm.Encode(vm.OP_PUSH_C, 0),
			vm.Encode(vm.OP_PUSH_C, 1),
			vm.Encode(vm.OP_DIV, 0),
			vm.Encode(vm.OP_HALT, 0),
		},
		Constants: []value.Value{intValue(t, 1, fixedint.W32), intValue(t, 0, fixedint.W32)},
		Lines:     []int32{3, 3, 4, 4},
	})
	err := m.Run(100)
	if !errors.Is(err, fixedint.ErrDivisionByZero) {
		t.Fatalf("err = %v, want division by zero", err)
	}
	var rerr *vm.RuntimeError
	if !errors.As(err, &rerr) || rerr.Line != 4 {
		t.Fatalf("err = %#v, want RuntimeError on line 4", err)
	}
}

func TestTypeMismatch(t *testing.T) {
	_, err := run(t, []value.Value{intValue(t, 1, fixedint.W32), value.FromBool(true)},
		vm.Encode(vm.OP_PUSH_C, 0),
		vm.Encode(vm.OP_PUSH_C, 1),
		vm.Encode(vm.OP_ADD, 0),
	)
	if !errors.Is(err, vm.ErrTypeMismatch) {
		t.Fatalf("err = %v", err)
	}
}

func TestRunUnderflowBecomesError(t *testing.T) {
	_, err := run(t, nil, vm.Encode(vm.OP_ADD, 0))
	if !errors.Is(err, vm.ErrStackUnderflow) {
		t.Fatalf("err = %v, want underflow", err)
	}
}

func TestGasExhausted(t *testing.T) {
	m := &vm.Machine{}
	m.Load(&vm.Bytecode{Instructions: []uint32{vm.Encode(vm.OP_JMP, 0)}})
	if err := m.Run(50); !errors.Is(err, vm.ErrGasExhausted) {
		t.Fatalf("err = %v", err)
	}
}

func TestJumps(t *testing.T) {
	// true || <skipped> ; result stays true
	m, err := run(t, []value.Value{value.FromBool(true), value.FromBool(false)},
		vm.Encode(vm.OP_PUSH_C, 0),
		vm.Encode(vm.OP_DUP, 0),
		vm.Encode(vm.OP_JMP_TRUE, 5),
		vm.Encode(vm.OP_DROP, 0),
		vm.Encode(vm.OP_PUSH_C, 1),
		vm.Encode(vm.OP_NOT, 0),
	)
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Result(); got.Type != value.TypeBool || got.Bool() {
		t.Errorf("got %v, want false (NOT of the kept true)", got.Format(nil))
	}
}

func TestStringsAndLoadRelocation(t *testing.T) {
	m := &vm.Machine{}
	m.PushString("earlier")
	m.Locals[0] = m.Pop()

	m.Load(&vm.Bytecode{
		Instructions: []uint32{
			vm.Encode(vm.OP_PUSH_C, 0),
			vm.Encode(vm.OP_PUSH_C, 1),
			vm.Encode(vm.OP_CONCAT, 0),
			vm.Encode(vm.OP_PUSH_L, 0),
			vm.Encode(vm.OP_CONCAT, 0),
			vm.Encode(vm.OP_HALT, 0),
		},
		Constants: []value.Value{value.FromString(0, 2), intValue(t, 5, fixedint.W64)},
		Arena:     []byte("n="),
	})
	if err := m.Run(100); err != nil {
		t.Fatal(err)
	}
	if got := m.String(m.Result()); got != "n=5earlier" {
		t.Errorf("got %q", got)
	}
	if got := m.String(m.Locals[0]); got != "earlier" {
		t.Errorf("local string clobbered: %q", got)
	}
}

func TestCompare(t *testing.T) {
	m := &vm.Machine{}
	m.Load(&vm.Bytecode{
		Instructions: []uint32{
			vm.Encode(vm.OP_PUSH_C, 0),
			vm.Encode(vm.OP_PUSH_C, 1),
			vm.Encode(vm.OP_LT, 0),
			vm.Encode(vm.OP_HALT, 0),
		},
		Constants: []value.Value{value.FromString(0, 3), value.FromString(3, 3)},
		Arena:     []byte("abcabd"),
	})
	if err := m.Run(10); err != nil {
		t.Fatal(err)
	}
	if !m.Result().Bool() {
		t.Error(`"abc" < "abd" should be true`)
	}
}

func TestSyscall(t *testing.T) {
	var gotArgc int
	m := &vm.Machine{}
	idx := m.RegisterHostFunction(func(m *vm.Machine, argc int) error {
		gotArgc = argc
		b, a := m.Pop(), m.Pop()
		m.Push(value.FromInt(fixedint.Mul(a.Int, b.Int)))
		return nil
	})
	fail := m.RegisterHostFunction(func(*vm.Machine, int) error { return errors.New("boom") })

	m.Load(&vm.Bytecode{
		Instructions: []uint32{
			vm.Encode(vm.OP_PUSH_C, 0),
			vm.Encode(vm.OP_PUSH_C, 1),
			vm.Encode(vm.OP_SYSCALL, vm.SyscallArg(int(idx), 2)),
			vm.Encode(vm.OP_HALT, 0),
		},
		Constants: []value.Value{intValue(t, 6, fixedint.W32), intValue(t, 7, fixedint.W32)},
	})
	if err := m.Run(10); err != nil {
		t.Fatal(err)
	}
	if gotArgc != 2 || m.Result().Int.Int64() != 42 {
		t.Errorf("argc=%d result=%v", gotArgc, m.Result().Int)
	}

	m.Load(&vm.Bytecode{Instructions: []uint32{vm.Encode(vm.OP_SYSCALL, vm.SyscallArg(int(fail), 0))}})
	if err := m.Run(10); err == nil || err.Error() != "boom" {
		t.Errorf("err = %v", err)
	}
}

func TestPool(t *testing.T) {
	m := vm.GetMachine()
	m.PushString("x")
	vm.PutMachine(m)

	m = vm.GetMachine()
	defer vm.PutMachine(m)
	if m.SP != 0 || len(m.Arena) != 0 {
		t.Errorf("pooled machine not reset: SP=%d arena=%d", m.SP, len(m.Arena))
	}
}

func TestDisassemble(t *testing.T) {
	bc := &vm.Bytecode{
		Instructions: []uint32{vm.Encode(vm.OP_PUSH_C, 0), vm.Encode(vm.OP_CONVERT, 8), vm.Encode(vm.OP_HALT, 0)},
		Constants:    []value.Value{intValue(t, 300, fixedint.W32)},
		Lines:        []int32{1, 1, 1},
	}
	out := bc.Disassemble()
	for _, want := range []string{"PUSH_C", "(300)", "CONVERT", "HALT"} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q:\n%s", want, out)
		}
	}
}
