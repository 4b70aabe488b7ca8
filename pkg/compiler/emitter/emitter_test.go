package emitter_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/agenthands/ktguide/pkg/compiler/emitter"
	"github.com/agenthands/ktguide/pkg/core/fixedint"
	"github.com/agenthands/ktguide/pkg/core/value"
	"github.com/agenthands/ktguide/pkg/stdlib"
	"github.com/agenthands/ktguide/pkg/vm"
)

func eval(t *testing.T, src string) (string, error) {
	t.Helper()
	prog, err := emitter.NewEmitter().Compile([]byte(src))
	if err != nil {
		return "", err
	}
	m := vm.GetMachine()
	defer vm.PutMachine(m)
	m.Reset()
	var out bytes.Buffer
	m.Out = &out
	stdlib.Install(m)
	m.Load(prog.Bytecode)
	err = m.Run(1 << 16)
	return out.String(), err
}

func TestEmitterBasic(t *testing.T) {
	prog, err := emitter.NewEmitter().Compile([]byte("1 + 2"))
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	expectedOps := []uint8{
		vm.OP_PUSH_C,
		vm.OP_PUSH_C,
		vm.OP_ADD,
		vm.OP_HALT,
	}
	if len(prog.Instructions) != len(expectedOps) {
		t.Fatalf("expected %d instructions, got %d:\n%s", len(expectedOps), len(prog.Instructions), prog.Disassemble())
	}
	for i, op := range expectedOps {
		gotOp, _ := vm.Decode(prog.Instructions[i])
		if gotOp != op {
			t.Errorf("instr %d: expected op %s, got %s", i, vm.OpName(op), vm.OpName(gotOp))
		}
	}
	if prog.Result != value.IntKind(fixedint.W32) {
		t.Errorf("result kind = %s, want Int", prog.Result)
	}
	if len(prog.Lines) != len(prog.Instructions) {
		t.Errorf("%d lines for %d instructions", len(prog.Lines), len(prog.Instructions))
	}
}

func TestEmitterPromotesShortOperands(t *testing.T) {
	prog, err := emitter.NewEmitter().Compile([]byte("val b: Byte = 1\n-b"))
	if err != nil {
		t.Fatal(err)
	}
	var ops []string
	for _, instr := range prog.Instructions {
		op, _ := vm.Decode(instr)
		ops = append(ops, vm.OpName(op))
	}
	want := "PUSH_C POP_L PUSH_L CONVERT NEG HALT"
	if got := strings.Join(ops, " "); got != want {
		t.Errorf("ops = %s, want %s", got, want)
	}
	if prog.Result.String() != "Int" {
		t.Errorf("-Byte should be Int, got %s", prog.Result)
	}
}

func TestEmitterPrograms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"Arithmetic", "println(1 + 2 * 3)", "7\n"},
		{"IntWraps", "println(Int.MAX_VALUE + 1)", "-2147483648\n"},
		{"MulWraps", "println(1_000_000 * 3000)", "-1294967296\n"},
		{"LongLiteral", "println(-2147483648)", "-2147483648\n"},
		{"BytePromotes", "val b: Byte = 127\nprintln(b + 1)", "128\n"},
		{"ByteIncrementWraps", "var b: Byte = 127\nb++\nprintln(b)", "-128\n"},
		{"PrefixIncrement", "var i = 1\nprintln(++i)\nprintln(i)", "2\n2\n"},
		{"PostfixIncrement", "var i = 1\nprintln(i++)\nprintln(i)", "1\n2\n"},
		{"CompoundAssign", "var i = 0\ni += 5\ni *= 2\ni -= 1\nprintln(i)", "9\n"},
		{"DivRem", "println(10 / 3)\nprintln(-7 % 3)", "3\n-1\n"},
		{"Shifts", "println(1 shl 33)\nprintln(-1 ushr 28)\nprintln(1L shl 40)", "2\n15\n1099511627776\n"},
		{"BitFunctions", "println(12 and 10)\nprintln(12.or(3))\nprintln(0.inv())", "8\n15\n-1\n"},
		{"Conversions", "println(200.toByte())\nprintln(0x7FFFFFFF.toShort())\nprintln(5.toLong() + 1)", "-56\n-1\n6\n"},
		{"Constants", "println(Byte.MIN_VALUE)\nprintln(Long.SIZE_BITS)", "-128\n64\n"},
		{"Templates", "val s = \"a\"\nprintln(\"$s-${1 + 2}!\")", "a-3!\n"},
		{"Escapes", `println("x\ty\u0041\$")`, "x\tyA$\n"},
		{"RawString", "println(\"\"\"a\\n$1\"\"\")", "a\\n$1\n"},
		{"Concat", "println(\"n=\" + 4 + true)", "n=4true\n"},
		{"ToString", "val s = 5\n  .toString()\nprintln(s + \"!\")", "5!\n"},
		{"StringCompare", "println(\"abc\" < \"abd\")", "true\n"},
		{"IfExpression", "val x = 5\nval y = if (x > 3) {\n  \"big\"\n} else {\n  \"small\"\n}\nprintln(y)", "big\n"},
		{"IfStatement", "var n = 0\nif (n == 0) {\n  n = 7\n}\nprintln(n)", "7\n"},
		{"IfWithoutElse", "if (false) {\n  println(\"no\")\n}\nprintln(\"done\")", "done\n"},
		{"ShortCircuit", "var n = 0\nval ok = false && n++ > 0\nprintln(ok)\nprintln(n)", "false\n0\n"},
		{"Or", "println(true || false)\nprintln(!true)", "true\nfalse\n"},
		{"DanglingOperator", "val total = 1 +\n  2\nprintln(total)", "3\n"},
		{"LeadingPlusSplits", "val a = 1\n+2\nprintln(a)", "1\n"},
		{"Semicolons", "val a = 1; val b = 2; println(a + b)", "3\n"},
		{"BlockScope", "val a = 1\nval b = if (true) {\n  val a = 10\n  a + 1\n} else 0\nprintln(a + b)", "12\n"},
		{"Builtins", "println(maxOf(3, 7))\nprintln(abs(-4))\nprint(\"x\")", "7\n4\nx"},
		{"UnitPrints", "println(println(\"a\"))", "a\nkotlin.Unit\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval(t, tt.src)
			if err != nil {
				t.Fatalf("eval failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("output %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEmitterCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		msg  string
	}{
		{"ValReassigned", "val x = 1\nx = 2", 2, "val cannot be reassigned"},
		{"Unresolved", "val a = 1\n\nprintln(zz)", 3, "unresolved reference: zz"},
		{"TypeMismatch", "val s: String = 1", 1, "type mismatch"},
		{"BadOperands", "1 + true", 1, "cannot be applied"},
		{"Throw", "throw Exception(\"x\")", 1, "throw is not supported"},
		{"LongLiteralToInt", "val i: Int = 5L", 1, "does not conform"},
		{"Char", "'c'", 1, "Char is not supported"},
		{"Float", "1.5", 1, "unsupported number literal"},
		{"NoInitializer", "var x: Int", 1, "must be initialized"},
		{"Conflict", "val x = 1; val x = 2", 1, "conflicting declarations"},
		{"MixedEquality", "1 == 1L", 1, "cannot be applied"},
		{"BranchTypes", "val v = if (true) 1 else \"one\"", 1, "different types"},
		{"ByteShift", "val b: Byte = 1\nb shl 1", 2, "cannot be applied"},
		{"Lambda", "val f = { 1 }", 1, "lambdas are not supported"},
		{"BadSignature", "maxOf(1)", 1, "no matching overload"},
		{"SyntaxError", "val = 3", 1, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := emitter.NewEmitter().Compile([]byte(tt.src))
			var cerr *emitter.Error
			if !errors.As(err, &cerr) {
				t.Fatalf("expected *emitter.Error, got %v", err)
			}
			if cerr.Line != tt.line {
				t.Errorf("line %d, want %d (%v)", cerr.Line, tt.line, err)
			}
			if !strings.Contains(cerr.Msg, tt.msg) {
				t.Errorf("message %q does not contain %q", cerr.Msg, tt.msg)
			}
		})
	}
}

func TestEmitterLiteralRange(t *testing.T) {
	_, err := emitter.NewEmitter().Compile([]byte("val b: Byte = 128"))
	if !errors.Is(err, fixedint.ErrRange) {
		t.Fatalf("expected range error, got %v", err)
	}
	var rerr *fixedint.RangeError
	if !errors.As(err, &rerr) || rerr.Width != fixedint.W8 {
		t.Errorf("range error %v", err)
	}
	if _, err := emitter.NewEmitter().Compile([]byte("val b: Byte = -128")); err != nil {
		t.Errorf("-128 should fit a Byte: %v", err)
	}
	if _, err := emitter.NewEmitter().Compile([]byte("9223372036854775808")); !errors.Is(err, fixedint.ErrRange) {
		t.Errorf("expected range error for 2^63, got %v", err)
	}
}

func TestEmitterRuntimeErrorLine(t *testing.T) {
	_, err := eval(t, "val z = 0\nval a = 1\nprintln(a /\n  z)")
	var rerr *vm.RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected runtime error, got %v", err)
	}
	if !errors.Is(err, fixedint.ErrDivisionByZero) {
		t.Errorf("expected division by zero, got %v", err)
	}
	if rerr.Line != 3 {
		t.Errorf("line %d, want 3", rerr.Line)
	}

	_, err = eval(t, "require(1 > 2)")
	if !errors.Is(err, stdlib.ErrIllegalArgument) {
		t.Errorf("require: %v", err)
	}
}

func TestEmitterChunks(t *testing.T) {
	e := emitter.NewEmitter()
	if _, err := e.Compile([]byte("val x = 41")); err != nil {
		t.Fatal(err)
	}
	prog, err := e.Compile([]byte("x + 1"))
	if err != nil {
		t.Fatalf("later chunk should see x: %v", err)
	}
	if prog.Result.String() != "Int" || prog.Statements != 1 {
		t.Errorf("result %s, %d statements", prog.Result, prog.Statements)
	}

	if _, err := e.Compile([]byte("val x = \"shadow\"")); err != nil {
		t.Errorf("redeclaring in a new chunk: %v", err)
	}
	prog, err = e.Compile([]byte("x"))
	if err != nil || prog.Result != value.KindString {
		t.Errorf("x should now be a String: %v %v", prog, err)
	}

	snap := e.Snapshot()
	if _, err := e.Compile([]byte("val y = 1")); err != nil {
		t.Fatal(err)
	}
	e.Restore(snap)
	if _, err := e.Compile([]byte("y")); err == nil {
		t.Error("y should be gone after Restore")
	}
}
