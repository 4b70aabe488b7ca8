package stdlib

import (
	"bytes"
	"errors"
	"testing"

	"github.com/agenthands/ktguide/pkg/core/fixedint"
	"github.com/agenthands/ktguide/pkg/core/value"
	"github.com/agenthands/ktguide/pkg/vm"
)

func intValue(t *testing.T, v int64, w fixedint.Width) value.Value {
	t.Helper()
	i, err := fixedint.FromInt64(v, w)
	if err != nil {
		t.Fatal(err)
	}
	return value.FromInt(i)
}

func TestBuiltins(t *testing.T) {
	m := vm.GetMachine()
	defer vm.PutMachine(m)
	var out bytes.Buffer

	t.Run("Println", func(t *testing.T) {
		m.Reset()
		m.Out = &out
		out.Reset()
		m.PushString("hi")
		if err := Println(m, 1); err != nil {
			t.Fatal(err)
		}
		if err := Println(m, 0); err != nil {
			t.Fatal(err)
		}
		if out.String() != "hi\n\n" {
			t.Errorf("output %q", out.String())
		}
		if m.Pop().Type != value.TypeUnit {
			t.Error("println should push Unit")
		}
	})

	t.Run("Print", func(t *testing.T) {
		m.Reset()
		m.Out = &out
		out.Reset()
		m.Push(value.FromBool(true))
		if err := Print(m, 1); err != nil {
			t.Fatal(err)
		}
		if out.String() != "true" {
			t.Errorf("output %q", out.String())
		}
	})

	t.Run("MaxOfMinOf", func(t *testing.T) {
		m.Reset()
		m.Push(intValue(t, -3, fixedint.W8))
		m.Push(intValue(t, 7, fixedint.W8))
		m.Push(intValue(t, 2, fixedint.W8))
		if err := MaxOf(m, 3); err != nil {
			t.Fatal(err)
		}
		if got := m.Pop(); got.Int.Int64() != 7 || got.Int.Width() != fixedint.W8 {
			t.Errorf("maxOf = %v", got.Int)
		}
		m.Push(intValue(t, -3, fixedint.W64))
		m.Push(intValue(t, 7, fixedint.W64))
		if err := MinOf(m, 2); err != nil {
			t.Fatal(err)
		}
		if got := m.Pop(); got.Int.Int64() != -3 {
			t.Errorf("minOf = %v", got.Int)
		}
	})

	t.Run("Abs", func(t *testing.T) {
		m.Reset()
		m.Push(intValue(t, -5, fixedint.W32))
		if err := Abs(m, 1); err != nil {
			t.Fatal(err)
		}
		if got := m.Pop().Int.Int64(); got != 5 {
			t.Errorf("abs(-5) = %d", got)
		}
		m.Push(intValue(t, -2147483648, fixedint.W32))
		if err := Abs(m, 1); err != nil {
			t.Fatal(err)
		}
		if got := m.Pop().Int.Int64(); got != -2147483648 {
			t.Errorf("abs(MIN) = %d", got)
		}
	})

	t.Run("ErrorRequireCheck", func(t *testing.T) {
		m.Reset()
		m.PushString("bad")
		if err := Error(m, 1); !errors.Is(err, ErrIllegalState) || err.Error() != "IllegalStateException: bad" {
			t.Errorf("error() = %v", err)
		}
		m.Push(value.FromBool(false))
		if err := Require(m, 1); !errors.Is(err, ErrIllegalArgument) {
			t.Errorf("require(false) = %v", err)
		}
		m.Push(value.FromBool(false))
		if err := Check(m, 1); !errors.Is(err, ErrIllegalState) {
			t.Errorf("check(false) = %v", err)
		}
		m.Push(value.FromBool(true))
		if err := Check(m, 1); err != nil {
			t.Errorf("check(true) = %v", err)
		}
	})
}

func TestBuiltinErrors(t *testing.T) {
	m := vm.GetMachine()
	defer vm.PutMachine(m)

	tests := []struct {
		name string
		fn   vm.HostFunction
		args []value.Value
	}{
		{"AbsString", Abs, []value.Value{value.FromString(0, 0)}},
		{"MaxOfMixed", MaxOf, []value.Value{value.FromBool(true), intValue(t, 1, fixedint.W32)}},
		{"RequireInt", Require, []value.Value{intValue(t, 1, fixedint.W32)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m.Reset()
			for _, a := range tt.args {
				m.Push(a)
			}
			if err := tt.fn(m, len(tt.args)); err == nil {
				t.Errorf("expected error")
			}
		})
	}
}

func TestSignatures(t *testing.T) {
	i32, i8 := value.IntKind(fixedint.W32), value.IntKind(fixedint.W8)
	tests := []struct {
		name    string
		args    []value.Kind
		want    value.Kind
		wantErr bool
	}{
		{"println", nil, value.KindUnit, false},
		{"println", []value.Kind{i32, i32}, value.Kind{}, true},
		{"maxOf", []value.Kind{i8, i8}, i8, false},
		{"maxOf", []value.Kind{i8, i32}, value.Kind{}, true},
		{"minOf", []value.Kind{i32}, value.Kind{}, true},
		{"abs", []value.Kind{value.KindString}, value.Kind{}, true},
		{"require", []value.Kind{value.KindBool}, value.KindUnit, false},
	}
	for _, tt := range tests {
		_, f, ok := Lookup(tt.name)
		if !ok {
			t.Fatalf("%s not found", tt.name)
		}
		got, err := f.Result(tt.args)
		if (err != nil) != tt.wantErr || (err == nil && got != tt.want) {
			t.Errorf("%s%v = %v, %v", tt.name, tt.args, got, err)
		}
		if err != nil && !errors.Is(err, ErrSignature) {
			t.Errorf("%s error %v is not ErrSignature", tt.name, err)
		}
	}
	if _, _, ok := Lookup("listOf"); ok {
		t.Error("listOf should not resolve")
	}
}

func TestInstallOrder(t *testing.T) {
	m := &vm.Machine{}
	Install(m)
	if len(m.HostRegistry) != len(Builtins) {
		t.Fatalf("registered %d of %d", len(m.HostRegistry), len(Builtins))
	}
}
