// Package stdlib provides the host functions scripts can call.
package stdlib

import (
	"errors"
	"fmt"
	"io"

	"github.com/agenthands/ktguide/pkg/core/fixedint"
	"github.com/agenthands/ktguide/pkg/core/value"
	"github.com/agenthands/ktguide/pkg/vm"
)

var (
	ErrIllegalState    = errors.New("IllegalStateException")
	ErrIllegalArgument = errors.New("IllegalArgumentException")
	// ErrSignature is returned at compile time for calls that match no
	// overload.
	ErrSignature = errors.New("no matching overload")
)

// Func describes a builtin. Result type-checks a call from the static kinds
// of its arguments.
type Func struct {
	Name   string
	Result func(args []value.Kind) (value.Kind, error)
	Fn     vm.HostFunction
}

// Builtins is indexed by host function number; Install registers them in
// this order.
var Builtins = []Func{
	{Name: "println", Result: optionalAny, Fn: Println},
	{Name: "print", Result: oneAny, Fn: Print},
	{Name: "maxOf", Result: sameInts, Fn: MaxOf},
	{Name: "minOf", Result: sameInts, Fn: MinOf},
	{Name: "abs", Result: oneInt, Fn: Abs},
	{Name: "error", Result: oneAny, Fn: Error},
	{Name: "require", Result: oneBool, Fn: Require},
	{Name: "check", Result: oneBool, Fn: Check},
}

// Lookup finds a builtin by name and returns its host function index.
func Lookup(name string) (int, Func, bool) {
	for i, f := range Builtins {
		if f.Name == name {
			return i, f, true
		}
	}
	return 0, Func{}, false
}

// Install registers every builtin on m.
func Install(m *vm.Machine) {
	for _, f := range Builtins {
		m.RegisterHostFunction(f.Fn)
	}
}

func optionalAny(args []value.Kind) (value.Kind, error) {
	if len(args) > 1 {
		return value.Kind{}, fmt.Errorf("%w: expected at most 1 argument", ErrSignature)
	}
	return value.KindUnit, nil
}

func oneAny(args []value.Kind) (value.Kind, error) {
	if len(args) != 1 {
		return value.Kind{}, fmt.Errorf("%w: expected 1 argument", ErrSignature)
	}
	return value.KindUnit, nil
}

func oneBool(args []value.Kind) (value.Kind, error) {
	if len(args) != 1 || args[0] != value.KindBool {
		return value.Kind{}, fmt.Errorf("%w: expected (Boolean)", ErrSignature)
	}
	return value.KindUnit, nil
}

func oneInt(args []value.Kind) (value.Kind, error) {
	if len(args) != 1 || !args[0].IsInt() {
		return value.Kind{}, fmt.Errorf("%w: expected one integer", ErrSignature)
	}
	return args[0], nil
}

// sameInts accepts two or more integers of one width, as Kotlin's maxOf and
// minOf overloads do.
func sameInts(args []value.Kind) (value.Kind, error) {
	if len(args) < 2 {
		return value.Kind{}, fmt.Errorf("%w: expected at least 2 arguments", ErrSignature)
	}
	for _, a := range args {
		if !a.IsInt() || a != args[0] {
			return value.Kind{}, fmt.Errorf("%w: arguments must share one integer type", ErrSignature)
		}
	}
	return args[0], nil
}

func pop(m *vm.Machine, argc int) []value.Value {
	args := make([]value.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = m.Pop()
	}
	return args
}

// Println: ( [val] -- unit )
func Println(m *vm.Machine, argc int) error {
	args := pop(m, argc)
	s := "\n"
	if len(args) == 1 {
		s = args[0].Format(m.Arena) + "\n"
	}
	if _, err := io.WriteString(m.Output(), s); err != nil {
		return err
	}
	m.Push(value.Unit)
	return nil
}

// Print: ( val -- unit )
func Print(m *vm.Machine, argc int) error {
	args := pop(m, argc)
	if len(args) == 1 {
		if _, err := io.WriteString(m.Output(), args[0].Format(m.Arena)); err != nil {
			return err
		}
	}
	m.Push(value.Unit)
	return nil
}

func extreme(m *vm.Machine, argc int, better func(c int) bool) error {
	args := pop(m, argc)
	if len(args) == 0 {
		return ErrSignature
	}
	best := args[0]
	for _, a := range args[1:] {
		if a.Type != value.TypeInt || best.Type != value.TypeInt {
			return vm.ErrTypeMismatch
		}
		if better(fixedint.Cmp(a.Int, best.Int)) {
			best = a
		}
	}
	m.Push(best)
	return nil
}

// MaxOf: ( a b ... -- max )
func MaxOf(m *vm.Machine, argc int) error {
	return extreme(m, argc, func(c int) bool { return c > 0 })
}

// MinOf: ( a b ... -- min )
func MinOf(m *vm.Machine, argc int) error {
	return extreme(m, argc, func(c int) bool { return c < 0 })
}

// Abs: ( a -- |a| ). The minimum value is its own absolute value.
func Abs(m *vm.Machine, argc int) error {
	args := pop(m, argc)
	if len(args) != 1 || args[0].Type != value.TypeInt {
		return vm.ErrTypeMismatch
	}
	a := args[0].Int
	if a.Int64() < 0 {
		a = fixedint.Neg(a)
	}
	m.Push(value.FromInt(a))
	return nil
}

// Error: ( msg -- ) always fails with the message.
func Error(m *vm.Machine, argc int) error {
	args := pop(m, argc)
	msg := ""
	if len(args) == 1 {
		msg = args[0].Format(m.Arena)
	}
	return fmt.Errorf("%w: %s", ErrIllegalState, msg)
}

// Require: ( cond -- unit )
func Require(m *vm.Machine, argc int) error {
	return assert(m, argc, ErrIllegalArgument, "Failed requirement.")
}

// Check: ( cond -- unit )
func Check(m *vm.Machine, argc int) error {
	return assert(m, argc, ErrIllegalState, "Check failed.")
}

func assert(m *vm.Machine, argc int, kind error, msg string) error {
	args := pop(m, argc)
	if len(args) != 1 || args[0].Type != value.TypeBool {
		return vm.ErrTypeMismatch
	}
	if !args[0].Bool() {
		return fmt.Errorf("%w: %s", kind, msg)
	}
	m.Push(value.Unit)
	return nil
}
