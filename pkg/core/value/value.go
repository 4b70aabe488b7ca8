package value

import (
	"unsafe"

	"github.com/agenthands/ktguide/pkg/core/fixedint"
)

// Type represents the tag in the Value tagged union.
type Type uint8

const (
	TypeUnit Type = iota
	TypeInt
	TypeBool
	TypeString
)

// Value is a tagged union. Integers live in Int; Data holds a boolean as 0
// or 1, or a string's packed offset and length into the arena.
type Value struct {
	Type Type
	Int  fixedint.Int
	Data uint64
}

var Unit = Value{Type: TypeUnit}

func FromInt(i fixedint.Int) Value {
	return Value{Type: TypeInt, Int: i}
}

func FromBool(b bool) Value {
	v := Value{Type: TypeBool}
	if b {
		v.Data = 1
	}
	return v
}

// FromString references length bytes of the arena starting at offset.
func FromString(offset, length uint32) Value {
	return Value{Type: TypeString, Data: PackString(offset, length)}
}

// PackString encodes offset and length into the Data register.
func PackString(offset, length uint32) uint64 {
	return (uint64(offset) << 32) | uint64(length)
}

// UnpackString retrieves a string view from the arena without copying.
func UnpackString(data uint64, arena []byte) string {
	offset := uint32(data >> 32)
	length := uint32(data)

	if uint64(offset)+uint64(length) > uint64(len(arena)) {
		panic("value: memory access violation")
	}
	if length == 0 {
		return ""
	}
	return unsafe.String(&arena[offset], length)
}

// Bool reports the truth of a TypeBool value.
func (v Value) Bool() bool {
	return v.Data != 0
}

// Kind returns the static kind of v.
func (v Value) Kind() Kind {
	if v.Type == TypeInt {
		return IntKind(v.Int.Width())
	}
	return Kind{Type: v.Type}
}

// Format renders v the way Kotlin's toString does.
func (v Value) Format(arena []byte) string {
	switch v.Type {
	case TypeInt:
		return v.Int.String()
	case TypeBool:
		if v.Bool() {
			return "true"
		}
		return "false"
	case TypeString:
		return UnpackString(v.Data, arena)
	}
	return "kotlin.Unit"
}

// Equal compares two values structurally. Integers of different widths are
// compared by value.
func Equal(a, b Value, arena []byte) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case TypeInt:
		return fixedint.Equal(a.Int, b.Int)
	case TypeString:
		return UnpackString(a.Data, arena) == UnpackString(b.Data, arena)
	case TypeUnit:
		return true
	}
	return a.Data == b.Data
}
