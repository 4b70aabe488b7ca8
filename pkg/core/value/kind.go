package value

import "github.com/agenthands/ktguide/pkg/core/fixedint"

// Kind is a static type: the tag plus, for integers, the width.
type Kind struct {
	Type  Type
	Width fixedint.Width
}

var (
	KindUnit   = Kind{Type: TypeUnit}
	KindBool   = Kind{Type: TypeBool}
	KindString = Kind{Type: TypeString}
)

func IntKind(w fixedint.Width) Kind {
	return Kind{Type: TypeInt, Width: w}
}

// IsInt reports whether k is one of the integer kinds.
func (k Kind) IsInt() bool {
	return k.Type == TypeInt
}

var intNames = map[fixedint.Width]string{
	fixedint.W8:  "Byte",
	fixedint.W16: "Short",
	fixedint.W32: "Int",
	fixedint.W64: "Long",
}

// String returns the Kotlin type name.
func (k Kind) String() string {
	switch k.Type {
	case TypeInt:
		if n, ok := intNames[k.Width]; ok {
			return n
		}
		return "Int"
	case TypeBool:
		return "Boolean"
	case TypeString:
		return "String"
	}
	return "Unit"
}

// ParseKind maps a Kotlin type name to its Kind.
func ParseKind(name string) (Kind, bool) {
	switch name {
	case "Boolean":
		return KindBool, true
	case "String":
		return KindString, true
	case "Unit":
		return KindUnit, true
	}
	for w, n := range intNames {
		if n == name {
			return IntKind(w), true
		}
	}
	return Kind{}, false
}
