// Package fixedint implements two's-complement signed integers of width 8,
// 16, 32 and 64 bits. Arithmetic silently keeps the lower width bits of the
// true result, the way Kotlin's Byte, Short, Int and Long behave. Only literal
// construction and division are checked.
package fixedint

import (
	"fmt"
	"math/big"
	"strconv"
)

// Width is the bit width of an Int.
type Width uint8

const (
	W8  Width = 8
	W16 Width = 16
	W32 Width = 32
	W64 Width = 64
)

// Widths lists the supported widths from narrowest to widest.
var Widths = []Width{W8, W16, W32, W64}

// ParseWidth maps a bit count to a Width.
func ParseWidth(bits int) (Width, error) {
	w := Width(bits)
	if bits < 0 || bits > 64 || !w.Valid() {
		return 0, fmt.Errorf("fixedint: unsupported width %d (want 8, 16, 32 or 64)", bits)
	}
	return w, nil
}

// Valid reports whether w is one of the supported widths.
func (w Width) Valid() bool {
	switch w {
	case W8, W16, W32, W64:
		return true
	}
	return false
}

// Bits returns the bit count.
func (w Width) Bits() int { return int(w) }

// Min returns -2^(w-1).
func (w Width) Min() *big.Int {
	return new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), uint(w)-1))
}

// Max returns 2^(w-1)-1.
func (w Width) Max() *big.Int {
	m := new(big.Int).Lsh(big.NewInt(1), uint(w)-1)
	return m.Sub(m, big.NewInt(1))
}

func (w Width) String() string {
	return strconv.Itoa(int(w)) + "-bit"
}

// Int is an immutable fixed-width signed integer. The zero Int is a 32-bit
// zero.
type Int struct {
	v int64
	w Width
}

// truncate keeps the low w bits of x and sign-extends them.
func truncate(x uint64, w Width) int64 {
	s := 64 - uint(w)
	return int64(x<<s) >> s
}

func mk(x uint64, w Width) Int {
	return Int{v: truncate(x, w), w: w}
}

// FromLiteral builds an Int from an exact value. It fails with a *RangeError
// when v is outside the signed range of w.
func FromLiteral(v *big.Int, w Width) (Int, error) {
	if !w.Valid() {
		return Int{}, fmt.Errorf("fixedint: unsupported width %d", uint8(w))
	}
	if v.Cmp(w.Min()) < 0 || v.Cmp(w.Max()) > 0 {
		return Int{}, &RangeError{Value: new(big.Int).Set(v), Width: w}
	}
	return Int{v: v.Int64(), w: w}, nil
}

// FromInt64 is FromLiteral for values that already fit in an int64.
func FromInt64(v int64, w Width) (Int, error) {
	return FromLiteral(big.NewInt(v), w)
}

// Wrap reduces v modulo 2^w into the signed range. It never fails.
func Wrap(v *big.Int, w Width) Int {
	m := new(big.Int).Lsh(big.NewInt(1), uint(w))
	r := new(big.Int).Mod(v, m)
	return mk(r.Uint64(), w)
}

// Width returns the bit width of a.
func (a Int) Width() Width {
	if a.w == 0 {
		return W32
	}
	return a.w
}

// Int64 returns the value sign-extended to 64 bits.
func (a Int) Int64() int64 { return a.v }

// Big returns the value as a new big.Int.
func (a Int) Big() *big.Int { return big.NewInt(a.v) }

// IsZero reports whether a is zero.
func (a Int) IsZero() bool { return a.v == 0 }

func (a Int) String() string {
	return strconv.FormatInt(a.v, 10)
}

// Widen reinterprets a at the wider width w. Widening never loses
// information; if w is not wider than a's width, a is returned unchanged.
func Widen(a Int, w Width) Int {
	if w <= a.Width() {
		return a
	}
	return Int{v: a.v, w: w}
}

// Convert changes a to width w, keeping only the low w bits when narrowing.
func Convert(a Int, w Width) Int {
	return mk(uint64(a.v), w)
}

// Promote widens the narrower of a and b so both share a width. Both
// results carry an explicit width, so a zero Int comes back as 32 bits.
func Promote(a, b Int) (Int, Int) {
	a.w, b.w = a.Width(), b.Width()
	switch {
	case a.w < b.w:
		return Widen(a, b.w), b
	case b.w < a.w:
		return a, Widen(b, a.w)
	}
	return a, b
}

// Add returns a+b with wraparound.
func Add(a, b Int) Int {
	a, b = Promote(a, b)
	return mk(uint64(a.v)+uint64(b.v), a.w)
}

// Sub returns a-b with wraparound.
func Sub(a, b Int) Int {
	a, b = Promote(a, b)
	return mk(uint64(a.v)-uint64(b.v), a.w)
}

// Mul returns a*b with wraparound.
func Mul(a, b Int) Int {
	a, b = Promote(a, b)
	return mk(uint64(a.v)*uint64(b.v), a.w)
}

// Neg returns -a with wraparound: the minimum value negates to itself.
func Neg(a Int) Int {
	return mk(-uint64(a.v), a.Width())
}

// Div returns a/b truncated toward zero. MIN / -1 wraps to MIN.
func Div(a, b Int) (Int, error) {
	a, b = Promote(a, b)
	if b.v == 0 {
		return Int{}, ErrDivisionByZero
	}
	return mk(uint64(a.v/b.v), a.w), nil
}

// Rem returns the remainder of truncated division; its sign follows a.
func Rem(a, b Int) (Int, error) {
	a, b = Promote(a, b)
	if b.v == 0 {
		return Int{}, ErrDivisionByZero
	}
	return mk(uint64(a.v%b.v), a.w), nil
}

// Cmp compares a and b after promotion and returns -1, 0 or +1.
func Cmp(a, b Int) int {
	a, b = Promote(a, b)
	switch {
	case a.v < b.v:
		return -1
	case a.v > b.v:
		return 1
	}
	return 0
}

// Equal reports whether a and b hold the same value after promotion.
func Equal(a, b Int) bool { return Cmp(a, b) == 0 }
