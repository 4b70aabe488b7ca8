package fixedint_test

import (
	"errors"
	"math/big"
	"math/rand/v2"
	"testing"

	"github.com/expr-lang/expr"

	"github.com/agenthands/ktguide/pkg/core/fixedint"
)

func lit(t *testing.T, v int64, w fixedint.Width) fixedint.Int {
	t.Helper()
	i, err := fixedint.FromInt64(v, w)
	if err != nil {
		t.Fatalf("FromInt64(%d, %s): %v", v, w, err)
	}
	return i
}

func TestLiteralRoundTrip(t *testing.T) {
	one := big.NewInt(1)
	for _, w := range fixedint.Widths {
		for _, v := range []*big.Int{w.Min(), w.Max(), big.NewInt(0), big.NewInt(-1), big.NewInt(7)} {
			i, err := fixedint.FromLiteral(v, w)
			if err != nil {
				t.Fatalf("%s: FromLiteral(%s): %v", w, v, err)
			}
			if i.Big().Cmp(v) != 0 {
				t.Errorf("%s: read back %s, want %s", w, i, v)
			}
			if i.Width() != w {
				t.Errorf("%s: width %s", w, i.Width())
			}
		}
		for _, v := range []*big.Int{new(big.Int).Sub(w.Min(), one), new(big.Int).Add(w.Max(), one)} {
			_, err := fixedint.FromLiteral(v, w)
			var re *fixedint.RangeError
			if !errors.As(err, &re) {
				t.Fatalf("%s: FromLiteral(%s) err = %v, want *RangeError", w, v, err)
			}
			if !errors.Is(err, fixedint.ErrRange) {
				t.Errorf("%s: errors.Is(err, ErrRange) = false", w)
			}
			if re.Width != w || re.Value.Cmp(v) != 0 {
				t.Errorf("%s: RangeError = %+v", w, re)
			}
		}
	}
}

func TestOverflowWraps(t *testing.T) {
	tests := []struct {
		name string
		got  fixedint.Int
		want int64
	}{
		{"int max plus one", fixedint.Add(lit(t, 2147483647, fixedint.W32), lit(t, 1, fixedint.W32)), -2147483648},
		{"int min minus one", fixedint.Sub(lit(t, -2147483648, fixedint.W32), lit(t, 1, fixedint.W32)), 2147483647},
		{"negate int min", fixedint.Neg(lit(t, -2147483648, fixedint.W32)), -2147483648},
		{"byte max plus one", fixedint.Add(lit(t, 127, fixedint.W8), lit(t, 1, fixedint.W8)), -128},
		{"short mul", fixedint.Mul(lit(t, 300, fixedint.W16), lit(t, 300, fixedint.W16)), 24464},
		{"long max plus one", fixedint.Add(lit(t, 9223372036854775807, fixedint.W64), lit(t, 1, fixedint.W64)), -9223372036854775808},
		{"negate long min", fixedint.Neg(lit(t, -9223372036854775808, fixedint.W64)), -9223372036854775808},
		{"byte times byte", fixedint.Mul(lit(t, 16, fixedint.W8), lit(t, 16, fixedint.W8)), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got.Int64() != tt.want {
				t.Errorf("got %d, want %d", tt.got.Int64(), tt.want)
			}
		})
	}
}

func TestDivision(t *testing.T) {
	five := lit(t, 5, fixedint.W32)
	zero := lit(t, 0, fixedint.W32)
	if _, err := fixedint.Div(five, zero); !errors.Is(err, fixedint.ErrDivisionByZero) {
		t.Errorf("Div by zero err = %v", err)
	}
	if _, err := fixedint.Rem(five, zero); !errors.Is(err, fixedint.ErrDivisionByZero) {
		t.Errorf("Rem by zero err = %v", err)
	}

	tests := []struct {
		a, b     int64
		w        fixedint.Width
		quo, rem int64
	}{
		{7, 2, fixedint.W32, 3, 1},
		{-7, 2, fixedint.W32, -3, -1},
		{7, -2, fixedint.W32, -3, 1},
		{-128, -1, fixedint.W8, -128, 0},
		{-2147483648, -1, fixedint.W32, -2147483648, 0},
		{-9223372036854775808, -1, fixedint.W64, -9223372036854775808, 0},
	}
	for _, tt := range tests {
		a, b := lit(t, tt.a, tt.w), lit(t, tt.b, tt.w)
		q, err := fixedint.Div(a, b)
		if err != nil {
			t.Fatal(err)
		}
		r, err := fixedint.Rem(a, b)
		if err != nil {
			t.Fatal(err)
		}
		if q.Int64() != tt.quo || r.Int64() != tt.rem {
			t.Errorf("%d /%% %d (%s) = %d, %d; want %d, %d", tt.a, tt.b, tt.w, q.Int64(), r.Int64(), tt.quo, tt.rem)
		}
	}
}

func TestMixedWidthPromotes(t *testing.T) {
	b := lit(t, 127, fixedint.W8)
	l := lit(t, 1, fixedint.W64)
	sum := fixedint.Add(b, l)
	if sum.Width() != fixedint.W64 || sum.Int64() != 128 {
		t.Errorf("Byte+Long = %s (%s), want 128 (64-bit)", sum, sum.Width())
	}
	neg := lit(t, -1, fixedint.W16)
	if w := fixedint.Widen(neg, fixedint.W64); w.Int64() != -1 || w.Width() != fixedint.W64 {
		t.Errorf("Widen(-1) = %s (%s)", w, w.Width())
	}
	if w := fixedint.Widen(neg, fixedint.W8); w.Width() != fixedint.W16 {
		t.Errorf("Widen to a narrower width changed the width to %s", w.Width())
	}
}

func TestZeroValueIsInt(t *testing.T) {
	var zero fixedint.Int
	five := lit(t, 5, fixedint.W8)
	tests := []struct {
		name string
		got  fixedint.Int
		want int64
	}{
		{"ZeroPlusByte", fixedint.Add(zero, five), 5},
		{"ZeroMinusByte", fixedint.Sub(zero, five), -5},
		{"ByteMinusZero", fixedint.Sub(five, zero), 5},
		{"ZeroOrByte", fixedint.Or(zero, five), 5},
		{"ZeroPlusZero", fixedint.Add(zero, zero), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got.Int64() != tt.want || tt.got.Width() != fixedint.W32 {
				t.Errorf("got %s (%s), want %d (32-bit)", tt.got, tt.got.Width(), tt.want)
			}
		})
	}
	top := lit(t, 2147483647, fixedint.W32)
	if got := fixedint.Add(fixedint.Add(zero, top), lit(t, 1, fixedint.W8)); got.Int64() != -2147483648 {
		t.Errorf("zero-based Int should still wrap at 32 bits, got %s", got)
	}
	if q, err := fixedint.Div(zero, five); err != nil || q.Int64() != 0 || q.Width() != fixedint.W32 {
		t.Errorf("0 / 5 = %s (%s), %v", q, q.Width(), err)
	}
}

func TestConvertAndWrap(t *testing.T) {
	if got := fixedint.Convert(lit(t, 300, fixedint.W32), fixedint.W8); got.Int64() != 44 {
		t.Errorf("300.toByte() = %s", got)
	}
	if got := fixedint.Convert(lit(t, 4294967295, fixedint.W64), fixedint.W32); got.Int64() != -1 {
		t.Errorf("4294967295L.toInt() = %s", got)
	}
	huge, _ := new(big.Int).SetString("18446744073709551617", 10) // 2^64 + 1
	if got := fixedint.Wrap(huge, fixedint.W64); got.Int64() != 1 {
		t.Errorf("Wrap(2^64+1) = %s", got)
	}
	if got := fixedint.Wrap(big.NewInt(-129), fixedint.W8); got.Int64() != 127 {
		t.Errorf("Wrap(-129, 8) = %s", got)
	}
}

func TestBitwise(t *testing.T) {
	one := lit(t, 1, fixedint.W32)
	minusOne := lit(t, -1, fixedint.W32)
	tests := []struct {
		name string
		got  fixedint.Int
		want int64
	}{
		{"1 shl 31", fixedint.Shl(one, lit(t, 31, fixedint.W32)), -2147483648},
		{"1 shl 32 masks", fixedint.Shl(one, lit(t, 32, fixedint.W32)), 1},
		{"-1 shr 28", fixedint.Shr(minusOne, lit(t, 28, fixedint.W32)), -1},
		{"-1 ushr 28", fixedint.Ushr(minusOne, lit(t, 28, fixedint.W32)), 15},
		{"byte -1 ushr 4", fixedint.Ushr(lit(t, -1, fixedint.W8), lit(t, 4, fixedint.W32)), 15},
		{"inv 0", fixedint.Inv(lit(t, 0, fixedint.W32)), -1},
		{"6 and 3", fixedint.And(lit(t, 6, fixedint.W32), lit(t, 3, fixedint.W32)), 2},
		{"6 or 3", fixedint.Or(lit(t, 6, fixedint.W32), lit(t, 3, fixedint.W32)), 7},
		{"6 xor 3", fixedint.Xor(lit(t, 6, fixedint.W32), lit(t, 3, fixedint.W32)), 5},
	}
	for _, tt := range tests {
		if tt.got.Int64() != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, tt.got.Int64(), tt.want)
		}
	}
}

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		text    string
		want    string
		width   fixedint.Width
		wantErr error
	}{
		{text: "0", want: "0", width: fixedint.W32},
		{text: "1_000_000", want: "1000000", width: fixedint.W32},
		{text: "2147483647", want: "2147483647", width: fixedint.W32},
		{text: "2147483648", want: "2147483648", width: fixedint.W64},
		{text: "1L", want: "1", width: fixedint.W64},
		{text: "0xFF", want: "255", width: fixedint.W32},
		{text: "0xFFFFFFFF", want: "4294967295", width: fixedint.W64},
		{text: "0b1010", want: "10", width: fixedint.W32},
		{text: "9223372036854775808", wantErr: fixedint.ErrRange},
		{text: "1_", wantErr: fixedint.ErrSyntax},
		{text: "0x", wantErr: fixedint.ErrSyntax},
		{text: "012", wantErr: fixedint.ErrSyntax},
		{text: "0b12", wantErr: fixedint.ErrSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := fixedint.Parse(tt.text)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got.String() != tt.want || got.Width() != tt.width {
				t.Errorf("got %s (%s), want %s (%s)", got, got.Width(), tt.want, tt.width)
			}
		})
	}
}

// TestLongMatchesGoInt checks 64-bit wraparound against expr, whose integer
// arithmetic is Go's native int arithmetic.
func TestLongMatchesGoInt(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	ops := []struct {
		src string
		fn  func(a, b fixedint.Int) fixedint.Int
	}{
		{"a + b", fixedint.Add},
		{"a - b", fixedint.Sub},
		{"a * b", fixedint.Mul},
	}
	for i := 0; i < 200; i++ {
		x, y := r.Int64(), r.Int64()
		if i%2 == 0 {
			y = int64(r.Int32())
		}
		a, b := lit(t, x, fixedint.W64), lit(t, y, fixedint.W64)
		for _, op := range ops {
			out, err := expr.Eval(op.src, map[string]any{"a": int(x), "b": int(y)})
			if err != nil {
				t.Fatalf("expr %q: %v", op.src, err)
			}
			want, ok := out.(int)
			if !ok {
				t.Fatalf("expr %q returned %T", op.src, out)
			}
			if got := op.fn(a, b); got.Int64() != int64(want) {
				t.Errorf("%d, %d: %s = %d, want %d", x, y, op.src, got.Int64(), want)
			}
		}
	}
}

// TestNarrowMatchesModularArithmetic checks every width against the exact
// result reduced modulo 2^width.
func TestNarrowMatchesModularArithmetic(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	for _, w := range fixedint.Widths {
		span := new(big.Int).Lsh(big.NewInt(1), uint(w))
		for i := 0; i < 100; i++ {
			x := fixedint.Convert(lit(t, r.Int64(), fixedint.W64), w)
			y := fixedint.Convert(lit(t, r.Int64(), fixedint.W64), w)
			exact := new(big.Int).Mul(x.Big(), y.Big())
			exact.Mod(exact, span)
			if exact.Cmp(w.Max()) > 0 {
				exact.Sub(exact, span)
			}
			if got := fixedint.Mul(x, y); got.Big().Cmp(exact) != 0 {
				t.Errorf("%s: %s * %s = %s, want %s", w, x, y, got, exact)
			}
		}
	}
}
