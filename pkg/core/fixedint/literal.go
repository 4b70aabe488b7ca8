package fixedint

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseLiteral parses the text of a Kotlin integer literal: decimal, 0x hex
// or 0b binary digits, optional '_' separators between digits and an
// optional L suffix. It returns the exact value and whether L was present.
// A sign is never part of a literal.
func ParseLiteral(text string) (*big.Int, bool, error) {
	long := strings.HasSuffix(text, "L")
	digits := strings.TrimSuffix(text, "L")
	base := 10
	switch {
	case hasPrefixFold(digits, "0x"):
		base, digits = 16, digits[2:]
	case hasPrefixFold(digits, "0b"):
		base, digits = 2, digits[2:]
	}
	if digits == "" || strings.ContainsAny(digits[:1], "_+-") || digits[len(digits)-1] == '_' {
		return nil, false, fmt.Errorf("%w: %q", ErrSyntax, text)
	}
	if base == 10 && len(digits) > 1 && digits[0] == '0' {
		return nil, false, fmt.Errorf("%w: %q has a leading zero", ErrSyntax, text)
	}
	v, ok := new(big.Int).SetString(strings.ReplaceAll(digits, "_", ""), base)
	if !ok {
		return nil, false, fmt.Errorf("%w: %q", ErrSyntax, text)
	}
	return v, long, nil
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// Infer types an unannotated literal value: 32 bits when it fits and no L
// suffix was written, 64 bits otherwise. Values beyond 64 bits fail with a
// *RangeError.
func Infer(v *big.Int, long bool) (Int, error) {
	if !long {
		if i, err := FromLiteral(v, W32); err == nil {
			return i, nil
		}
	}
	return FromLiteral(v, W64)
}

// Parse combines ParseLiteral and Infer.
func Parse(text string) (Int, error) {
	v, long, err := ParseLiteral(text)
	if err != nil {
		return Int{}, err
	}
	return Infer(v, long)
}
