package fixedint

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrRange matches every *RangeError under errors.Is.
	ErrRange          = errors.New("fixedint: value out of range")
	ErrDivisionByZero = errors.New("fixedint: division by zero")
	ErrSyntax         = errors.New("fixedint: invalid integer literal")
)

// RangeError reports a literal that does not fit the requested width.
type RangeError struct {
	Value *big.Int
	Width Width
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("fixedint: %s does not fit a %s signed integer [%s, %s]",
		e.Value, e.Width, e.Width.Min(), e.Width.Max())
}

func (e *RangeError) Is(target error) bool {
	return target == ErrRange
}
