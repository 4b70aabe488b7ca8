package main

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/scott-cotton/cli"

	"github.com/agenthands/ktguide/pkg/core/fixedint"
	"github.com/agenthands/ktguide/pkg/core/value"
)

type intOp struct {
	unary  func(a fixedint.Int) fixedint.Int
	binary func(a, b fixedint.Int) (fixedint.Int, error)
	shift  bool
}

func total(f func(a, b fixedint.Int) fixedint.Int) func(a, b fixedint.Int) (fixedint.Int, error) {
	return func(a, b fixedint.Int) (fixedint.Int, error) {
		return f(a, b), nil
	}
}

var intOps = map[string]intOp{
	"add":  {binary: total(fixedint.Add)},
	"sub":  {binary: total(fixedint.Sub)},
	"mul":  {binary: total(fixedint.Mul)},
	"div":  {binary: fixedint.Div},
	"rem":  {binary: fixedint.Rem},
	"and":  {binary: total(fixedint.And)},
	"or":   {binary: total(fixedint.Or)},
	"xor":  {binary: total(fixedint.Xor)},
	"shl":  {binary: total(fixedint.Shl), shift: true},
	"shr":  {binary: total(fixedint.Shr), shift: true},
	"ushr": {binary: total(fixedint.Ushr), shift: true},
	"neg":  {unary: fixedint.Neg},
	"inv":  {unary: fixedint.Inv},
}

func opNames() string {
	names := []string{"parse", "convert"}
	for name := range intOps {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func isIntOp(word string) bool {
	if word == "parse" || word == "convert" {
		return true
	}
	_, ok := intOps[word]
	return ok
}

// splitIntArgs separates the options in front of the operation word from
// the operands after it. Operands such as -128 are never read as options.
func splitIntArgs(args []string) (opts []string, op string, operands []string, ok bool) {
	for i, arg := range args {
		if isIntOp(arg) {
			return args[:i], arg, args[i+1:], true
		}
	}
	return args, "", nil, false
}

func intMain(cfg *intConfig, cc *cli.Context, args []string) error {
	opts, op, operands, ok := splitIntArgs(args)
	rest, err := cfg.Int.Parse(cc, opts)
	if err != nil {
		return err
	}
	if !ok || len(rest) != 0 || len(operands) == 0 {
		return fmt.Errorf("%w: int needs an operation (%s) and its operands", cli.ErrUsage, opNames())
	}
	w, err := fixedint.ParseWidth(cfg.Width)
	if err != nil {
		return fmt.Errorf("%w: %w", cli.ErrUsage, err)
	}
	c := newColors(cfg.colorEnabled(cc.Out))
	r, err := evalInt(w, op, operands)
	if err != nil {
		fmt.Fprintln(cc.Out, c.Error("%v", err))
		return cli.ExitCodeErr(1)
	}
	fmt.Fprintf(cc.Out, "%s: %s\n", c.Value("%s", r), value.IntKind(r.Width()))
	return nil
}

// parseOperand reads a literal with an optional leading minus sign as a
// value of width w.
func parseOperand(text string, w fixedint.Width) (fixedint.Int, error) {
	v, err := parseSigned(text)
	if err != nil {
		return fixedint.Int{}, err
	}
	return fixedint.FromLiteral(v, w)
}

func parseSigned(text string) (*big.Int, error) {
	neg := strings.HasPrefix(text, "-")
	v, _, err := fixedint.ParseLiteral(strings.TrimPrefix(text, "-"))
	if err != nil {
		return nil, err
	}
	if neg {
		v.Neg(v)
	}
	return v, nil
}

// evalInt applies op at width w. parse infers the width of a Kotlin
// literal instead, and convert narrows or widens a 64-bit value to w.
func evalInt(w fixedint.Width, op string, args []string) (fixedint.Int, error) {
	switch op {
	case "parse":
		if len(args) != 1 {
			return fixedint.Int{}, fmt.Errorf("%w: parse takes 1 operand", cli.ErrUsage)
		}
		return fixedint.Parse(args[0])
	case "convert":
		if len(args) != 1 {
			return fixedint.Int{}, fmt.Errorf("%w: convert takes 1 operand", cli.ErrUsage)
		}
		a, err := parseOperand(args[0], fixedint.W64)
		if err != nil {
			return fixedint.Int{}, err
		}
		return fixedint.Convert(a, w), nil
	}

	f, ok := intOps[op]
	if !ok {
		return fixedint.Int{}, fmt.Errorf("%w: unknown operation %q (want one of %s)", cli.ErrUsage, op, opNames())
	}
	if f.unary != nil {
		if len(args) != 1 {
			return fixedint.Int{}, fmt.Errorf("%w: %s takes 1 operand", cli.ErrUsage, op)
		}
		a, err := parseOperand(args[0], w)
		if err != nil {
			return fixedint.Int{}, err
		}
		return f.unary(a), nil
	}
	if len(args) != 2 {
		return fixedint.Int{}, fmt.Errorf("%w: %s takes 2 operands", cli.ErrUsage, op)
	}
	a, err := parseOperand(args[0], w)
	if err != nil {
		return fixedint.Int{}, err
	}
	bw := w
	if f.shift {
		bw = fixedint.W32
	}
	b, err := parseOperand(args[1], bw)
	if err != nil {
		return fixedint.Int{}, err
	}
	return f.binary(a, b)
}
