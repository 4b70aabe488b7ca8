package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/scott-cotton/cli"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/agenthands/ktguide/pkg/compiler/joiner"
	"github.com/agenthands/ktguide/pkg/compiler/lexer"
	"github.com/agenthands/ktguide/pkg/compiler/python"
	"github.com/agenthands/ktguide/pkg/config"
	"github.com/agenthands/ktguide/pkg/debug"
)

func split(cfg *splitConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Split.Parse(cc, args)
	if err != nil {
		return err
	}
	inputs, err := readInputs(cc, args)
	if err != nil {
		return err
	}
	usePython := cfg.Python || cfg.Settings != nil && cfg.Settings.Dialect == config.DialectPython

	if cfg.Trace {
		defer traceJoins(cc.Out)()
	}

	if cfg.Check != "" {
		want, err := os.ReadFile(cfg.Check)
		if err != nil {
			return fmt.Errorf("error reading golden file: %w", err)
		}
		var got bytes.Buffer
		for _, in := range inputs {
			writeSplit(&got, plainColors(), in, usePython, len(inputs) > 1)
		}
		if !writeDiff(cc.Out, newColors(cfg.colorEnabled(cc.Out)), string(want), got.String()) {
			return cli.ExitCodeErr(1)
		}
		return nil
	}

	c := newColors(cfg.colorEnabled(cc.Out))
	bad := 0
	for _, in := range inputs {
		bad += writeSplit(cc.Out, c, in, usePython, len(inputs) > 1)
	}
	if bad > 0 {
		return cli.ExitCodeErr(1)
	}
	return nil
}

// traceJoins sends boundary decisions to w until the returned function
// restores the previous output and switches.
func traceJoins(w io.Writer) func() {
	prev := debug.SetOutput(w)
	join, emit, vm := debug.Join(), debug.Emit(), debug.VM()
	debug.Set(true, emit, vm)
	return func() {
		debug.Set(join, emit, vm)
		debug.SetOutput(prev)
	}
}

// writeSplit prints the statements of in, one per line, and returns how many
// problems it reported.
func writeSplit(w io.Writer, c *colors, in input, usePython, header bool) int {
	if header {
		fmt.Fprintf(w, "== %s\n", in.name)
	}
	if usePython {
		return writePython(w, c, string(in.data))
	}
	return writeKotlin(w, c, in.data)
}

func span(first, last int) string {
	if first == last {
		return fmt.Sprintf("%d", first)
	}
	return fmt.Sprintf("%d-%d", first, last)
}

func writeKotlin(w io.Writer, c *colors, src []byte) int {
	bad := 0
	if tok, ok := lexer.FirstError(lexer.Tokenize(src)); ok {
		fmt.Fprintln(w, c.Error("line %d: invalid token %q", tok.Line, tok.Text(src)))
		bad++
	}
	var walk func(stmts []joiner.Statement, indent string)
	walk = func(stmts []joiner.Statement, indent string) {
		for i := range stmts {
			st := &stmts[i]
			fmt.Fprintf(w, "%s%s: %s\n", indent, c.Span("%s", span(st.FirstLine, st.LastLine)), st.Text(src))
			for _, block := range st.Blocks {
				walk(block, indent+"  ")
			}
		}
	}
	walk(joiner.SplitSource(src), "")
	if !joiner.Complete(src) {
		fmt.Fprintln(w, c.Error("incomplete: the input ends inside a statement"))
		bad++
	}
	return bad
}

func writePython(w io.Writer, c *colors, src string) int {
	bad := 0
	for _, st := range python.Split(src) {
		kind, err := python.Check(st)
		prefix := c.Span("%s", span(st.FirstLine, st.LastLine))
		if err != nil {
			fmt.Fprintf(w, "%s: %s  %s\n", prefix, st.Text, c.Error("# %v", err))
			bad++
			continue
		}
		fmt.Fprintf(w, "%s: %s  # %s\n", prefix, st.Text, kind)
	}
	return bad
}

// writeDiff prints a line diff of want and got and reports whether they
// were equal.
func writeDiff(w io.Writer, c *colors, want, got string) bool {
	if want == got {
		return true
	}
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(want, got)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	for _, d := range diffs {
		text := strings.TrimSuffix(d.Text, "\n")
		for _, line := range strings.Split(text, "\n") {
			switch d.Type {
			case diffpatch.DiffInsert:
				fmt.Fprintln(w, c.Insert("+%s", line))
			case diffpatch.DiffDelete:
				fmt.Fprintln(w, c.Delete("-%s", line))
			default:
				fmt.Fprintf(w, " %s\n", line)
			}
		}
	}
	return false
}
