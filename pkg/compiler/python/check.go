package python

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-python/gpython/ast"
	"github.com/go-python/gpython/parser"
	"github.com/go-python/gpython/py"
)

var ErrSyntax = errors.New("python: syntax error")

// SyntaxError reports a logical line gpython rejected.
type SyntaxError struct {
	Line int
	Text string
	Err  error
}

// Error is a single line. gpython renders its exceptions as a multi-line
// traceback ending in "Kind: message"; only that last line is kept.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, summary(e.Err))
}

func summary(err error) string {
	lines := strings.Split(strings.TrimSpace(err.Error()), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return "invalid syntax"
}

func (e *SyntaxError) Unwrap() []error { return []error{ErrSyntax, e.Err} }

// Check parses one logical line on its own and returns the kind of
// statement it is. Compound headers, dependent clauses and jumps are given
// the minimal context they need to parse alone.
func Check(st Statement) (string, error) {
	src, pick := wrap(strings.TrimLeft(st.Text, " \t"))
	mod, err := parser.Parse(strings.NewReader(src), "<string>", py.ExecMode)
	if err != nil {
		return "", &SyntaxError{Line: st.FirstLine, Text: st.Text, Err: err}
	}
	module, ok := mod.(*ast.Module)
	if !ok || len(module.Body) == 0 {
		return "", &SyntaxError{Line: st.FirstLine, Text: st.Text, Err: fmt.Errorf("expected *ast.Module")}
	}
	return Describe(pick(module.Body)), nil
}

// CheckSource parses a whole Python file.
func CheckSource(src string) error {
	if _, err := parser.Parse(strings.NewReader(src), "<string>", py.ExecMode); err != nil {
		return fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return nil
}

func last(body []ast.Stmt) ast.Stmt  { return body[len(body)-1] }
func first(body []ast.Stmt) ast.Stmt { return body[0] }

func wrap(text string) (string, func([]ast.Stmt) ast.Stmt) {
	word, _, _ := strings.Cut(text, " ")
	word = strings.TrimRight(word, ":")
	if strings.HasSuffix(text, ":") {
		text += " pass"
	}
	switch word {
	case "else", "elif":
		return "if True: pass\n" + text + "\n", last
	case "except", "finally":
		return "try: pass\n" + text + "\n", last
	case "return", "yield":
		return "def _():\n " + text + "\n", func(body []ast.Stmt) ast.Stmt {
			if fn, ok := body[0].(*ast.FunctionDef); ok && len(fn.Body) > 0 {
				return fn.Body[0]
			}
			return body[0]
		}
	case "break", "continue":
		return "while True:\n " + text + "\n", func(body []ast.Stmt) ast.Stmt {
			if loop, ok := body[0].(*ast.While); ok && len(loop.Body) > 0 {
				return loop.Body[0]
			}
			return body[0]
		}
	}
	if strings.HasPrefix(text, "@") {
		return text + "\ndef _(): pass\n", first
	}
	return text + "\n", first
}

// Describe names the kind of a statement.
func Describe(stmt ast.Stmt) string {
	switch stmt.(type) {
	case *ast.Assign:
		return "assignment"
	case *ast.AugAssign:
		return "augmented assignment"
	case *ast.ExprStmt:
		return "expression"
	case *ast.If:
		return "if"
	case *ast.While:
		return "while"
	case *ast.For:
		return "for"
	case *ast.Try:
		return "try"
	case *ast.With:
		return "with"
	case *ast.FunctionDef:
		return "def"
	case *ast.Return:
		return "return"
	case *ast.Break:
		return "break"
	case *ast.Continue:
		return "continue"
	}
	return "statement"
}
