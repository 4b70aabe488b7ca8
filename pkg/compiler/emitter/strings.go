package emitter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agenthands/ktguide/pkg/compiler/ast"
	"github.com/agenthands/ktguide/pkg/compiler/lexer"
	"github.com/agenthands/ktguide/pkg/compiler/parser"
	"github.com/agenthands/ktguide/pkg/core/value"
	"github.com/agenthands/ktguide/pkg/vm"
)

// segment is a piece of a string literal: literal text, or the source of a
// $name or ${expr} template.
type segment struct {
	text string
	expr bool
}

// stringLiteral pushes a string literal, concatenating template values.
func (e *Emitter) stringLiteral(tok lexer.Token) (value.Kind, error) {
	segs, err := splitTemplate(e.text(tok))
	if err != nil {
		return value.Kind{}, e.errorf("%v", err)
	}
	if len(segs) == 0 || segs[0].expr {
		segs = append([]segment{{}}, segs...)
	}
	e.pushConst(e.packNewString(segs[0].text))
	for _, seg := range segs[1:] {
		if seg.expr {
			if _, err := e.template(seg.text, tok.Line); err != nil {
				return value.Kind{}, err
			}
		} else {
			e.pushConst(e.packNewString(seg.text))
		}
		e.emitOp(vm.OP_CONCAT, 0)
	}
	return value.KindString, nil
}

// template compiles the source of a template expression. Its tokens are
// offsets into the template text, so the emitter reads from it meanwhile.
func (e *Emitter) template(src string, line uint32) (value.Kind, error) {
	inner := []byte(src)
	toks := lexer.Tokenize(inner)
	for i := range toks {
		toks[i].Line = line
	}
	if bad, ok := lexer.FirstError(toks); ok {
		return value.Kind{}, e.errorf("invalid token %q in string template", bad.Text(inner))
	}
	node, err := parser.NewParser(toks).ParseStatement()
	if err != nil {
		return value.Kind{}, e.errorf("string template: %v", err)
	}
	stmt, ok := node.(*ast.ExprStmt)
	if !ok {
		return value.Kind{}, e.errorf("string template must be an expression")
	}
	saved := e.src
	e.src = inner
	defer func() { e.src = saved }()
	return e.expr(stmt.X)
}

// splitTemplate decodes the text of a string token. Escapes are processed
// in regular strings only; templates are recognized in both forms.
func splitTemplate(text string) ([]segment, error) {
	raw := strings.HasPrefix(text, `"""`)
	var body string
	if raw {
		body = text[3 : len(text)-3]
	} else {
		body = text[1 : len(text)-1]
	}

	var segs []segment
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, segment{text: lit.String()})
			lit.Reset()
		}
	}
	for i := 0; i < len(body); {
		c := body[i]
		switch {
		case c == '\\' && !raw:
			r, n, err := unescape(body[i:])
			if err != nil {
				return nil, err
			}
			lit.WriteRune(r)
			i += n
		case c == '$' && i+1 < len(body) && body[i+1] == '{':
			end, err := closeBrace(body, i+2)
			if err != nil {
				return nil, err
			}
			flush()
			segs = append(segs, segment{text: body[i+2 : end], expr: true})
			i = end + 1
		case c == '$' && i+1 < len(body) && isIdentStart(body[i+1]):
			j := i + 2
			for j < len(body) && isIdentPart(body[j]) {
				j++
			}
			flush()
			segs = append(segs, segment{text: body[i+1 : j], expr: true})
			i = j
		default:
			lit.WriteByte(c)
			i++
		}
	}
	flush()
	return segs, nil
}

func unescape(s string) (rune, int, error) {
	if len(s) < 2 {
		return 0, 0, fmt.Errorf("unterminated escape")
	}
	switch s[1] {
	case 't':
		return '\t', 2, nil
	case 'b':
		return '\b', 2, nil
	case 'n':
		return '\n', 2, nil
	case 'r':
		return '\r', 2, nil
	case '\'', '"', '\\', '$':
		return rune(s[1]), 2, nil
	case 'u':
		if len(s) < 6 {
			return 0, 0, fmt.Errorf("illegal escape %s", s)
		}
		n, err := strconv.ParseUint(s[2:6], 16, 16)
		if err != nil {
			return 0, 0, fmt.Errorf("illegal escape %s", s[:6])
		}
		return rune(n), 6, nil
	}
	return 0, 0, fmt.Errorf("illegal escape \\%c", s[1])
}

// closeBrace finds the brace closing a template that starts at i, skipping
// nested braces and quoted strings.
func closeBrace(s string, i int) (int, error) {
	depth := 0
	for ; i < len(s); i++ {
		switch s[i] {
		case '"':
			for i++; i < len(s) && s[i] != '"'; i++ {
				if s[i] == '\\' {
					i++
				}
			}
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return i, nil
			}
			depth--
		}
	}
	return 0, fmt.Errorf("unterminated string template")
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}
