package parser

import (
	"errors"
	"fmt"

	"github.com/agenthands/ktguide/pkg/compiler/ast"
	"github.com/agenthands/ktguide/pkg/compiler/lexer"
)

// MaxDepth bounds expression nesting.
const MaxDepth = 256

// Error is a syntax error in one logical statement.
type Error struct {
	Line int
	Msg  string
	// Incomplete is set when the tokens ran out before the statement did.
	Incomplete bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Parser parses the tokens of a single logical statement, as produced by
// the joiner. It never sees newlines.
type Parser struct {
	toks  []lexer.Token
	pos   int
	open  int // brackets consumed but not yet closed
	depth int
}

func NewParser(toks []lexer.Token) *Parser {
	return &Parser{toks: toks}
}

// StartsStatement reports whether toks can stand alone as a statement. A
// statement that is complete except for brackets left open at the end also
// qualifies: the open-bracket rule continues it, not the grammar.
func StartsStatement(toks []lexer.Token) bool {
	if len(toks) == 0 {
		return false
	}
	p := NewParser(toks)
	_, err := p.ParseStatement()
	if err == nil {
		return true
	}
	var perr *Error
	return errors.As(err, &perr) && perr.Incomplete && p.open > 0
}

// ParseStatement parses all remaining tokens as one statement.
func (p *Parser) ParseStatement() (ast.Statement, error) {
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, p.errorf("unexpected %s after statement", p.cur().Kind)
	}
	return stmt, nil
}

func (p *Parser) atEnd() bool {
	return p.pos >= len(p.toks)
}

func (p *Parser) cur() lexer.Token {
	if p.atEnd() {
		tok := lexer.Token{Kind: lexer.KindEOF}
		if len(p.toks) > 0 {
			last := p.toks[len(p.toks)-1]
			tok.Line = last.Line
			tok.Offset = last.Offset + last.Length
		}
		return tok
	}
	return p.toks[p.pos]
}

func (p *Parser) next() lexer.Token {
	tok := p.cur()
	if p.atEnd() {
		return tok
	}
	p.pos++
	switch tok.Class() {
	case lexer.ClassOpen:
		p.open++
	case lexer.ClassClose:
		if p.open > 0 {
			p.open--
		}
	}
	return tok
}

func (p *Parser) errorf(format string, args ...any) *Error {
	return &Error{
		Line:       int(p.cur().Line),
		Msg:        fmt.Sprintf(format, args...),
		Incomplete: p.atEnd(),
	}
}

func (p *Parser) expect(kind lexer.Kind) (lexer.Token, error) {
	if p.cur().Kind != kind {
		if p.atEnd() {
			return lexer.Token{}, p.errorf("expected %s, got end of statement", kind)
		}
		return lexer.Token{}, p.errorf("expected %s, got %s", kind, p.cur().Kind)
	}
	return p.next(), nil
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	switch p.cur().Kind {
	case lexer.KindVal, lexer.KindVar:
		return p.parseValDecl()
	case lexer.KindReturn, lexer.KindBreak, lexer.KindContinue:
		tok := p.next()
		if p.atEnd() || tok.Kind != lexer.KindReturn {
			return &ast.Jump{Token: tok}, nil
		}
		value, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		return &ast.Jump{Token: tok, Value: value}, nil
	case lexer.KindThrow:
		tok := p.next()
		value, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		return &ast.Jump{Token: tok, Value: value}, nil
	case lexer.KindFun, lexer.KindClass, lexer.KindWhile, lexer.KindFor, lexer.KindDo, lexer.KindTry, lexer.KindWhen:
		return nil, p.errorf("%s statements are not supported", p.cur().Kind)
	}

	x, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if !isAssignOp(p.cur().Kind) {
		return &ast.ExprStmt{X: x}, nil
	}
	switch x.(type) {
	case *ast.Identifier, *ast.Member, *ast.Index:
	default:
		return nil, p.errorf("cannot assign to this expression")
	}
	op := p.next()
	value, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	return &ast.Assign{Target: x, Op: op, Value: value}, nil
}

func (p *Parser) parseValDecl() (ast.Statement, error) {
	tok := p.next()
	name, err := p.expect(lexer.KindIdentifier)
	if err != nil {
		return nil, err
	}
	decl := &ast.ValDecl{Token: tok, Name: name, Mutable: tok.Kind == lexer.KindVar}
	if p.cur().Kind == lexer.KindColon {
		p.next()
		if decl.Type, err = p.parseType(); err != nil {
			return nil, err
		}
	}
	if p.cur().Kind == lexer.KindAssign {
		p.next()
		if decl.Value, err = p.parseExpr(0); err != nil {
			return nil, err
		}
	}
	return decl, nil
}

// parseType accepts a dotted name, optional generic arguments and a trailing
// '?'.
func (p *Parser) parseType() ([]lexer.Token, error) {
	start := p.pos
	if _, err := p.expect(lexer.KindIdentifier); err != nil {
		return nil, err
	}
	for p.cur().Kind == lexer.KindDot {
		p.next()
		if _, err := p.expect(lexer.KindIdentifier); err != nil {
			return nil, err
		}
	}
	if p.cur().Kind == lexer.KindLess {
		depth := 0
		for {
			switch p.next().Kind {
			case lexer.KindLess:
				depth++
			case lexer.KindGreater:
				depth--
			case lexer.KindEOF:
				return nil, p.errorf("unterminated type arguments")
			}
			if depth == 0 {
				break
			}
		}
	}
	if p.cur().Kind == lexer.KindQuestion {
		p.next()
	}
	return p.toks[start:p.pos], nil
}

func isAssignOp(k lexer.Kind) bool {
	switch k {
	case lexer.KindAssign, lexer.KindPlusAssign, lexer.KindMinusAssign,
		lexer.KindStarAssign, lexer.KindSlashAssign, lexer.KindPercentAssign:
		return true
	}
	return false
}
