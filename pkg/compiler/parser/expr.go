package parser

import (
	"github.com/agenthands/ktguide/pkg/compiler/ast"
	"github.com/agenthands/ktguide/pkg/compiler/lexer"
)

// Binding powers, loosest first. Kotlin's grammar orders them this way.
const (
	precNone = iota
	precDisjunction
	precConjunction
	precEquality
	precComparison
	precNamedCheck // in !in is !is
	precElvis
	precInfix // a shl b
	precRange
	precAdditive
	precMultiplicative
	precAs
)

func infixPrec(k lexer.Kind) int {
	switch k {
	case lexer.KindOrOr:
		return precDisjunction
	case lexer.KindAndAnd:
		return precConjunction
	case lexer.KindEq, lexer.KindNotEq, lexer.KindIdentical, lexer.KindNotIdentical:
		return precEquality
	case lexer.KindLess, lexer.KindGreater, lexer.KindLessEq, lexer.KindGreaterEq:
		return precComparison
	case lexer.KindIn, lexer.KindNotIn, lexer.KindIs, lexer.KindNotIs:
		return precNamedCheck
	case lexer.KindElvis:
		return precElvis
	case lexer.KindIdentifier:
		return precInfix
	case lexer.KindRange:
		return precRange
	case lexer.KindPlus, lexer.KindMinus:
		return precAdditive
	case lexer.KindStar, lexer.KindSlash, lexer.KindPercent:
		return precMultiplicative
	case lexer.KindAs:
		return precAs
	}
	return precNone
}

func (p *Parser) parseExpr(minPrec int) (ast.Expr, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > MaxDepth {
		return nil, p.errorf("expression nested too deeply")
	}

	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		prec := infixPrec(p.cur().Kind)
		if prec == precNone || prec <= minPrec {
			return left, nil
		}
		op := p.next()
		switch op.Kind {
		case lexer.KindIs, lexer.KindNotIs, lexer.KindAs:
			if op.Kind == lexer.KindAs && p.cur().Kind == lexer.KindQuestion {
				p.next()
			}
			typ, err := p.parseType()
			if err != nil {
				return nil, err
			}
			left = &ast.TypeCheck{Op: op, X: left, Type: typ}
		default:
			right, err := p.parseExpr(prec)
			if err != nil {
				return nil, err
			}
			left = &ast.Binary{Op: op, X: left, Y: right}
		}
	}
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	switch p.cur().Kind {
	case lexer.KindMinus, lexer.KindPlus, lexer.KindBang, lexer.KindIncrement, lexer.KindDecrement:
		op := p.next()
		p.depth++
		defer func() { p.depth-- }()
		if p.depth > MaxDepth {
			return nil, p.errorf("expression nested too deeply")
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: op, X: x}, nil
	}
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return p.parsePostfix(x)
}

func (p *Parser) parsePostfix(x ast.Expr) (ast.Expr, error) {
	for {
		switch p.cur().Kind {
		case lexer.KindDot, lexer.KindSafeDot, lexer.KindColonColon:
			dot := p.next()
			name := p.cur()
			if name.Kind != lexer.KindIdentifier && name.Kind != lexer.KindClass {
				return nil, p.errorf("expected member name after %s", dot.Kind)
			}
			p.next()
			x = &ast.Member{X: x, Dot: dot, Name: name}
		case lexer.KindLParen:
			lparen := p.next()
			args, err := p.parseArgs(lexer.KindRParen)
			if err != nil {
				return nil, err
			}
			call := &ast.Call{Fun: x, Lparen: lparen, Args: args}
			if p.cur().Kind == lexer.KindLBrace {
				lambda, err := p.parseLambda()
				if err != nil {
					return nil, err
				}
				call.Args = append(call.Args, lambda)
			}
			x = call
		case lexer.KindLBrace:
			// trailing lambda: run { ... }
			lbrace := p.cur()
			lambda, err := p.parseLambda()
			if err != nil {
				return nil, err
			}
			x = &ast.Call{Fun: x, Lparen: lbrace, Args: []ast.Expr{lambda}}
		case lexer.KindLBracket:
			lbrack := p.next()
			args, err := p.parseArgs(lexer.KindRBracket)
			if err != nil {
				return nil, err
			}
			if len(args) == 0 {
				return nil, p.errorf("empty index")
			}
			x = &ast.Index{X: x, Lbrack: lbrack, Args: args}
		case lexer.KindIncrement, lexer.KindDecrement, lexer.KindBangBang:
			x = &ast.Postfix{Op: p.next(), X: x}
		default:
			return x, nil
		}
	}
}

// parseArgs parses a comma separated list up to and including the closing
// bracket. A trailing comma is allowed.
func (p *Parser) parseArgs(closing lexer.Kind) ([]ast.Expr, error) {
	var args []ast.Expr
	for p.cur().Kind != closing {
		arg, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.cur().Kind != lexer.KindComma {
			break
		}
		p.next()
	}
	if _, err := p.expect(closing); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.cur()
	switch tok.Kind {
	case lexer.KindNumber:
		return &ast.IntLiteral{Token: p.next()}, nil
	case lexer.KindString:
		return &ast.StringLiteral{Token: p.next()}, nil
	case lexer.KindChar:
		return &ast.CharLiteral{Token: p.next()}, nil
	case lexer.KindTrue, lexer.KindFalse:
		return &ast.BoolLiteral{Token: p.next()}, nil
	case lexer.KindNull, lexer.KindThis:
		return &ast.Keyword{Token: p.next()}, nil
	case lexer.KindIdentifier:
		return &ast.Identifier{Token: p.next()}, nil
	case lexer.KindLParen:
		lparen := p.next()
		x, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.KindRParen); err != nil {
			return nil, err
		}
		return &ast.Paren{Lparen: lparen, X: x}, nil
	case lexer.KindIf:
		return p.parseIf()
	case lexer.KindLBrace:
		return p.parseLambda()
	case lexer.KindColonColon:
		dot := p.next()
		name, err := p.expect(lexer.KindIdentifier)
		if err != nil {
			return nil, err
		}
		return &ast.Member{Dot: dot, Name: name}, nil
	case lexer.KindEOF:
		return nil, p.errorf("unexpected end of statement")
	case lexer.KindError:
		return nil, p.errorf("invalid token")
	}
	return nil, p.errorf("unexpected %s", tok.Kind)
}

func (p *Parser) parseIf() (ast.Expr, error) {
	node := &ast.If{Token: p.next()}
	if _, err := p.expect(lexer.KindLParen); err != nil {
		return nil, err
	}
	var err error
	if node.Cond, err = p.parseExpr(0); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.KindRParen); err != nil {
		return nil, err
	}
	if node.Then, err = p.parseExpr(0); err != nil {
		return nil, err
	}
	if p.cur().Kind == lexer.KindSemicolon && p.pos+1 < len(p.toks) && p.toks[p.pos+1].Kind == lexer.KindElse {
		p.next()
	}
	if p.cur().Kind == lexer.KindElse {
		p.next()
		if node.Else, err = p.parseExpr(0); err != nil {
			return nil, err
		}
	}
	return node, nil
}

// parseLambda consumes a balanced brace group without interpreting it.
func (p *Parser) parseLambda() (ast.Expr, error) {
	lbrace := p.next()
	start := p.pos
	depth := 1
	for depth > 0 {
		if p.atEnd() {
			return nil, p.errorf("unclosed {")
		}
		switch p.next().Kind {
		case lexer.KindLBrace:
			depth++
		case lexer.KindRBrace:
			depth--
		}
	}
	return &ast.Lambda{Lbrace: lbrace, Body: p.toks[start : p.pos-1]}, nil
}
