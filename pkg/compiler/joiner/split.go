package joiner

import (
	"strings"

	"github.com/agenthands/ktguide/pkg/compiler/lexer"
)

// Statement is one logical statement assembled from physical lines.
type Statement struct {
	// Tokens holds every token of the statement, block contents included.
	// Separating semicolons are dropped.
	Tokens    []lexer.Token
	FirstLine int
	LastLine  int
	// Blocks lists the statements of each brace block opened at this level,
	// in source order.
	Blocks [][]Statement
}

// Text returns the statement's tokens separated by single spaces.
func (s *Statement) Text(src []byte) string {
	var b strings.Builder
	for i, t := range s.Tokens {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t.Text(src))
	}
	return b.String()
}

type frame struct {
	stmts   []Statement
	cur     Statement
	depth   int  // open ( and [ within this block
	header  int  // depth of an if/while/for condition being read, or -1
	pending bool // a control header just closed and awaits its body
}

func newFrame() *frame {
	return &frame{header: -1}
}

func (f *frame) last() *lexer.Token {
	if len(f.cur.Tokens) == 0 {
		return nil
	}
	return &f.cur.Tokens[len(f.cur.Tokens)-1]
}

func (f *frame) finish() {
	if len(f.cur.Tokens) > 0 {
		f.stmts = append(f.stmts, f.cur)
	}
	f.cur = Statement{}
	f.depth = 0
	f.header = -1
	f.pending = false
}

type splitter struct {
	j      *Joiner
	frames []*frame
	// quiet suppresses decision tracing.
	quiet bool
}

func (s *splitter) top() *frame {
	return s.frames[len(s.frames)-1]
}

// add appends tok to the pending statement of every open frame, so outer
// statements carry the tokens of their blocks.
func (s *splitter) add(tok lexer.Token) {
	for _, f := range s.frames {
		if len(f.cur.Tokens) == 0 {
			f.cur.FirstLine = int(tok.Line)
		}
		f.cur.Tokens = append(f.cur.Tokens, tok)
		f.cur.LastLine = int(tok.Line)
	}
}

func (s *splitter) boundary(line []lexer.Token) {
	f := s.top()
	last := f.last()
	if last == nil {
		return
	}
	var d Decision
	var r Rule
	if f.pending && f.depth == 0 {
		d, r = Join, RuleControlHeader
		if lead := line[0]; lead.Kind == lexer.KindSemicolon {
			d = Split
		}
	} else {
		d, r = s.j.rule(f.depth, last, line)
	}
	if !s.quiet {
		trace(d, r, line)
	}
	if d == Split {
		f.finish()
	}
}

func (s *splitter) token(tok lexer.Token) {
	f := s.top()
	switch tok.Kind {
	case lexer.KindSemicolon:
		if f.depth == 0 {
			f.finish()
			return
		}
	case lexer.KindLParen, lexer.KindLBracket:
		if last := f.last(); tok.Kind == lexer.KindLParen && last != nil && isHeader(last.Kind) && f.depth == 0 {
			f.header = f.depth + 1
		}
		f.depth++
	case lexer.KindRParen, lexer.KindRBracket:
		if f.depth > 0 {
			f.depth--
		}
		if f.header > 0 && f.depth == f.header-1 {
			s.add(tok)
			f.header = -1
			f.pending = true
			return
		}
	case lexer.KindLBrace:
		f.pending = false
		s.add(tok)
		s.frames = append(s.frames, newFrame())
		return
	case lexer.KindRBrace:
		if len(s.frames) > 1 {
			s.pop()
		}
	}
	if f.header < 0 {
		f.pending = false
	}
	s.add(tok)
}

func (s *splitter) pop() {
	inner := s.top()
	inner.finish()
	s.frames = s.frames[:len(s.frames)-1]
	outer := s.top()
	outer.cur.Blocks = append(outer.cur.Blocks, inner.stmts)
}

func isHeader(k lexer.Kind) bool {
	switch k {
	case lexer.KindIf, lexer.KindWhile, lexer.KindFor, lexer.KindCatch:
		return true
	}
	return false
}

func (s *splitter) run(lines []lexer.Line) {
	s.frames = append(s.frames[:0], newFrame())
	for _, line := range lines {
		s.boundary(line.Tokens)
		for _, tok := range line.Tokens {
			s.token(tok)
		}
	}
}

// SplitSource runs Default.Split.
func SplitSource(src []byte) []Statement {
	return Default.Split(src)
}

// Split breaks src into logical statements. Lines inside a brace block are
// split on their own and reported through Statement.Blocks; the enclosing
// statement ends only after the closing brace. Unclosed blocks are closed at
// the end of input.
func (j *Joiner) Split(src []byte) []Statement {
	return j.SplitTokens(lexer.Tokenize(src))
}

// SplitTokens is Split over tokens that were already scanned, such as the
// body of a block. Token lines are kept as they are.
func (j *Joiner) SplitTokens(toks []lexer.Token) []Statement {
	s := &splitter{j: j}
	s.run(lexer.Group(toks))
	for len(s.frames) > 1 {
		s.pop()
	}
	f := s.top()
	f.finish()
	return f.stmts
}

// Complete reports whether src ends at a statement boundary, with every
// bracket and block closed and no operator or keyword left dangling. An
// interactive reader asks for more input while it returns false.
func (j *Joiner) Complete(src []byte) bool {
	toks := lexer.Tokenize(src)
	if len(toks) == 0 {
		return true
	}
	if last := toks[len(toks)-1]; last.Kind == lexer.KindError {
		text := last.Text(src)
		if strings.HasPrefix(text, `"""`) || strings.HasPrefix(text, "/*") {
			return false
		}
	}
	s := &splitter{j: j, quiet: true}
	s.run(lexer.Group(toks))
	if len(s.frames) > 1 {
		return false
	}
	f := s.top()
	if f.pending {
		return false
	}
	d, _ := j.rule(f.depth, f.last(), nil)
	return d == Split
}

// Complete runs Default.Complete.
func Complete(src []byte) bool {
	return Default.Complete(src)
}
