package lexer

// Line holds the tokens that start on one physical line.
type Line struct {
	Number int
	Tokens []Token
}

// Tokenize scans all of src. The trailing EOF token is not included.
func Tokenize(src []byte) []Token {
	s := NewScanner(src)
	var toks []Token
	for {
		tok := s.Next()
		if tok.Kind == KindEOF {
			return toks
		}
		toks = append(toks, tok)
	}
}

// Lines groups the tokens of src by the physical line they start on. Lines
// without tokens (blank lines, comment-only lines and lines covered by a
// multi-line string or comment) are omitted.
func Lines(src []byte) []Line {
	return Group(Tokenize(src))
}

// Group splits toks into runs that start on the same line.
func Group(toks []Token) []Line {
	var lines []Line
	for _, tok := range toks {
		n := int(tok.Line)
		if len(lines) == 0 || lines[len(lines)-1].Number != n {
			lines = append(lines, Line{Number: n})
		}
		last := &lines[len(lines)-1]
		last.Tokens = append(last.Tokens, tok)
	}
	return lines
}

// FirstError returns the first error token in toks.
func FirstError(toks []Token) (Token, bool) {
	for _, t := range toks {
		if t.Kind == KindError {
			return t, true
		}
	}
	return Token{}, false
}
