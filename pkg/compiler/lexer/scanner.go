package lexer

// Scanner performs lexical analysis on Kotlin source.
type Scanner struct {
	source []byte
	cursor int
	line   int
}

// NewScanner creates a new scanner for the given source.
func NewScanner(source []byte) *Scanner {
	return &Scanner{
		source: source,
		line:   1,
	}
}

// Reset re-initializes the scanner with new source for pool reuse.
func (s *Scanner) Reset(source []byte) {
	s.source = source
	s.cursor = 0
	s.line = 1
}

// Next returns the next token from the source. Comments and whitespace,
// newlines included, are skipped; every token records the line it starts on.
func (s *Scanner) Next() Token {
	for {
		s.skipWhitespace()
		if s.cursor >= len(s.source) {
			return Token{Kind: KindEOF, Offset: uint32(s.cursor), Line: uint32(s.line)}
		}
		if s.source[s.cursor] != '/' {
			break
		}
		switch s.peek() {
		case '/':
			s.skipLineComment()
			continue
		case '*':
			start := s.cursor
			if !s.skipBlockComment() {
				return s.token(KindError, start)
			}
			continue
		}
		break
	}

	start := s.cursor
	ch := s.source[s.cursor]

	switch {
	case ch == '"':
		return s.scanString()
	case ch == '\'':
		return s.scanChar()
	case isDigit(ch):
		return s.scanNumber()
	case isIdentStart(ch):
		return s.scanIdentifier()
	case ch == '`':
		return s.scanQuotedIdentifier()
	case ch == '@' && s.cursor+1 < len(s.source) && isIdentStart(s.source[s.cursor+1]):
		s.cursor++
		s.skipIdent()
		return Token{Kind: KindAnnotation, Offset: uint32(start), Length: uint32(s.cursor - start), Line: uint32(s.line)}
	}
	return s.scanOperator()
}

func (s *Scanner) token(kind Kind, start int) Token {
	return Token{Kind: kind, Offset: uint32(start), Length: uint32(s.cursor - start), Line: uint32(s.line)}
}

func (s *Scanner) skipWhitespace() {
	for s.cursor < len(s.source) {
		ch := s.source[s.cursor]
		if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\f' {
			s.cursor++
		} else if ch == '\n' {
			s.line++
			s.cursor++
		} else {
			break
		}
	}
}

func (s *Scanner) skipLineComment() {
	for s.cursor < len(s.source) && s.source[s.cursor] != '\n' {
		s.cursor++
	}
}

// skipBlockComment consumes a possibly nested /* */ comment. It reports false
// when the comment is not terminated.
func (s *Scanner) skipBlockComment() bool {
	depth := 0
	for s.cursor < len(s.source) {
		ch := s.source[s.cursor]
		switch {
		case ch == '/' && s.peek() == '*':
			depth++
			s.cursor += 2
		case ch == '*' && s.peek() == '/':
			depth--
			s.cursor += 2
			if depth == 0 {
				return true
			}
		default:
			if ch == '\n' {
				s.line++
			}
			s.cursor++
		}
	}
	return false
}

func (s *Scanner) scanString() Token {
	start, line := s.cursor, s.line
	if s.hasPrefix(`"""`) {
		s.cursor += 3
		for s.cursor < len(s.source) {
			if s.hasPrefix(`"""`) {
				s.cursor += 3
				// """ may be followed by more quotes that belong to the content
				for s.cursor < len(s.source) && s.source[s.cursor] == '"' {
					s.cursor++
				}
				return Token{Kind: KindString, Offset: uint32(start), Length: uint32(s.cursor - start), Line: uint32(line)}
			}
			if s.source[s.cursor] == '\n' {
				s.line++
			}
			s.cursor++
		}
		return Token{Kind: KindError, Offset: uint32(start), Length: uint32(s.cursor - start), Line: uint32(line)}
	}

	s.cursor++ // Skip opening '"'
	braces := 0
	for s.cursor < len(s.source) {
		ch := s.source[s.cursor]
		switch {
		case ch == '\n' && braces == 0:
			return s.token(KindError, start)
		case ch == '\\':
			s.cursor += 2
			continue
		case ch == '$' && s.peek() == '{':
			braces++
			s.cursor += 2
			continue
		case ch == '}' && braces > 0:
			braces--
		case ch == '"' && braces == 0:
			s.cursor++
			return Token{Kind: KindString, Offset: uint32(start), Length: uint32(s.cursor - start), Line: uint32(line)}
		case ch == '\n':
			s.line++
		}
		s.cursor++
	}
	if s.cursor > len(s.source) {
		s.cursor = len(s.source)
	}
	return Token{Kind: KindError, Offset: uint32(start), Length: uint32(s.cursor - start), Line: uint32(line)}
}

func (s *Scanner) scanChar() Token {
	start := s.cursor
	s.cursor++ // Skip opening '\''
	for s.cursor < len(s.source) && s.source[s.cursor] != '\'' {
		if s.source[s.cursor] == '\n' {
			return s.token(KindError, start)
		}
		if s.source[s.cursor] == '\\' {
			s.cursor++
		}
		s.cursor++
	}
	if s.cursor >= len(s.source) {
		s.cursor = len(s.source)
		return s.token(KindError, start)
	}
	s.cursor++ // Skip closing '\''
	if s.cursor-start == 2 {
		return s.token(KindError, start)
	}
	return s.token(KindChar, start)
}

func (s *Scanner) scanNumber() Token {
	start := s.cursor
	if s.source[s.cursor] == '0' && (s.peek() == 'x' || s.peek() == 'X' || s.peek() == 'b' || s.peek() == 'B') {
		s.cursor += 2
		for s.cursor < len(s.source) && (isHexDigit(s.source[s.cursor]) || s.source[s.cursor] == '_') {
			s.cursor++
		}
	} else {
		s.skipDigits()
		// 1.5 is a number, 1..5 is a range and 1.inc() is a call
		if s.cursor < len(s.source) && s.source[s.cursor] == '.' && isDigit(s.peek()) {
			s.cursor++
			s.skipDigits()
		}
		if s.cursor < len(s.source) && (s.source[s.cursor] == 'e' || s.source[s.cursor] == 'E') {
			s.cursor++
			if s.cursor < len(s.source) && (s.source[s.cursor] == '+' || s.source[s.cursor] == '-') {
				s.cursor++
			}
			s.skipDigits()
		}
	}
	if s.cursor < len(s.source) {
		switch s.source[s.cursor] {
		case 'L', 'f', 'F', 'u', 'U':
			s.cursor++
			if s.cursor < len(s.source) && s.source[s.cursor] == 'L' {
				s.cursor++
			}
		}
	}
	return s.token(KindNumber, start)
}

func (s *Scanner) skipDigits() {
	for s.cursor < len(s.source) && (isDigit(s.source[s.cursor]) || s.source[s.cursor] == '_') {
		s.cursor++
	}
}

func (s *Scanner) skipIdent() {
	for s.cursor < len(s.source) && isIdentPart(s.source[s.cursor]) {
		s.cursor++
	}
}

func (s *Scanner) scanIdentifier() Token {
	start := s.cursor
	s.skipIdent()
	kind := keyword(s.source[start:s.cursor])

	if s.cursor < len(s.source) && s.source[s.cursor] == '@' {
		switch {
		case kind.IsJump() || kind == KindThis:
			// return@label, this@Outer
			s.cursor++
			s.skipIdent()
		case kind == KindIdentifier:
			s.cursor++
			kind = KindLabel
		}
	}
	return s.token(kind, start)
}

func (s *Scanner) scanQuotedIdentifier() Token {
	start := s.cursor
	s.cursor++
	for s.cursor < len(s.source) && s.source[s.cursor] != '`' && s.source[s.cursor] != '\n' {
		s.cursor++
	}
	if s.cursor >= len(s.source) || s.source[s.cursor] != '`' {
		return s.token(KindError, start)
	}
	s.cursor++
	return s.token(KindIdentifier, start)
}

func (s *Scanner) scanOperator() Token {
	start := s.cursor
	ch := s.source[s.cursor]
	next := s.peek()
	kind := KindError
	n := 1

	switch ch {
	case '+':
		kind, n = pick(next, KindPlus, '+', KindIncrement, '=', KindPlusAssign)
	case '-':
		switch next {
		case '-':
			kind, n = KindDecrement, 2
		case '=':
			kind, n = KindMinusAssign, 2
		case '>':
			kind, n = KindArrow, 2
		default:
			kind = KindMinus
		}
	case '*':
		kind, n = pick(next, KindStar, '=', KindStarAssign, 0, 0)
	case '/':
		kind, n = pick(next, KindSlash, '=', KindSlashAssign, 0, 0)
	case '%':
		kind, n = pick(next, KindPercent, '=', KindPercentAssign, 0, 0)
	case '=':
		switch {
		case s.hasPrefix("==="):
			kind, n = KindIdentical, 3
		case next == '=':
			kind, n = KindEq, 2
		default:
			kind = KindAssign
		}
	case '!':
		switch {
		case s.hasPrefix("!=="):
			kind, n = KindNotIdentical, 3
		case next == '=':
			kind, n = KindNotEq, 2
		case next == '!':
			kind, n = KindBangBang, 2
		case s.hasWord("!in"):
			kind, n = KindNotIn, 3
		case s.hasWord("!is"):
			kind, n = KindNotIs, 3
		default:
			kind = KindBang
		}
	case '<':
		kind, n = pick(next, KindLess, '=', KindLessEq, 0, 0)
	case '>':
		kind, n = pick(next, KindGreater, '=', KindGreaterEq, 0, 0)
	case '&':
		if next == '&' {
			kind, n = KindAndAnd, 2
		}
	case '|':
		if next == '|' {
			kind, n = KindOrOr, 2
		}
	case '.':
		kind, n = pick(next, KindDot, '.', KindRange, 0, 0)
	case '?':
		kind, n = pick(next, KindQuestion, '.', KindSafeDot, ':', KindElvis)
	case ':':
		kind, n = pick(next, KindColon, ':', KindColonColon, 0, 0)
	case ',':
		kind = KindComma
	case ';':
		kind = KindSemicolon
	case '(':
		kind = KindLParen
	case ')':
		kind = KindRParen
	case '[':
		kind = KindLBracket
	case ']':
		kind = KindRBracket
	case '{':
		kind = KindLBrace
	case '}':
		kind = KindRBrace
	}
	s.cursor += n
	return s.token(kind, start)
}

// pick chooses between a one-byte kind and up to two two-byte kinds keyed by
// the following byte.
func pick(next byte, single Kind, c1 byte, k1 Kind, c2 byte, k2 Kind) (Kind, int) {
	switch {
	case c1 != 0 && next == c1:
		return k1, 2
	case c2 != 0 && next == c2:
		return k2, 2
	}
	return single, 1
}

func (s *Scanner) peek() byte {
	if s.cursor+1 >= len(s.source) {
		return 0
	}
	return s.source[s.cursor+1]
}

func (s *Scanner) hasPrefix(p string) bool {
	return len(s.source)-s.cursor >= len(p) && string(s.source[s.cursor:s.cursor+len(p)]) == p
}

// hasWord is hasPrefix for operators spelled with a trailing keyword, like
// !in, which must not run into an identifier (!inside).
func (s *Scanner) hasWord(p string) bool {
	if !s.hasPrefix(p) {
		return false
	}
	end := s.cursor + len(p)
	return end >= len(s.source) || !isIdentPart(s.source[end])
}

func keyword(lit []byte) Kind {
	switch string(lit) {
	case "val":
		return KindVal
	case "var":
		return KindVar
	case "fun":
		return KindFun
	case "class":
		return KindClass
	case "if":
		return KindIf
	case "else":
		return KindElse
	case "when":
		return KindWhen
	case "while":
		return KindWhile
	case "for":
		return KindFor
	case "do":
		return KindDo
	case "return":
		return KindReturn
	case "break":
		return KindBreak
	case "continue":
		return KindContinue
	case "throw":
		return KindThrow
	case "try":
		return KindTry
	case "catch":
		return KindCatch
	case "finally":
		return KindFinally
	case "true":
		return KindTrue
	case "false":
		return KindFalse
	case "null":
		return KindNull
	case "this":
		return KindThis
	case "in":
		return KindIn
	case "is":
		return KindIs
	case "as":
		return KindAs
	}
	return KindIdentifier
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

// Bytes >= 0x80 are accepted so UTF-8 letters can appear in names.
func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch >= 0x80
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
