// Package python splits Python source into logical lines and checks them
// with gpython's parser. It exists to contrast Python's line joining with
// Kotlin's: Python joins only inside brackets or after a backslash, never
// because of a dangling operator.
package python

import "strings"

// Statement is one logical line. Text has comments and continuation
// backslashes removed and joined lines separated by one space; it keeps
// the indentation of its first line.
type Statement struct {
	Text      string
	FirstLine int
	LastLine  int
}

type splitter struct {
	out   []Statement
	buf   []byte
	depth int
	line  int
	first int
	skip  bool // drop indentation after a join
}

// Split returns the logical lines of src. Blank and comment-only lines are
// dropped.
func Split(src string) []Statement {
	s := &splitter{line: 1}
	for i := 0; i < len(src); i++ {
		c := src[i]
		if s.skip && (c == ' ' || c == '\t') {
			continue
		}
		s.skip = false

		switch {
		case c == '\r':
		case c == '#':
			for i+1 < len(src) && src[i+1] != '\n' {
				i++
			}
		case c == '\'' || c == '"':
			i = s.str(src, i) - 1
		case c == '\\' && i+1 < len(src) && src[i+1] == '\n':
			i++
			s.join()
		case c == '\n':
			if s.depth > 0 {
				s.join()
				continue
			}
			s.emit()
			s.line++
		default:
			if c != ' ' && c != '\t' && s.first == 0 {
				s.first = s.line
			}
			switch c {
			case '(', '[', '{':
				s.depth++
			case ')', ']', '}':
				if s.depth > 0 {
					s.depth--
				}
			}
			s.buf = append(s.buf, c)
		}
	}
	s.emit()
	return s.out
}

// join continues the logical line on the next physical line.
func (s *splitter) join() {
	s.buf = []byte(strings.TrimRight(string(s.buf), " \t"))
	s.buf = append(s.buf, ' ')
	s.line++
	s.skip = true
}

func (s *splitter) emit() {
	text := strings.TrimRight(string(s.buf), " \t")
	if strings.TrimSpace(text) != "" {
		s.out = append(s.out, Statement{Text: text, FirstLine: s.first, LastLine: s.line})
	}
	s.buf = s.buf[:0]
	s.first = 0
}

// str copies the string literal starting at i and returns the offset after
// it. Triple-quoted strings may span lines; an unterminated single-quoted
// string stops at the newline.
func (s *splitter) str(src string, i int) int {
	if s.first == 0 {
		s.first = s.line
	}
	q := src[i : i+1]
	if strings.HasPrefix(src[i:], q+q+q) {
		q = q + q + q
	}
	j := i + len(q)
	for j < len(src) {
		switch {
		case src[j] == '\\':
			if j+1 < len(src) && src[j+1] == '\n' {
				s.line++
			}
			j += 2
			continue
		case strings.HasPrefix(src[j:], q):
			j += len(q)
			s.buf = append(s.buf, src[i:j]...)
			return j
		case src[j] == '\n':
			if len(q) == 1 {
				s.buf = append(s.buf, src[i:j]...)
				return j
			}
			s.line++
		}
		j++
	}
	if j > len(src) {
		j = len(src)
	}
	s.buf = append(s.buf, src[i:j]...)
	return j
}
