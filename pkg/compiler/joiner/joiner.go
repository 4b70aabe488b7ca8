// Package joiner decides where Kotlin statements end.
//
// Kotlin has no mandatory statement terminator. A newline ends a statement
// unless the statement obviously continues: a bracket is still open, the
// line ends in an operator, or the next line starts with something that
// cannot begin a statement. When both readings are grammatical, the lines
// stay separate: "1 + 2" followed by "+ 3" is two statements.
package joiner

import (
	"github.com/agenthands/ktguide/pkg/compiler/lexer"
	"github.com/agenthands/ktguide/pkg/compiler/parser"
	"github.com/agenthands/ktguide/pkg/debug"
)

// Decision is the outcome at a boundary between two physical lines.
type Decision uint8

const (
	Split Decision = iota
	Join
)

func (d Decision) String() string {
	if d == Join {
		return "JOIN"
	}
	return "SPLIT"
}

// Rule names the rule that produced a Decision.
type Rule uint8

const (
	RuleDefault           Rule = iota
	RuleOpenBracket            // ( or [ still open
	RuleNoPending              // nothing to continue
	RuleJump                   // bare return, break or continue
	RuleDanglingOperator       // line ends in an operator
	RuleDanglingKeyword        // line ends in a keyword that needs more
	RuleUnaryStart             // next line is a statement led by + or -
	RuleUnaryContinuation      // next line led by + or - cannot stand alone
	RuleLeadingOperator        // next line starts with . ?. && else ...
	RuleControlHeader          // if (...) awaiting its body
)

var ruleNames = [...]string{
	RuleDefault:           "no continuation",
	RuleOpenBracket:       "open bracket",
	RuleNoPending:         "no pending statement",
	RuleJump:              "complete jump",
	RuleDanglingOperator:  "dangling operator",
	RuleDanglingKeyword:   "dangling keyword",
	RuleUnaryStart:        "next line starts a statement",
	RuleUnaryContinuation: "next line cannot stand alone",
	RuleLeadingOperator:   "leading continuation token",
	RuleControlHeader:     "control header awaiting body",
}

func (r Rule) String() string {
	if int(r) < len(ruleNames) {
		return ruleNames[r]
	}
	return "rule(?)"
}

// Checker reports whether tokens can begin a statement of their own.
type Checker interface {
	StartsStatement(toks []lexer.Token) bool
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(toks []lexer.Token) bool

func (f CheckerFunc) StartsStatement(toks []lexer.Token) bool { return f(toks) }

// Joiner applies the continuation rules. The zero Joiner uses the Kotlin
// statement parser as its Checker.
type Joiner struct {
	Checker Checker
}

// Default is the Joiner used by the package-level functions.
var Default = &Joiner{}

func (j *Joiner) checker() Checker {
	if j == nil || j.Checker == nil {
		return CheckerFunc(parser.StartsStatement)
	}
	return j.Checker
}

// Decide runs Default.Decide.
func Decide(depth int, last *lexer.Token, next []lexer.Token) (Decision, int) {
	return Default.Decide(depth, last, next)
}

// Decide decides whether the line holding next continues the statement
// whose last significant token is last. depth counts the ( and [ that are
// still open; last is nil when there is nothing to continue. It returns the
// decision and the depth after next's brackets.
//
// Braces are not counted: a { opens a block whose lines are statements of
// their own, even after = or (. Callers that need to skip over a lambda or
// block body track braces themselves, as Split does.
func (j *Joiner) Decide(depth int, last *lexer.Token, next []lexer.Token) (Decision, int) {
	d, _ := j.DecideRule(depth, last, next)
	return d, Carry(depth, next)
}

// DecideRule is Decide reporting the rule instead of the carried depth.
func (j *Joiner) DecideRule(depth int, last *lexer.Token, next []lexer.Token) (Decision, Rule) {
	d, r := j.rule(depth, last, next)
	trace(d, r, next)
	return d, r
}

func trace(d Decision, r Rule, next []lexer.Token) {
	if !debug.Join() {
		return
	}
	line := 0
	if len(next) > 0 {
		line = int(next[0].Line)
	}
	debug.Logf("join: line %d: %s (%s)\n", line, d, r)
}

func (j *Joiner) rule(depth int, last *lexer.Token, next []lexer.Token) (Decision, Rule) {
	switch {
	case depth > 0:
		return Join, RuleOpenBracket
	case last == nil:
		return Split, RuleNoPending
	case last.Kind.IsJump():
		return Split, RuleJump
	}
	switch last.Class() {
	case lexer.ClassUnaryOrBinary, lexer.ClassBinaryOnly, lexer.ClassDot:
		return Join, RuleDanglingOperator
	}
	if last.Kind.NeedsMore() {
		return Join, RuleDanglingKeyword
	}
	if len(next) == 0 {
		return Split, RuleDefault
	}
	lead := next[0]
	if lead.Class() == lexer.ClassUnaryOrBinary {
		if j.checker().StartsStatement(next) {
			return Split, RuleUnaryStart
		}
		return Join, RuleUnaryContinuation
	}
	if lead.Kind.Continues() {
		return Join, RuleLeadingOperator
	}
	return Split, RuleDefault
}

// Carry returns depth adjusted by the ( [ ) ] in toks. It never drops below
// zero. Braces open blocks, not groupings, and are not counted.
func Carry(depth int, toks []lexer.Token) int {
	for _, t := range toks {
		switch t.Kind {
		case lexer.KindLParen, lexer.KindLBracket:
			depth++
		case lexer.KindRParen, lexer.KindRBracket:
			if depth > 0 {
				depth--
			}
		}
	}
	return depth
}
