package lexer

// Kind represents the type of token identified by the scanner.
type Kind uint8

const (
	KindEOF Kind = iota
	KindError
	KindIdentifier
	KindNumber
	KindString
	KindChar
	KindLabel      // name@
	KindAnnotation // @Name

	// keywords
	KindVal
	KindVar
	KindFun
	KindClass
	KindIf
	KindElse
	KindWhen
	KindWhile
	KindFor
	KindDo
	KindReturn
	KindBreak
	KindContinue
	KindThrow
	KindTry
	KindCatch
	KindFinally
	KindTrue
	KindFalse
	KindNull
	KindThis
	KindIn
	KindNotIn // !in
	KindIs
	KindNotIs // !is
	KindAs

	// operators
	KindPlus
	KindMinus
	KindStar
	KindSlash
	KindPercent
	KindAssign
	KindPlusAssign
	KindMinusAssign
	KindStarAssign
	KindSlashAssign
	KindPercentAssign
	KindIncrement
	KindDecrement
	KindEq
	KindNotEq
	KindIdentical
	KindNotIdentical
	KindLess
	KindGreater
	KindLessEq
	KindGreaterEq
	KindAndAnd
	KindOrOr
	KindBang
	KindBangBang // !!
	KindDot
	KindSafeDot // ?.
	KindElvis   // ?:
	KindRange   // ..
	KindColonColon
	KindArrow // ->
	KindColon
	KindQuestion
	KindComma
	KindSemicolon

	// brackets
	KindLParen
	KindRParen
	KindLBracket
	KindRBracket
	KindLBrace
	KindRBrace
)

var kindNames = [...]string{
	KindEOF:           "EOF",
	KindError:         "error",
	KindIdentifier:    "identifier",
	KindNumber:        "number",
	KindString:        "string",
	KindChar:          "char",
	KindLabel:         "label",
	KindAnnotation:    "annotation",
	KindVal:           "val",
	KindVar:           "var",
	KindFun:           "fun",
	KindClass:         "class",
	KindIf:            "if",
	KindElse:          "else",
	KindWhen:          "when",
	KindWhile:         "while",
	KindFor:           "for",
	KindDo:            "do",
	KindReturn:        "return",
	KindBreak:         "break",
	KindContinue:      "continue",
	KindThrow:         "throw",
	KindTry:           "try",
	KindCatch:         "catch",
	KindFinally:       "finally",
	KindTrue:          "true",
	KindFalse:         "false",
	KindNull:          "null",
	KindThis:          "this",
	KindIn:            "in",
	KindNotIn:         "!in",
	KindIs:            "is",
	KindNotIs:         "!is",
	KindAs:            "as",
	KindPlus:          "+",
	KindMinus:         "-",
	KindStar:          "*",
	KindSlash:         "/",
	KindPercent:       "%",
	KindAssign:        "=",
	KindPlusAssign:    "+=",
	KindMinusAssign:   "-=",
	KindStarAssign:    "*=",
	KindSlashAssign:   "/=",
	KindPercentAssign: "%=",
	KindIncrement:     "++",
	KindDecrement:     "--",
	KindEq:            "==",
	KindNotEq:         "!=",
	KindIdentical:     "===",
	KindNotIdentical:  "!==",
	KindLess:          "<",
	KindGreater:       ">",
	KindLessEq:        "<=",
	KindGreaterEq:     ">=",
	KindAndAnd:        "&&",
	KindOrOr:          "||",
	KindBang:          "!",
	KindBangBang:      "!!",
	KindDot:           ".",
	KindSafeDot:       "?.",
	KindElvis:         "?:",
	KindRange:         "..",
	KindColonColon:    "::",
	KindArrow:         "->",
	KindColon:         ":",
	KindQuestion:      "?",
	KindComma:         ",",
	KindSemicolon:     ";",
	KindLParen:        "(",
	KindRParen:        ")",
	KindLBracket:      "[",
	KindRBracket:      "]",
	KindLBrace:        "{",
	KindRBrace:        "}",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "Kind(?)"
}

// Class is the role a token plays at a line boundary.
type Class uint8

const (
	ClassOther Class = iota
	ClassOperand
	ClassUnaryOrBinary // + -
	ClassBinaryOnly    // operators with no prefix form
	ClassDot           // . ?.
	ClassOpen
	ClassClose
)

func (c Class) String() string {
	switch c {
	case ClassOperand:
		return "operand"
	case ClassUnaryOrBinary:
		return "unary-or-binary"
	case ClassBinaryOnly:
		return "binary-only"
	case ClassDot:
		return "dot"
	case ClassOpen:
		return "open"
	case ClassClose:
		return "close"
	}
	return "other"
}

// Token represents a lexical unit pointing back to the source.
type Token struct {
	Kind   Kind
	Offset uint32
	Length uint32
	Line   uint32
}

// Text returns the source text of the token.
func (t Token) Text(src []byte) string {
	return string(src[t.Offset : t.Offset+t.Length])
}

// Class classifies the token for line joining.
func (t Token) Class() Class {
	return t.Kind.Class()
}

func (k Kind) Class() Class {
	switch k {
	case KindIdentifier, KindNumber, KindString, KindChar,
		KindTrue, KindFalse, KindNull, KindThis:
		return ClassOperand
	case KindPlus, KindMinus:
		return ClassUnaryOrBinary
	case KindStar, KindSlash, KindPercent,
		KindAssign, KindPlusAssign, KindMinusAssign, KindStarAssign, KindSlashAssign, KindPercentAssign,
		KindEq, KindNotEq, KindIdentical, KindNotIdentical,
		KindLess, KindGreater, KindLessEq, KindGreaterEq,
		KindAndAnd, KindOrOr, KindElvis, KindRange, KindArrow, KindColon, KindComma:
		return ClassBinaryOnly
	case KindDot, KindSafeDot:
		return ClassDot
	case KindLParen, KindLBracket, KindLBrace:
		return ClassOpen
	case KindRParen, KindRBracket, KindRBrace:
		return ClassClose
	}
	return ClassOther
}

// IsJump reports whether k is a jump keyword that is a complete statement
// on its own.
func (k Kind) IsJump() bool {
	return k == KindReturn || k == KindBreak || k == KindContinue
}

// NeedsMore reports whether a statement ending in keyword k cannot be
// complete.
func (k Kind) NeedsMore() bool {
	switch k {
	case KindVal, KindVar, KindFun, KindClass, KindIf, KindElse, KindWhen,
		KindWhile, KindFor, KindDo, KindThrow, KindTry, KindCatch, KindFinally,
		KindIn, KindNotIn, KindIs, KindNotIs, KindAs:
		return true
	}
	return false
}

// Continues reports whether a line starting with k extends the previous
// statement.
func (k Kind) Continues() bool {
	switch k.Class() {
	case ClassBinaryOnly, ClassDot:
		return true
	}
	return k == KindElse || k == KindCatch || k == KindFinally
}
