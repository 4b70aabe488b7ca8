package ast

import "github.com/agenthands/ktguide/pkg/compiler/lexer"

// Node represents any node in the Abstract Syntax Tree.
type Node interface {
	Pos() lexer.Token
}

// Expr represents an expression that yields a value.
type Expr interface {
	Node
	exprNode()
}

// Statement represents a standalone unit of execution.
type Statement interface {
	Node
	stmtNode()
}

// Program is the root node.
type Program struct {
	Statements []Statement
}

// ValDecl: val|var NAME (: TYPE)? (= EXPR)?
type ValDecl struct {
	Token   lexer.Token // val or var
	Name    lexer.Token
	Type    []lexer.Token // qualified type name, nil when omitted
	Value   Expr
	Mutable bool
}

func (d *ValDecl) Pos() lexer.Token { return d.Token }
func (d *ValDecl) stmtNode()        {}

// Assign: TARGET op EXPR where op is = or a compound assignment.
type Assign struct {
	Target Expr
	Op     lexer.Token
	Value  Expr
}

func (a *Assign) Pos() lexer.Token { return a.Op }
func (a *Assign) stmtNode()        {}

// Jump: return, break, continue or throw.
type Jump struct {
	Token lexer.Token
	Value Expr // nil for bare jumps
}

func (j *Jump) Pos() lexer.Token { return j.Token }
func (j *Jump) stmtNode()        {}

// ExprStmt is an expression evaluated for its effect.
type ExprStmt struct {
	X Expr
}

func (e *ExprStmt) Pos() lexer.Token { return e.X.Pos() }
func (e *ExprStmt) stmtNode()        {}

// Literal values
type IntLiteral struct {
	Token lexer.Token
}

func (n *IntLiteral) Pos() lexer.Token { return n.Token }
func (n *IntLiteral) exprNode()        {}

type StringLiteral struct {
	Token lexer.Token
}

func (s *StringLiteral) Pos() lexer.Token { return s.Token }
func (s *StringLiteral) exprNode()        {}

type CharLiteral struct {
	Token lexer.Token
}

func (c *CharLiteral) Pos() lexer.Token { return c.Token }
func (c *CharLiteral) exprNode()        {}

type BoolLiteral struct {
	Token lexer.Token
}

func (b *BoolLiteral) Pos() lexer.Token { return b.Token }
func (b *BoolLiteral) exprNode()        {}

// Keyword covers null and this.
type Keyword struct {
	Token lexer.Token
}

func (k *Keyword) Pos() lexer.Token { return k.Token }
func (k *Keyword) exprNode()        {}

type Identifier struct {
	Token lexer.Token
}

func (i *Identifier) Pos() lexer.Token { return i.Token }
func (i *Identifier) exprNode()        {}

// Unary is a prefix operation: - + ! ++ --
type Unary struct {
	Op lexer.Token
	X  Expr
}

func (u *Unary) Pos() lexer.Token { return u.Op }
func (u *Unary) exprNode()        {}

// Postfix is x++, x-- or x!!.
type Postfix struct {
	Op lexer.Token
	X  Expr
}

func (p *Postfix) Pos() lexer.Token { return p.Op }
func (p *Postfix) exprNode()        {}

// Binary covers operators and infix function calls (a shl b), in which
// case Op is the identifier token.
type Binary struct {
	Op lexer.Token
	X  Expr
	Y  Expr
}

func (b *Binary) Pos() lexer.Token { return b.Op }
func (b *Binary) exprNode()        {}

// TypeCheck is x is T, x !is T, x as T and x as? T.
type TypeCheck struct {
	Op   lexer.Token
	X    Expr
	Type []lexer.Token
}

func (t *TypeCheck) Pos() lexer.Token { return t.Op }
func (t *TypeCheck) exprNode()        {}

// Member is X.Name, X?.Name or X::Name. X is nil for ::name.
type Member struct {
	X    Expr
	Dot  lexer.Token
	Name lexer.Token
}

func (m *Member) Pos() lexer.Token { return m.Name }
func (m *Member) exprNode()        {}

type Call struct {
	Fun    Expr
	Lparen lexer.Token
	Args   []Expr
}

func (c *Call) Pos() lexer.Token { return c.Lparen }
func (c *Call) exprNode()        {}

type Index struct {
	X      Expr
	Lbrack lexer.Token
	Args   []Expr
}

func (i *Index) Pos() lexer.Token { return i.Lbrack }
func (i *Index) exprNode()        {}

type Paren struct {
	Lparen lexer.Token
	X      Expr
}

func (p *Paren) Pos() lexer.Token { return p.Lparen }
func (p *Paren) exprNode()        {}

// If is the if expression; Else is nil when omitted.
type If struct {
	Token lexer.Token
	Cond  Expr
	Then  Expr
	Else  Expr
}

func (i *If) Pos() lexer.Token { return i.Token }
func (i *If) exprNode()        {}

// Lambda is a brace-delimited block or lambda. Its body is kept as the
// tokens between the braces.
type Lambda struct {
	Lbrace lexer.Token
	Body   []lexer.Token
}

func (l *Lambda) Pos() lexer.Token { return l.Lbrace }
func (l *Lambda) exprNode()        {}
