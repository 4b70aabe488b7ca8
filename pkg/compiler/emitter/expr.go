package emitter

import (
	"fmt"
	"math/big"

	"github.com/agenthands/ktguide/pkg/compiler/ast"
	"github.com/agenthands/ktguide/pkg/compiler/lexer"
	"github.com/agenthands/ktguide/pkg/core/fixedint"
	"github.com/agenthands/ktguide/pkg/core/value"
	"github.com/agenthands/ktguide/pkg/stdlib"
	"github.com/agenthands/ktguide/pkg/vm"
)

var kindInt = value.IntKind(fixedint.W32)

var arithOps = map[lexer.Kind]uint8{
	lexer.KindPlus:    vm.OP_ADD,
	lexer.KindMinus:   vm.OP_SUB,
	lexer.KindStar:    vm.OP_MUL,
	lexer.KindSlash:   vm.OP_DIV,
	lexer.KindPercent: vm.OP_REM,
}

var compareOps = map[lexer.Kind]uint8{
	lexer.KindLess:      vm.OP_LT,
	lexer.KindGreater:   vm.OP_GT,
	lexer.KindLessEq:    vm.OP_LE,
	lexer.KindGreaterEq: vm.OP_GE,
}

// Infix functions, usable as a shl b or a.shl(b).
var infixOps = map[string]uint8{
	"shl":  vm.OP_SHL,
	"shr":  vm.OP_SHR,
	"ushr": vm.OP_USHR,
	"and":  vm.OP_AND,
	"or":   vm.OP_OR,
	"xor":  vm.OP_XOR,
}

var conversions = map[string]fixedint.Width{
	"toByte":  fixedint.W8,
	"toShort": fixedint.W16,
	"toInt":   fixedint.W32,
	"toLong":  fixedint.W64,
}

func (e *Emitter) expr(x ast.Expr) (value.Kind, error) {
	switch n := x.(type) {
	case *ast.IntLiteral:
		e.line = int32(n.Token.Line)
		return e.intLiteral(n, false)
	case *ast.StringLiteral:
		e.line = int32(n.Token.Line)
		return e.stringLiteral(n.Token)
	case *ast.BoolLiteral:
		e.pushConst(value.FromBool(n.Token.Kind == lexer.KindTrue))
		return value.KindBool, nil
	case *ast.CharLiteral:
		return value.Kind{}, e.errorf("Char is not supported")
	case *ast.Keyword:
		return value.Kind{}, e.errorf("%s is not supported", n.Token.Kind)
	case *ast.Identifier:
		name := e.text(n.Token)
		l, ok := e.lookup(name)
		if !ok {
			return value.Kind{}, e.errorf("unresolved reference: %s", name)
		}
		e.emitOp(vm.OP_PUSH_L, uint32(l.index))
		return l.kind, nil
	case *ast.Paren:
		return e.expr(n.X)
	case *ast.Unary:
		return e.unary(n)
	case *ast.Postfix:
		return e.postfix(n)
	case *ast.Binary:
		return e.binary(n)
	case *ast.Member:
		return e.member(n)
	case *ast.Call:
		return e.call(n)
	case *ast.If:
		return e.ifExpr(n)
	case *ast.Lambda:
		return value.Kind{}, e.errorf("lambdas are not supported")
	case *ast.TypeCheck:
		return value.Kind{}, e.errorf("%s is not supported", n.Op.Kind)
	case *ast.Index:
		return value.Kind{}, e.errorf("indexing is not supported")
	}
	return value.Kind{}, e.errorf("unsupported expression %T", x)
}

// literal reports the exact value of an integer literal, optionally
// negated, so declarations can range check it against their type.
func (e *Emitter) literal(x ast.Expr) (*big.Int, bool, bool, error) {
	neg := false
	if u, ok := x.(*ast.Unary); ok && u.Op.Kind == lexer.KindMinus {
		neg, x = true, u.X
	}
	lit, ok := x.(*ast.IntLiteral)
	if !ok {
		return nil, false, false, nil
	}
	v, long, err := e.parseLiteral(lit)
	if err != nil {
		return nil, false, false, err
	}
	if neg {
		v.Neg(v)
	}
	return v, long, true, nil
}

func (e *Emitter) parseLiteral(lit *ast.IntLiteral) (*big.Int, bool, error) {
	text := e.text(lit.Token)
	v, long, err := fixedint.ParseLiteral(text)
	if err != nil {
		return nil, false, &Error{Line: int(lit.Token.Line), Msg: fmt.Sprintf("unsupported number literal %s", text), Err: err}
	}
	return v, long, nil
}

// intLiteral pushes a literal typed by its magnitude. A negated literal
// keeps the type of its magnitude, so -2147483648 is a Long.
func (e *Emitter) intLiteral(lit *ast.IntLiteral, neg bool) (value.Kind, error) {
	v, long, err := e.parseLiteral(lit)
	if err != nil {
		return value.Kind{}, err
	}
	i, err := fixedint.Infer(v, long)
	if err != nil {
		return value.Kind{}, &Error{Line: int(lit.Token.Line), Msg: fmt.Sprintf("the value %s is out of range", v), Err: err}
	}
	if neg {
		i = fixedint.Neg(i)
	}
	e.pushConst(value.FromInt(i))
	return value.IntKind(i.Width()), nil
}

// promote widens Byte and Short operands on top of the stack to Int.
func (e *Emitter) promote(k value.Kind) value.Kind {
	if k.IsInt() && k.Width < fixedint.W32 {
		e.emitOp(vm.OP_CONVERT, uint32(fixedint.W32))
		return kindInt
	}
	return k
}

func wider(a, b value.Kind) value.Kind {
	if b.Width > a.Width {
		return b
	}
	return a
}

func (e *Emitter) unary(n *ast.Unary) (value.Kind, error) {
	e.line = int32(n.Op.Line)
	switch n.Op.Kind {
	case lexer.KindMinus, lexer.KindPlus:
		neg := n.Op.Kind == lexer.KindMinus
		if lit, ok := n.X.(*ast.IntLiteral); ok {
			return e.intLiteral(lit, neg)
		}
		k, err := e.expr(n.X)
		if err != nil {
			return value.Kind{}, err
		}
		if !k.IsInt() {
			return value.Kind{}, e.errorf("operator %s cannot be applied to %s", n.Op.Kind, k)
		}
		k = e.promote(k)
		if neg {
			e.emitOp(vm.OP_NEG, 0)
		}
		return k, nil
	case lexer.KindBang:
		k, err := e.expr(n.X)
		if err != nil {
			return value.Kind{}, err
		}
		if k != value.KindBool {
			return value.Kind{}, e.errorf("operator ! cannot be applied to %s", k)
		}
		e.emitOp(vm.OP_NOT, 0)
		return value.KindBool, nil
	case lexer.KindIncrement, lexer.KindDecrement:
		l, err := e.step(n.X, n.Op, false)
		if err != nil {
			return value.Kind{}, err
		}
		e.emitOp(vm.OP_DUP, 0)
		e.emitOp(vm.OP_POP_L, uint32(l.index))
		return l.kind, nil
	}
	return value.Kind{}, e.errorf("unsupported operator %s", n.Op.Kind)
}

func (e *Emitter) postfix(n *ast.Postfix) (value.Kind, error) {
	e.line = int32(n.Op.Line)
	if n.Op.Kind == lexer.KindBangBang {
		return value.Kind{}, e.errorf("!! is not supported")
	}
	l, err := e.step(n.X, n.Op, true)
	if err != nil {
		return value.Kind{}, err
	}
	e.emitOp(vm.OP_POP_L, uint32(l.index))
	return l.kind, nil
}

// step pushes the incremented or decremented value of the variable x. The
// result keeps the variable's type. A postfix step leaves the old value
// under the new one.
func (e *Emitter) step(x ast.Expr, op lexer.Token, postfix bool) (*local, error) {
	id, ok := x.(*ast.Identifier)
	if !ok {
		return nil, e.errorf("operator %s needs a variable", op.Kind)
	}
	name := e.text(id.Token)
	l, ok := e.lookup(name)
	if !ok {
		return nil, e.errorf("unresolved reference: %s", name)
	}
	if !l.mutable {
		return nil, e.errorf("val cannot be reassigned: %s", name)
	}
	if !l.kind.IsInt() {
		return nil, e.errorf("operator %s cannot be applied to %s", op.Kind, l.kind)
	}
	one, _ := fixedint.FromInt64(1, l.kind.Width)
	e.emitOp(vm.OP_PUSH_L, uint32(l.index))
	if postfix {
		e.emitOp(vm.OP_DUP, 0)
	}
	e.pushConst(value.FromInt(one))
	if op.Kind == lexer.KindIncrement {
		e.emitOp(vm.OP_ADD, 0)
	} else {
		e.emitOp(vm.OP_SUB, 0)
	}
	return l, nil
}

func (e *Emitter) binary(n *ast.Binary) (value.Kind, error) {
	switch n.Op.Kind {
	case lexer.KindAndAnd, lexer.KindOrOr:
		return e.logical(n)
	case lexer.KindIdentifier:
		left, err := e.expr(n.X)
		if err != nil {
			return value.Kind{}, err
		}
		return e.infix(e.text(n.Op), left, n.Y)
	}

	left, err := e.expr(n.X)
	if err != nil {
		return value.Kind{}, err
	}
	e.line = int32(n.Op.Line)

	if _, ok := arithOps[n.Op.Kind]; ok {
		return e.arith(n.Op.Kind, left, n.Y)
	}

	right, err := e.expr(n.Y)
	if err != nil {
		return value.Kind{}, err
	}
	e.line = int32(n.Op.Line)

	switch n.Op.Kind {
	case lexer.KindEq, lexer.KindNotEq, lexer.KindIdentical, lexer.KindNotIdentical:
		if left != right {
			return value.Kind{}, e.errorf("operator %s cannot be applied to %s and %s", n.Op.Kind, left, right)
		}
		if n.Op.Kind == lexer.KindEq || n.Op.Kind == lexer.KindIdentical {
			e.emitOp(vm.OP_EQ, 0)
		} else {
			e.emitOp(vm.OP_NE, 0)
		}
		return value.KindBool, nil
	}
	if op, ok := compareOps[n.Op.Kind]; ok {
		if !(left.IsInt() && right.IsInt()) && (left != right || left == value.KindUnit) {
			return value.Kind{}, e.errorf("operator %s cannot be applied to %s and %s", n.Op.Kind, left, right)
		}
		e.emitOp(op, 0)
		return value.KindBool, nil
	}
	return value.Kind{}, e.errorf("operator %s is not supported", n.Op.Kind)
}

// arith emits y and the arithmetic op; the left operand of kind left is
// already on the stack.
func (e *Emitter) arith(op lexer.Kind, left value.Kind, y ast.Expr) (value.Kind, error) {
	if left == value.KindString && op == lexer.KindPlus {
		if _, err := e.expr(y); err != nil {
			return value.Kind{}, err
		}
		e.emitOp(vm.OP_CONCAT, 0)
		return value.KindString, nil
	}
	line := e.line
	left = e.promote(left)
	right, err := e.expr(y)
	if err != nil {
		return value.Kind{}, err
	}
	e.line = line
	if !left.IsInt() || !right.IsInt() {
		return value.Kind{}, e.errorf("operator %s cannot be applied to %s and %s", op, left, right)
	}
	right = e.promote(right)
	e.emitOp(arithOps[op], 0)
	return wider(left, right), nil
}

func (e *Emitter) logical(n *ast.Binary) (value.Kind, error) {
	left, err := e.expr(n.X)
	if err != nil {
		return value.Kind{}, err
	}
	e.line = int32(n.Op.Line)
	if left != value.KindBool {
		return value.Kind{}, e.errorf("operator %s cannot be applied to %s", n.Op.Kind, left)
	}
	jump, short := vm.OP_JMP_FALSE, false
	if n.Op.Kind == lexer.KindOrOr {
		jump, short = vm.OP_JMP_TRUE, true
	}
	skip := e.emitOp(jump, 0)
	right, err := e.expr(n.Y)
	if err != nil {
		return value.Kind{}, err
	}
	if right != value.KindBool {
		return value.Kind{}, e.errorf("operator %s cannot be applied to %s", n.Op.Kind, right)
	}
	end := e.emitOp(vm.OP_JMP, 0)
	e.patch(skip)
	e.pushConst(value.FromBool(short))
	e.patch(end)
	return value.KindBool, nil
}

// infix emits the named infix function applied to the receiver on the
// stack and y.
func (e *Emitter) infix(name string, left value.Kind, y ast.Expr) (value.Kind, error) {
	op, ok := infixOps[name]
	if !ok {
		return value.Kind{}, e.errorf("unresolved reference: %s", name)
	}
	line := e.line
	right, err := e.expr(y)
	if err != nil {
		return value.Kind{}, err
	}
	e.line = line
	switch op {
	case vm.OP_SHL, vm.OP_SHR, vm.OP_USHR:
		if left.Width < fixedint.W32 || !left.IsInt() || right != kindInt {
			return value.Kind{}, e.errorf("%s cannot be applied to %s and %s", name, left, right)
		}
	default:
		if left != right || !(left.IsInt() || left == value.KindBool) {
			return value.Kind{}, e.errorf("%s cannot be applied to %s and %s", name, left, right)
		}
	}
	e.emitOp(op, 0)
	return left, nil
}

// member resolves constants such as Int.MAX_VALUE.
func (e *Emitter) member(n *ast.Member) (value.Kind, error) {
	e.line = int32(n.Name.Line)
	name := e.text(n.Name)
	if id, ok := n.X.(*ast.Identifier); ok && n.Dot.Kind == lexer.KindDot {
		typ := e.text(id.Token)
		if _, shadowed := e.lookup(typ); !shadowed {
			if k, ok := value.ParseKind(typ); ok && k.IsInt() {
				var v *big.Int
				switch name {
				case "MAX_VALUE":
					v = k.Width.Max()
				case "MIN_VALUE":
					v = k.Width.Min()
				case "SIZE_BITS":
					v = big.NewInt(int64(k.Width.Bits()))
					k = kindInt
				case "SIZE_BYTES":
					v = big.NewInt(int64(k.Width.Bits() / 8))
					k = kindInt
				}
				if v != nil {
					i, err := fixedint.FromLiteral(v, k.Width)
					if err != nil {
						return value.Kind{}, err
					}
					e.pushConst(value.FromInt(i))
					return k, nil
				}
			}
		}
	}
	return value.Kind{}, e.errorf("unresolved reference: %s", name)
}

func (e *Emitter) call(n *ast.Call) (value.Kind, error) {
	e.line = int32(n.Lparen.Line)
	switch fn := n.Fun.(type) {
	case *ast.Identifier:
		return e.builtin(e.text(fn.Token), n)
	case *ast.Member:
		if fn.X != nil && fn.Dot.Kind == lexer.KindDot {
			return e.method(fn, n.Args)
		}
	}
	return value.Kind{}, e.errorf("expression cannot be called")
}

func (e *Emitter) builtin(name string, n *ast.Call) (value.Kind, error) {
	index, f, ok := stdlib.Lookup(name)
	if !ok {
		return value.Kind{}, e.errorf("unresolved reference: %s", name)
	}
	kinds := make([]value.Kind, 0, len(n.Args))
	for _, arg := range n.Args {
		k, err := e.expr(arg)
		if err != nil {
			return value.Kind{}, err
		}
		kinds = append(kinds, k)
	}
	e.line = int32(n.Lparen.Line)
	result, err := f.Result(kinds)
	if err != nil {
		return value.Kind{}, &Error{Line: int(e.line), Msg: fmt.Sprintf("%s: %v", name, err), Err: err}
	}
	e.emitOp(vm.OP_SYSCALL, vm.SyscallArg(index, len(kinds)))
	return result, nil
}

// method emits receiver.name(args) for the conversion and bit functions
// of the integer types, and toString.
func (e *Emitter) method(m *ast.Member, args []ast.Expr) (value.Kind, error) {
	recv, err := e.expr(m.X)
	if err != nil {
		return value.Kind{}, err
	}
	e.line = int32(m.Name.Line)
	name := e.text(m.Name)

	if _, ok := infixOps[name]; ok && len(args) == 1 {
		return e.infix(name, recv, args[0])
	}
	if len(args) != 0 {
		return value.Kind{}, e.errorf("unresolved reference: %s", name)
	}
	switch {
	case name == "toString":
		e.emitOp(vm.OP_STR, 0)
		return value.KindString, nil
	case name == "inv" && recv.IsInt():
		e.emitOp(vm.OP_INV, 0)
		return recv, nil
	case recv.IsInt():
		if w, ok := conversions[name]; ok {
			if w != recv.Width {
				e.emitOp(vm.OP_CONVERT, uint32(w))
			}
			return value.IntKind(w), nil
		}
	}
	return value.Kind{}, e.errorf("unresolved reference: %s.%s", recv, name)
}

func (e *Emitter) ifExpr(n *ast.If) (value.Kind, error) {
	e.line = int32(n.Token.Line)
	cond, err := e.expr(n.Cond)
	if err != nil {
		return value.Kind{}, err
	}
	if cond != value.KindBool {
		return value.Kind{}, e.errorf("condition must be Boolean, not %s", cond)
	}
	skip := e.emitOp(vm.OP_JMP_FALSE, 0)
	then, err := e.branch(n.Then)
	if err != nil {
		return value.Kind{}, err
	}

	if n.Else == nil {
		// Without else the if is a statement: its value is Unit.
		e.emitOp(vm.OP_DROP, 0)
		e.patch(skip)
		e.pushConst(value.Unit)
		return value.KindUnit, nil
	}

	end := e.emitOp(vm.OP_JMP, 0)
	e.patch(skip)
	other, err := e.branch(n.Else)
	if err != nil {
		return value.Kind{}, err
	}
	e.patch(end)
	if then != other {
		return value.Kind{}, e.errorf("if branches have different types %s and %s", then, other)
	}
	return then, nil
}

func (e *Emitter) branch(x ast.Expr) (value.Kind, error) {
	if l, ok := x.(*ast.Lambda); ok {
		return e.block(l.Body)
	}
	return e.expr(x)
}
