// Package emitter compiles Kotlin statements to VM bytecode.
//
// Every expression leaves exactly one value on the stack; statements leave
// none, except a chunk's trailing expression statement whose value is the
// chunk's result. Types are checked statically with value.Kind.
package emitter

import (
	"errors"
	"fmt"
	"maps"

	"github.com/agenthands/ktguide/pkg/compiler/ast"
	"github.com/agenthands/ktguide/pkg/compiler/joiner"
	"github.com/agenthands/ktguide/pkg/compiler/lexer"
	"github.com/agenthands/ktguide/pkg/compiler/parser"
	"github.com/agenthands/ktguide/pkg/core/fixedint"
	"github.com/agenthands/ktguide/pkg/core/value"
	"github.com/agenthands/ktguide/pkg/debug"
	"github.com/agenthands/ktguide/pkg/vm"
)

// Error is a compile error.
type Error struct {
	Line int
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Program is one compiled chunk.
type Program struct {
	*vm.Bytecode
	// Result is the kind of the value a trailing expression statement
	// leaves on the stack, or KindUnit when there is none.
	Result value.Kind
	// Statements counts the top-level statements compiled.
	Statements int
}

type local struct {
	index   int
	kind    value.Kind
	mutable bool
	chunk   int
}

type Emitter struct {
	src           []byte
	instructions  []uint32
	constants     []value.Value
	arena         []byte
	stringOffsets map[string]uint32
	lines         []int32
	line          int32

	scopes    []map[string]*local
	nextLocal int
	chunk     int
	joiner    *joiner.Joiner
}

func NewEmitter() *Emitter {
	return &Emitter{
		scopes: []map[string]*local{{}},
		joiner: joiner.Default,
	}
}

// Snapshot captures the declared variables so a failed chunk can be undone.
type Snapshot struct {
	top       map[string]*local
	nextLocal int
}

func (e *Emitter) Snapshot() Snapshot {
	return Snapshot{top: maps.Clone(e.scopes[0]), nextLocal: e.nextLocal}
}

func (e *Emitter) Restore(s Snapshot) {
	e.scopes = append(e.scopes[:0], s.top)
	e.nextLocal = s.nextLocal
}

// Compile compiles src as one chunk. Variables declared by earlier chunks
// remain visible.
func (e *Emitter) Compile(src []byte) (*Program, error) {
	e.src = src
	e.instructions = nil
	e.constants = nil
	e.arena = nil
	e.stringOffsets = make(map[string]uint32)
	e.lines = nil
	e.line = 1
	e.chunk++
	e.scopes = e.scopes[:1]

	toks := lexer.Tokenize(src)
	if bad, ok := lexer.FirstError(toks); ok {
		return nil, &Error{Line: int(bad.Line), Msg: fmt.Sprintf("invalid token %q", bad.Text(src))}
	}

	stmts := e.joiner.SplitTokens(toks)
	prog := &Program{Result: value.KindUnit, Statements: len(stmts)}
	for i, st := range stmts {
		kind, isExpr, err := e.statement(st)
		if err != nil {
			return nil, err
		}
		if !isExpr {
			continue
		}
		if i == len(stmts)-1 {
			prog.Result = kind
		} else {
			e.emitOp(vm.OP_DROP, 0)
		}
	}
	e.emitOp(vm.OP_HALT, 0)

	prog.Bytecode = &vm.Bytecode{
		Instructions: e.instructions,
		Constants:    e.constants,
		Arena:        e.arena,
		Lines:        e.lines,
	}
	if debug.Emit() {
		debug.Logf("emit:\n%s", prog.Disassemble())
	}
	return prog, nil
}

// statement parses and emits one logical statement. It reports whether the
// statement was an expression, whose value is then left on the stack.
func (e *Emitter) statement(st joiner.Statement) (value.Kind, bool, error) {
	e.line = int32(st.FirstLine)
	node, err := parser.NewParser(st.Tokens).ParseStatement()
	if err != nil {
		var perr *parser.Error
		if errors.As(err, &perr) {
			return value.Kind{}, false, &Error{Line: perr.Line, Msg: perr.Msg, Err: err}
		}
		return value.Kind{}, false, e.errorf("%v", err)
	}

	switch n := node.(type) {
	case *ast.ExprStmt:
		kind, err := e.expr(n.X)
		return kind, true, err
	case *ast.ValDecl:
		return value.KindUnit, false, e.valDecl(n)
	case *ast.Assign:
		return value.KindUnit, false, e.assign(n)
	case *ast.Jump:
		switch n.Token.Kind {
		case lexer.KindThrow:
			return value.Kind{}, false, e.errorf("throw is not supported; call error(message)")
		case lexer.KindReturn:
			return value.Kind{}, false, e.errorf("return is only allowed inside a function")
		}
		return value.Kind{}, false, e.errorf("%s is only allowed inside a loop", n.Token.Kind)
	}
	return value.Kind{}, false, e.errorf("unsupported statement %T", node)
}

func (e *Emitter) valDecl(n *ast.ValDecl) error {
	name := e.text(n.Name)
	if prev, ok := e.scopes[len(e.scopes)-1][name]; ok && prev.chunk == e.chunk {
		return e.errorf("conflicting declarations: %s", name)
	}
	if n.Value == nil {
		return e.errorf("variable %s must be initialized", name)
	}

	var kind value.Kind
	if len(n.Type) > 0 {
		declared, err := e.declaredKind(n.Type)
		if err != nil {
			return err
		}
		if err := e.assignable(n.Value, declared); err != nil {
			return err
		}
		kind = declared
	} else {
		k, err := e.expr(n.Value)
		if err != nil {
			return err
		}
		kind = k
	}

	if e.nextLocal >= vm.MaxLocals {
		return e.errorf("too many variables")
	}
	l := &local{index: e.nextLocal, kind: kind, mutable: n.Mutable, chunk: e.chunk}
	e.nextLocal++
	e.scopes[len(e.scopes)-1][name] = l
	e.emitOp(vm.OP_POP_L, uint32(l.index))
	return nil
}

func (e *Emitter) declaredKind(typ []lexer.Token) (value.Kind, error) {
	if len(typ) != 1 {
		var text string
		for _, t := range typ {
			text += e.text(t)
		}
		return value.Kind{}, e.errorf("unsupported type %s", text)
	}
	name := e.text(typ[0])
	kind, ok := value.ParseKind(name)
	if !ok {
		return value.Kind{}, e.errorf("unsupported type %s", name)
	}
	return kind, nil
}

// assignable emits x for a slot of kind want. Integer literals take the
// slot's width and are range checked against it.
func (e *Emitter) assignable(x ast.Expr, want value.Kind) error {
	if want.IsInt() {
		v, long, ok, err := e.literal(x)
		if err != nil {
			return err
		}
		if ok {
			if long && want.Width != fixedint.W64 {
				return e.errorf("the integer literal does not conform to the expected type %s", want)
			}
			i, err := fixedint.FromLiteral(v, want.Width)
			if err != nil {
				return &Error{Line: int(e.line), Msg: fmt.Sprintf("the integer literal does not conform to the expected type %s: %v", want, err), Err: err}
			}
			e.pushConst(value.FromInt(i))
			return nil
		}
	}
	got, err := e.expr(x)
	if err != nil {
		return err
	}
	if got != want {
		return e.errorf("type mismatch: inferred type is %s but %s was expected", got, want)
	}
	return nil
}

func (e *Emitter) assign(n *ast.Assign) error {
	id, ok := n.Target.(*ast.Identifier)
	if !ok {
		return e.errorf("only variables can be assigned")
	}
	name := e.text(id.Token)
	l, ok := e.lookup(name)
	if !ok {
		return e.errorf("unresolved reference: %s", name)
	}
	if !l.mutable {
		return e.errorf("val cannot be reassigned: %s", name)
	}
	e.line = int32(n.Op.Line)

	if n.Op.Kind == lexer.KindAssign {
		if err := e.assignable(n.Value, l.kind); err != nil {
			return err
		}
		e.emitOp(vm.OP_POP_L, uint32(l.index))
		return nil
	}

	e.emitOp(vm.OP_PUSH_L, uint32(l.index))
	var op lexer.Kind
	switch n.Op.Kind {
	case lexer.KindPlusAssign:
		op = lexer.KindPlus
	case lexer.KindMinusAssign:
		op = lexer.KindMinus
	case lexer.KindStarAssign:
		op = lexer.KindStar
	case lexer.KindSlashAssign:
		op = lexer.KindSlash
	default:
		op = lexer.KindPercent
	}
	kind, err := e.arith(op, l.kind, n.Value)
	if err != nil {
		return err
	}
	if kind != l.kind {
		return e.errorf("type mismatch: inferred type is %s but %s was expected", kind, l.kind)
	}
	e.emitOp(vm.OP_POP_L, uint32(l.index))
	return nil
}

// block emits the statements of a brace body in a new scope. Its value is
// the value of a trailing expression statement, or Unit.
func (e *Emitter) block(body []lexer.Token) (value.Kind, error) {
	e.scopes = append(e.scopes, map[string]*local{})
	defer func() { e.scopes = e.scopes[:len(e.scopes)-1] }()

	stmts := e.joiner.SplitTokens(body)
	result := value.KindUnit
	for i, st := range stmts {
		kind, isExpr, err := e.statement(st)
		if err != nil {
			return value.Kind{}, err
		}
		switch {
		case isExpr && i == len(stmts)-1:
			result = kind
		case isExpr:
			e.emitOp(vm.OP_DROP, 0)
		case i == len(stmts)-1:
			e.pushConst(value.Unit)
		}
	}
	if len(stmts) == 0 {
		e.pushConst(value.Unit)
	}
	return result, nil
}

func (e *Emitter) lookup(name string) (*local, bool) {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if l, ok := e.scopes[i][name]; ok {
			return l, true
		}
	}
	return nil, false
}

func (e *Emitter) text(t lexer.Token) string {
	return t.Text(e.src)
}

func (e *Emitter) errorf(format string, args ...any) *Error {
	return &Error{Line: int(e.line), Msg: fmt.Sprintf(format, args...)}
}

func (e *Emitter) emitOp(op uint8, arg uint32) int {
	e.instructions = append(e.instructions, vm.Encode(op, arg))
	e.lines = append(e.lines, e.line)
	return len(e.instructions) - 1
}

// patch points the jump at idx to the next instruction.
func (e *Emitter) patch(idx int) {
	op, _ := vm.Decode(e.instructions[idx])
	e.instructions[idx] = vm.Encode(op, uint32(len(e.instructions)))
}

func (e *Emitter) addConstant(v value.Value) uint32 {
	for i, c := range e.constants {
		if c == v {
			return uint32(i)
		}
	}
	e.constants = append(e.constants, v)
	return uint32(len(e.constants) - 1)
}

func (e *Emitter) pushConst(v value.Value) {
	e.emitOp(vm.OP_PUSH_C, e.addConstant(v))
}

func (e *Emitter) packNewString(s string) value.Value {
	if offset, ok := e.stringOffsets[s]; ok {
		return value.FromString(offset, uint32(len(s)))
	}
	offset := uint32(len(e.arena))
	e.arena = append(e.arena, s...)
	e.stringOffsets[s] = offset
	return value.FromString(offset, uint32(len(s)))
}
