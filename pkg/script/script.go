// Package script compiles and runs Kotlin snippets on the VM.
package script

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/agenthands/ktguide/pkg/compiler/emitter"
	"github.com/agenthands/ktguide/pkg/config"
	"github.com/agenthands/ktguide/pkg/core/value"
	"github.com/agenthands/ktguide/pkg/stdlib"
	"github.com/agenthands/ktguide/pkg/vm"
)

// slice is how many instructions run between context checks.
const slice = 4096

// Options configure a run.
type Options struct {
	// Gas bounds the instructions one chunk may execute.
	// Zero means config.DefaultGas.
	Gas int
	// Out receives println output; nil means os.Stdout.
	Out io.Writer
}

func (o Options) gas() int {
	if o.Gas <= 0 {
		return config.DefaultGas
	}
	return o.Gas
}

// Compile compiles src as a standalone program.
func Compile(src []byte) (*emitter.Program, error) {
	return emitter.NewEmitter().Compile(src)
}

// Run compiles and executes src.
func Run(ctx context.Context, src []byte, opts Options) error {
	s := NewSession(opts)
	defer s.Close()
	_, err := s.Eval(ctx, src)
	return err
}

// Result is the value of a chunk's trailing expression.
type Result struct {
	Name string
	Kind value.Kind
	Text string
}

func (r *Result) String() string {
	return fmt.Sprintf("%s: %s = %s", r.Name, r.Kind, r.Text)
}

// Session evaluates chunks one after another. Variables declared by a chunk
// stay visible to the following ones; a chunk that fails to compile or run
// declares nothing.
type Session struct {
	opts    Options
	emitter *emitter.Emitter
	machine *vm.Machine
	results int
}

func NewSession(opts Options) *Session {
	m := vm.GetMachine()
	m.Reset()
	m.Out = opts.Out
	stdlib.Install(m)
	return &Session{
		opts:    opts,
		emitter: emitter.NewEmitter(),
		machine: m,
	}
}

// Close returns the session's machine to the pool.
func (s *Session) Close() {
	if s.machine != nil {
		vm.PutMachine(s.machine)
		s.machine = nil
	}
}

// Eval runs one chunk. The result is nil when the chunk does not end with
// an expression, or the expression is Unit.
func (s *Session) Eval(ctx context.Context, src []byte) (*Result, error) {
	snap := s.emitter.Snapshot()
	prog, err := s.emitter.Compile(src)
	if err != nil {
		s.emitter.Restore(snap)
		return nil, err
	}

	m := s.machine
	m.Load(prog.Bytecode)
	if err := s.exec(ctx); err != nil {
		s.emitter.Restore(snap)
		return nil, err
	}

	if prog.Result == value.KindUnit {
		return nil, nil
	}
	v := m.Result()
	r := &Result{
		Name: fmt.Sprintf("res%d", s.results),
		Kind: prog.Result,
		Text: v.Format(m.Arena),
	}
	s.results++
	return r, nil
}

func (s *Session) exec(ctx context.Context) error {
	for remaining := s.opts.gas(); ; {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := min(remaining, slice)
		err := s.machine.Run(n)
		remaining -= n
		if errors.Is(err, vm.ErrGasExhausted) && remaining > 0 {
			continue
		}
		return err
	}
}
