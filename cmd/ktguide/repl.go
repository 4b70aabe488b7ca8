package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/peterh/liner"
	"github.com/scott-cotton/cli"

	"github.com/agenthands/ktguide/pkg/compiler/joiner"
	"github.com/agenthands/ktguide/pkg/config"
	"github.com/agenthands/ktguide/pkg/script"
)

const replHelp = `Enter Kotlin statements. Input continues on the next line until the
statement is complete; an empty line submits it as is.

  :help          show this help
  :load <file>   evaluate a file in this session
  :reset         forget all variables
  :quit          leave (also Ctrl+D)
`

// prompter reads one line of input. *liner.State implements it.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

func replMain(cfg *replConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Repl.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 0 {
		return fmt.Errorf("%w: repl takes no arguments", cli.ErrUsage)
	}
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	histPath := settings.HistoryPath()
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	r := &repl{
		in:     ln,
		out:    cc.Out,
		colors: newColors(cfg.colorEnabled(cc.Out)),
		prompt: settings.Prompt,
		cont:   settings.Continuation,
		opts:   script.Options{Gas: cfg.gas(cfg.Gas), Out: cc.Out},
	}
	r.loop(ctx)

	if histPath != "" {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}
	return nil
}

type repl struct {
	in     prompter
	out    io.Writer
	colors *colors
	prompt string
	cont   string
	opts   script.Options

	session *script.Session
}

func (r *repl) loop(ctx context.Context) {
	r.session = script.NewSession(r.opts)
	defer func() { r.session.Close() }()

	for {
		code, ok := r.read()
		if !ok {
			fmt.Fprintln(r.out)
			return
		}
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			if r.command(ctx, trimmed) {
				return
			}
			continue
		}
		r.eval(ctx, []byte(code))
		r.in.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	}
}

// read collects lines until they form complete statements. It returns
// false at end of input.
func (r *repl) read() (string, bool) {
	var b strings.Builder
	for {
		prompt := r.prompt
		if b.Len() > 0 {
			prompt = r.cont
		}
		line, err := r.in.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl+C drops the pending input.
			return "", true
		}
		if b.Len() > 0 {
			if strings.TrimSpace(line) == "" {
				return b.String(), true
			}
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") || joiner.Complete([]byte(src)) {
			return src, true
		}
	}
}

func (r *repl) eval(ctx context.Context, src []byte) {
	res, err := r.session.Eval(ctx, src)
	if err != nil {
		fmt.Fprintln(r.out, r.colors.Error("error: %v", err))
		return
	}
	if res != nil {
		fmt.Fprintln(r.out, r.colors.Value("%s", res))
	}
}

// command runs a :command and reports whether the REPL should exit.
func (r *repl) command(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":help", ":h":
		fmt.Fprint(r.out, replHelp)
	case ":quit", ":q", ":exit":
		return true
	case ":reset":
		r.session.Close()
		r.session = script.NewSession(r.opts)
		fmt.Fprintln(r.out, "session reset.")
	case ":load":
		if len(fields) != 2 {
			fmt.Fprintln(r.out, "usage: :load <file>")
			return false
		}
		src, err := os.ReadFile(fields[1])
		if err != nil {
			fmt.Fprintln(r.out, r.colors.Error("cannot read %s: %v", fields[1], err))
			return false
		}
		r.eval(ctx, src)
		r.in.AppendHistory(line)
	default:
		fmt.Fprintf(r.out, "unknown command %s. Type :help for help.\n", fields[0])
	}
	return false
}
