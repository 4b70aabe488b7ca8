package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/scott-cotton/cli"

	"github.com/agenthands/ktguide/pkg/script"
)

func run(cfg *runConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Run.Parse(cc, args)
	if err != nil {
		return err
	}
	inputs, err := readInputs(cc, args)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := newColors(cfg.colorEnabled(cc.Out))
	failed := false
	for _, in := range inputs {
		if cfg.Dump {
			prog, err := script.Compile(in.data)
			if err != nil {
				fmt.Fprintln(cc.Out, c.Error("%s: %v", in.name, err))
				failed = true
				continue
			}
			fmt.Fprint(cc.Out, prog.Disassemble())
			continue
		}
		opts := script.Options{Gas: cfg.gas(cfg.Gas), Out: cc.Out}
		if err := script.Run(ctx, in.data, opts); err != nil {
			fmt.Fprintln(cc.Out, c.Error("%s: %v", in.name, err))
			failed = true
		}
	}
	if failed {
		return cli.ExitCodeErr(1)
	}
	return nil
}
