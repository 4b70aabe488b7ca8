package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/scott-cotton/cli"

	"github.com/agenthands/ktguide/pkg/config"
)

func ktMain(cfg *mainConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Main.Parse(cc, args)
	if err != nil {
		return err
	}
	if cfg.Color && cfg.NoColor {
		return fmt.Errorf("%w: -color and -no-color are exclusive", cli.ErrUsage)
	}
	cfg.Settings, err = config.Load(cfg.ConfigPath)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return cli.ErrNoCommandProvided
	}
	sub := cfg.Main.FindSub(cc, args[0])
	if sub == nil {
		return fmt.Errorf("%w: %q not found", cli.ErrNoSuchCommand, args[0])
	}
	err = sub.Run(cc, args[1:])
	if errors.Is(err, cli.ErrUsage) {
		sub.Usage(cc, err)
		os.Exit(sub.Exit(cc, err))
	}
	return err
}

// input is one named source.
type input struct {
	name string
	data []byte
}

// readInputs reads the named files, or stdin when there are none.
func readInputs(cc *cli.Context, args []string) ([]input, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(cc.In)
		if err != nil {
			return nil, fmt.Errorf("error reading stdin: %w", err)
		}
		return []input{{name: "stdin", data: data}}, nil
	}
	res := make([]input, 0, len(args))
	for _, arg := range args {
		data, err := os.ReadFile(arg)
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", arg, err)
		}
		res = append(res, input{name: arg, data: data})
	}
	return res, nil
}
