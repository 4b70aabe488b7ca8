package main

import (
	"github.com/scott-cotton/cli"
)

func MainCommand() *cli.Command {
	cfg := &mainConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Main, "ktguide").
		WithSynopsis("ktguide [opts] command [opts]").
		WithDescription("ktguide demonstrates Kotlin statement continuation and fixed-width integer arithmetic.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return ktMain(cfg, cc, args)
		}).
		WithSubs(
			SplitCommand(cfg),
			RunCommand(cfg),
			IntCommand(cfg),
			ReplCommand(cfg))
}

func SplitCommand(mainCfg *mainConfig) *cli.Command {
	cfg := &splitConfig{mainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Split, "split").
		WithAliases("s").
		WithSynopsis("split [-python] [-trace] [-check golden] [files]").
		WithDescription("print the logical statements of each file with their line spans").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return split(cfg, cc, args)
		})
}

func RunCommand(mainCfg *mainConfig) *cli.Command {
	cfg := &runConfig{mainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Run, "run").
		WithAliases("r").
		WithSynopsis("run [-gas N] [files]").
		WithDescription("compile and run Kotlin snippets").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return run(cfg, cc, args)
		})
}

func IntCommand(mainCfg *mainConfig) *cli.Command {
	cfg := &intConfig{mainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Int, "int").
		WithAliases("i").
		WithSynopsis("int [-w bits] op a [b]").
		WithDescription("apply one fixed-width integer operation: " + opNames()).
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return intMain(cfg, cc, args)
		})
}

func ReplCommand(mainCfg *mainConfig) *cli.Command {
	cfg := &replConfig{mainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Repl, "repl").
		WithSynopsis("repl [-gas N]").
		WithDescription("read Kotlin statements interactively; lines are joined until the statement is complete").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return replMain(cfg, cc, args)
		})
}
