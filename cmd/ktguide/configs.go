package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"

	"github.com/agenthands/ktguide/pkg/config"
)

type mainConfig struct {
	ConfigPath string `cli:"name=config desc='configuration file (default ./.ktguide.yaml, then ~/.ktguide.yaml)'"`
	Color      bool   `cli:"name=color desc='force colored output'"`
	NoColor    bool   `cli:"name=no-color desc='disable colored output'"`

	Settings *config.Config

	Main *cli.Command
}

type splitConfig struct {
	*mainConfig
	Python bool   `cli:"name=python aliases=py desc='split with Python rules for contrast'"`
	Check  string `cli:"name=check desc='compare the output with a golden file'"`
	Trace  bool   `cli:"name=trace desc='print every line boundary decision'"`

	Split *cli.Command
}

type runConfig struct {
	*mainConfig
	Gas  int  `cli:"name=gas desc='instruction limit per file (default from configuration)'"`
	Dump bool `cli:"name=dump desc='print the bytecode instead of running it'"`

	Run *cli.Command
}

type intConfig struct {
	*mainConfig
	Width int `cli:"name=w aliases=width desc='bit width: 8, 16, 32 or 64' default=32"`

	Int *cli.Command
}

type replConfig struct {
	*mainConfig
	Gas int `cli:"name=gas desc='instruction limit per input (default from configuration)'"`

	Repl *cli.Command
}

func (cfg *mainConfig) gas(flag int) int {
	switch {
	case flag > 0:
		return flag
	case cfg.Settings != nil:
		return cfg.Settings.Gas
	}
	return config.DefaultGas
}

// colorEnabled resolves -color, -no-color, the configuration file and
// finally whether w is a terminal.
func (cfg *mainConfig) colorEnabled(w io.Writer) bool {
	switch {
	case cfg.NoColor:
		return false
	case cfg.Color:
		return true
	case cfg.Settings != nil && cfg.Settings.Color != nil:
		return *cfg.Settings.Color
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}

type colors struct {
	Span   func(string, ...any) string
	Error  func(string, ...any) string
	Value  func(string, ...any) string
	Insert func(string, ...any) string
	Delete func(string, ...any) string
}

func plainColors() *colors {
	return &colors{
		Span:   fmt.Sprintf,
		Error:  fmt.Sprintf,
		Value:  fmt.Sprintf,
		Insert: fmt.Sprintf,
		Delete: fmt.Sprintf,
	}
}

func newColors(enabled bool) *colors {
	if !enabled {
		return plainColors()
	}
	sprintf := func(attrs ...color.Attribute) func(string, ...any) string {
		c := color.New(attrs...)
		c.EnableColor()
		return c.SprintfFunc()
	}
	return &colors{
		Span:   sprintf(color.FgCyan),
		Error:  sprintf(color.FgRed, color.Bold),
		Value:  sprintf(color.FgBlue),
		Insert: sprintf(color.FgGreen),
		Delete: sprintf(color.FgRed),
	}
}
