// Package config loads ktguide settings from .ktguide.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// FileName is looked up in the working directory, then the home directory.
const FileName = ".ktguide.yaml"

// DefaultGas bounds the instructions a script may execute.
const DefaultGas = 1 << 20

// Dialects accepted by the dialect setting.
const (
	DialectKotlin = "kotlin"
	DialectPython = "python"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Gas int `yaml:"gas"`
	// Color forces coloured output on or off. Unset means colour when
	// stdout is a terminal.
	Color        *bool  `yaml:"color"`
	Dialect      string `yaml:"dialect"`
	History      string `yaml:"history"`
	Prompt       string `yaml:"prompt"`
	Continuation string `yaml:"continuation"`

	// Path is the file the settings came from, empty for defaults.
	Path string `yaml:"-"`
}

func Default() *Config {
	return &Config{
		Gas:          DefaultGas,
		Dialect:      DialectKotlin,
		Prompt:       ">>> ",
		Continuation: "... ",
	}
}

// file is the on-disk form. Pointers tell keys that were set apart from
// missing ones, since an empty document decodes to the zero value.
type file struct {
	Gas          *int    `yaml:"gas"`
	Color        *bool   `yaml:"color"`
	Dialect      *string `yaml:"dialect"`
	History      *string `yaml:"history"`
	Prompt       *string `yaml:"prompt"`
	Continuation *string `yaml:"continuation"`
}

func (f *file) apply(cfg *Config) {
	if f.Gas != nil {
		cfg.Gas = *f.Gas
	}
	if f.Color != nil {
		cfg.Color = f.Color
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&cfg.Dialect, f.Dialect)
	set(&cfg.History, f.History)
	set(&cfg.Prompt, f.Prompt)
	set(&cfg.Continuation, f.Continuation)
}

// Parse decodes data over the defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var f file
	if err := yaml.UnmarshalWithOptions(data, &f, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	cfg := Default()
	f.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Gas <= 0 {
		return fmt.Errorf("%w: gas must be positive, got %d", ErrInvalid, c.Gas)
	}
	switch c.Dialect {
	case DialectKotlin, DialectPython:
	default:
		return fmt.Errorf("%w: unknown dialect %q", ErrInvalid, c.Dialect)
	}
	return nil
}

// Load reads the file at path. With an empty path it tries FileName in the
// working directory and then in the home directory, and falls back to
// Default when neither exists.
func Load(path string) (*Config, error) {
	if path != "" {
		return loadFile(path)
	}
	var candidates []string
	if wd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(wd, FileName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, FileName))
	}
	for _, p := range candidates {
		cfg, err := loadFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return cfg, err
	}
	return Default(), nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// HistoryPath returns the REPL history file, expanding a leading ~. It
// defaults to ~/.ktguide_history and is empty when no home directory is
// known.
func (c *Config) HistoryPath() string {
	p := c.History
	if p == "" {
		p = "~/.ktguide_history"
	}
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, p[1:])
}
