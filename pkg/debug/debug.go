// Package debug holds environment-controlled tracing switches.
//
//	KTGUIDE_DEBUG_JOIN  line boundary decisions
//	KTGUIDE_DEBUG_EMIT  emitted bytecode
//	KTGUIDE_DEBUG_VM    executed instructions
package debug

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
)

type debug struct {
	Join bool
	Emit bool
	VM   bool
}

var (
	d   *debug
	mu  sync.Mutex
	out io.Writer = os.Stderr
)

func init() {
	d = &debug{}
	d.Join = boolEnv("KTGUIDE_DEBUG_JOIN")
	d.Emit = boolEnv("KTGUIDE_DEBUG_EMIT")
	d.VM = boolEnv("KTGUIDE_DEBUG_VM")
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

func Join() bool {
	return d.Join
}
func Emit() bool {
	return d.Emit
}
func VM() bool {
	return d.VM
}

// Set overrides the switches, for tests and the split -trace option.
func Set(join, emit, vm bool) {
	d.Join, d.Emit, d.VM = join, emit, vm
}

// SetOutput redirects Logf and returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := out
	out = w
	return prev
}

// Logf writes a trace line.
func Logf(msg string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, msg, args...)
}
