// Package gate runs the quality gates of a project. A gate is an opaque
// command that either passes or fails; xrel does not interpret its output.
package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/xrel-dev/xrel/internal/toolchain"
)

// Conventional gate names
const (
	Check = "check"
	Fmt   = "fmt"
	Lint  = "lint"
)

// Gate is one pass/fail check
type Gate struct {
	Name    string            `yaml:"name" json:"name" mapstructure:"name"`
	Command string            `yaml:"command" json:"command" mapstructure:"command"`
	Args    []string          `yaml:"args,omitempty" json:"args,omitempty" mapstructure:"args"`
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty" mapstructure:"env"`
}

// Validate checks the gate is runnable
func (g Gate) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("gate name is required")
	}
	if g.Command == "" {
		return fmt.Errorf("gate %q has no command", g.Name)
	}
	return nil
}

// Result is the outcome of running a gate once
type Result struct {
	Name     string        `json:"name" yaml:"name"`
	Passed   bool          `json:"passed" yaml:"passed"`
	Output   string        `json:"output,omitempty" yaml:"output,omitempty"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Run executes the gate in dir
func (g Gate) Run(ctx context.Context, dir string) Result {
	start := time.Now()
	out, err := toolchain.Exec(ctx, dir, g.Env, g.Command, g.Args...)

	res := Result{Name: g.Name, Passed: err == nil, Output: out, Duration: time.Since(start)}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// RunAll runs every gate once, in order. A failing gate does not stop the
// ones after it; a cancelled context does.
func RunAll(ctx context.Context, dir string, gates []Gate, logger *log.Logger) []Result {
	if logger == nil {
		logger = log.Default()
	}

	results := make([]Result, 0, len(gates))
	for _, g := range gates {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{Name: g.Name, Error: err.Error()})
			continue
		}

		logger.Debug("running gate", "gate", g.Name, "command", g.Command)
		res := g.Run(ctx, dir)
		if res.Passed {
			logger.Info("gate passed", "gate", g.Name, "duration", res.Duration.Round(time.Millisecond))
		} else {
			logger.Warn("gate failed", "gate", g.Name, "err", res.Error)
		}
		results = append(results, res)
	}
	return results
}

// Failed returns the names of the gates that did not pass
func Failed(results []Result) []string {
	var names []string
	for _, r := range results {
		if !r.Passed {
			names = append(names, r.Name)
		}
	}
	return names
}
