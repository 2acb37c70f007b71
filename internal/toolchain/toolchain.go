// Package toolchain invokes the external compiler for one target triple.
//
// xrel does not cross-compile anything itself. A Toolchain is called once per
// job and answers with the path of the raw binary it produced.
package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/charmbracelet/log"

	"github.com/xrel-dev/xrel/internal/matrix"
)

// BuildOptions carries the per-job inputs of a build
type BuildOptions struct {
	Binary    string
	Extension string
	OS        matrix.OperatingSystem
	SourceDir string

	// Per-entry overrides from the matrix
	Args []string
	Env  map[string]string
}

// Toolchain builds the project for a target triple
type Toolchain interface {
	Build(ctx context.Context, target string, opts BuildOptions) (string, error)
}

// Func adapts a plain function to the Toolchain interface
type Func func(ctx context.Context, target string, opts BuildOptions) (string, error)

// Build calls f
func (f Func) Build(ctx context.Context, target string, opts BuildOptions) (string, error) {
	return f(ctx, target, opts)
}

// Command is a Toolchain that runs an external program. Args, Output and
// Strip are text/template strings rendered with the fields of templateData.
type Command struct {
	Program string
	Args    []string
	Output  string
	Strip   []string
	Env     map[string]string

	Logger *log.Logger
}

type templateData struct {
	Target    string
	Binary    string
	Extension string
	OS        string
	Family    string
	Output    string
}

// Build runs the build command and the optional strip command, and returns
// the absolute path of the produced binary
func (c *Command) Build(ctx context.Context, target string, opts BuildOptions) (string, error) {
	if c.Program == "" {
		return "", fmt.Errorf("toolchain command is not configured")
	}

	data := templateData{
		Target:    target,
		Binary:    opts.Binary,
		Extension: opts.Extension,
		OS:        string(opts.OS),
		Family:    string(opts.OS.Family()),
	}

	args, err := renderAll(c.Args, data)
	if err != nil {
		return "", err
	}
	args = append(args, opts.Args...)

	output, err := render(c.Output, data)
	if err != nil {
		return "", err
	}
	if output == "" {
		return "", fmt.Errorf("toolchain output path is not configured")
	}
	if !filepath.IsAbs(output) {
		output = filepath.Join(opts.SourceDir, output)
	}
	data.Output = output

	env := mergeEnv(c.Env, opts.Env)

	logger := c.logger().With("target", target)
	logger.Debug("invoking toolchain", "program", c.Program, "args", strings.Join(args, " "))

	if _, err := Exec(ctx, opts.SourceDir, env, c.Program, args...); err != nil {
		return "", err
	}

	if len(c.Strip) > 0 {
		strip, err := renderAll(c.Strip, data)
		if err != nil {
			return "", err
		}
		logger.Debug("post-processing binary", "command", strings.Join(strip, " "))
		if _, err := Exec(ctx, opts.SourceDir, env, strip[0], strip[1:]...); err != nil {
			return "", fmt.Errorf("post-processing %s: %w", output, err)
		}
	}

	return output, nil
}

func (c *Command) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

func render(text string, data templateData) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := template.New("arg").Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parsing template %q: %w", text, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering template %q: %w", text, err)
	}
	return buf.String(), nil
}

func renderAll(texts []string, data templateData) ([]string, error) {
	out := make([]string, 0, len(texts))
	for _, text := range texts {
		rendered, err := render(text, data)
		if err != nil {
			return nil, err
		}
		out = append(out, rendered)
	}
	return out, nil
}

func mergeEnv(layers ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, layer := range layers {
		for k, v := range layer {
			merged[k] = v
		}
	}
	return merged
}
