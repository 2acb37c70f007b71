// Package testutil holds helpers shared by command tests
package testutil

import (
	"bytes"
	"context"
	"io"
	"sort"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/xrel-dev/xrel/pkg/cmd/factory"
)

// CommandInput contains the configuration for a test command
type CommandInput struct {
	Flags   map[string]string
	Args    []string
	Factory *factory.Factory
	NewCmd  func(*factory.Factory) *cobra.Command
}

// CreateCommand creates a test command with the given configuration. Its
// standard output is captured in the returned buffer.
func CreateCommand(t *testing.T, input CommandInput) (*cobra.Command, *bytes.Buffer) {
	t.Helper()

	if input.Factory == nil {
		// in-memory filesystem and a silent logger
		input.Factory = factory.NewWithFS("test", afero.NewMemMapFs(), io.Discard)
	}

	cmd := input.NewCmd(input.Factory)

	keys := make([]string, 0, len(input.Flags))
	for k := range input.Flags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := []string{}
	for _, k := range keys {
		args = append(args, "--"+k, input.Flags[k])
	}
	args = append(args, input.Args...)
	cmd.SetArgs(args)

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	return cmd, out
}

// RunCommand executes the command and returns what it wrote to standard output
func RunCommand(t *testing.T, input CommandInput) (string, error) {
	t.Helper()

	cmd, out := CreateCommand(t, input)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}
