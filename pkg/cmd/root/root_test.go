package root

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/xrel-dev/xrel/pkg/cmd/factory"
)

// mockFactory creates a factory for testing
func mockFactory() *factory.Factory {
	return factory.NewWithFS("1.0.0", afero.NewMemMapFs(), &bytes.Buffer{})
}

func TestRootCommand(t *testing.T) {
	t.Parallel()

	cmd, err := NewCmdRoot(mockFactory())
	if err != nil {
		t.Fatalf("Failed to create root command: %v", err)
	}

	if cmd.Use != "xrel <command> <subcommand> [flags]" {
		t.Errorf("unexpected Use %q", cmd.Use)
	}

	for _, name := range []string{"config", "verbose"} {
		if cmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("Expected persistent flag %q to exist", name)
		}
	}
}

func TestSubcommands(t *testing.T) {
	t.Parallel()

	cmd, err := NewCmdRoot(mockFactory())
	if err != nil {
		t.Fatalf("Failed to create root command: %v", err)
	}

	expectedCommands := []string{"gate", "matrix", "run", "version"}

	commands := make(map[string]bool)
	for _, c := range cmd.Commands() {
		commands[c.Name()] = true
	}
	for _, expected := range expectedCommands {
		if !commands[expected] {
			t.Errorf("Expected subcommand %q to exist", expected)
		}
	}
}

func TestPersistentFlagsReachFactory(t *testing.T) {
	t.Parallel()

	f := mockFactory()
	if err := afero.WriteFile(f.FS, "/ci/xrel.yaml", []byte("binary: app\nmatrix:\n  - os: linux\n    target: x86_64-unknown-linux-gnu\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd, err := NewCmdRoot(f)
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", "/ci/xrel.yaml", "-v", "matrix", "validate"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if f.ConfigFile != "/ci/xrel.yaml" || !f.Verbose {
		t.Errorf("flags not applied to the factory: %q %v", f.ConfigFile, f.Verbose)
	}
	if !strings.Contains(out.String(), "app-x86_64-unknown-linux-gnu") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestVersionFlag(t *testing.T) {
	t.Parallel()

	cmd, err := NewCmdRoot(mockFactory())
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--version"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "xrel version 1.0.0") {
		t.Errorf("unexpected version output %q", out.String())
	}
}
