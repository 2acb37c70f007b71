package run

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "github.com/xrel-dev/xrel/internal/errors"
	"github.com/xrel-dev/xrel/internal/release"
	"github.com/xrel-dev/xrel/internal/testutil"
	"github.com/xrel-dev/xrel/pkg/cmd/factory"
)

const projectConfig = `
binary: app
source: %[1]s
matrix:
  - os: ubuntu-latest
    target: x86_64-unknown-linux-gnu
  - os: windows-latest
    target: x86_64-pc-windows-msvc
    extension: .exe
  - os: macos-latest
    target: aarch64-apple-darwin
toolchain:
  command: sh
  args: ["-c", "%[2]s"]
  output: out/{{.Target}}/{{.Binary}}{{.Extension}}
store:
  kind: fs
  path: %[1]s/.xrel/artifacts
`

const buildScript = `mkdir -p out/{{.Target}} && printf {{.Target}} > out/{{.Target}}/{{.Binary}}{{.Extension}}`

// newProject writes a config whose toolchain is a shell script and returns a
// factory reading it from the real filesystem
func newProject(t *testing.T, script string) (*factory.Factory, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "xrel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(projectConfig, dir, script)), 0o644))

	f := factory.NewWithFS("test", afero.NewOsFs(), &bytes.Buffer{})
	f.ConfigFile = path
	return f, dir
}

func execute(t *testing.T, f *factory.Factory, args ...string) (string, error) {
	t.Helper()

	return testutil.RunCommand(t, testutil.CommandInput{Factory: f, NewCmd: NewCmdRun, Args: args})
}

func TestRunBuildsEveryTarget(t *testing.T) {
	t.Parallel()

	f, dir := newProject(t, buildScript)
	out, err := execute(t, f, "--event", "push", "--ref", "refs/heads/main", "-o", "json")
	require.NoError(t, err)

	var report struct {
		Success   bool     `json:"success"`
		Artifacts []string `json:"artifacts"`
		Trigger   struct {
			Event string `json:"event"`
			Ref   string `json:"ref"`
		} `json:"trigger"`
		Publication release.Report `json:"publication"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))

	assert.True(t, report.Success)
	assert.ElementsMatch(t, []string{
		"app-x86_64-unknown-linux-gnu",
		"app-x86_64-pc-windows-msvc.exe",
		"app-aarch64-apple-darwin",
	}, report.Artifacts)
	assert.Equal(t, "refs/heads/main", report.Trigger.Ref)
	assert.Equal(t, release.OutcomeSkipped, report.Publication.Outcome)

	runs, err := os.ReadDir(filepath.Join(dir, ".xrel", "artifacts"))
	require.NoError(t, err)
	require.Len(t, runs, 1)
	stored, err := os.ReadFile(filepath.Join(dir, ".xrel", "artifacts", runs[0].Name(), "app-x86_64-pc-windows-msvc.exe"))
	require.NoError(t, err)
	assert.Equal(t, "x86_64-pc-windows-msvc", string(stored))
}

func TestRunReportsFailedJobs(t *testing.T) {
	t.Parallel()

	script := `case {{.Target}} in *windows*) echo link.exe not found >&2; exit 3;; esac; ` + buildScript
	f, _ := newProject(t, script)

	out, err := execute(t, f, "--event", "push", "--ref", "refs/heads/main")
	require.Error(t, err)
	assert.True(t, xerrors.IsRunFailed(err))
	assert.Contains(t, err.Error(), "1 of 3 jobs failed")

	assert.Contains(t, out, "x86_64-pc-windows-msvc")
	assert.Contains(t, out, "Run failed")
}

func TestRunDryRun(t *testing.T) {
	t.Parallel()

	f, dir := newProject(t, "exit 1")
	out, err := execute(t, f, "--dry-run", "--event", "push", "--ref", "refs/tags/v1.0.0")
	require.NoError(t, err)

	assert.Contains(t, out, "app-x86_64-pc-windows-msvc.exe")
	assert.Contains(t, out, "would publish v1.0.0")

	_, err = os.Stat(filepath.Join(dir, ".xrel"))
	assert.True(t, os.IsNotExist(err), "dry run must not touch the store")
}

func TestRunBinaryFlagOverridesConfig(t *testing.T) {
	t.Parallel()

	f, _ := newProject(t, buildScript)
	out, err := execute(t, f, "--dry-run", "--binary", "tool", "--event", "pull_request")
	require.NoError(t, err)
	assert.Contains(t, out, "tool-aarch64-apple-darwin")
}

func TestRunRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		args  []string
		check func(error) bool
	}{
		"unknown event":       {[]string{"--event", "tag"}, xerrors.IsValidationError},
		"ref without event":   {[]string{"--ref", "refs/tags/v1"}, xerrors.IsValidationError},
		"invalid binary name": {[]string{"--binary", "bin/app", "--event", "push"}, xerrors.IsValidationError},
	}

	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			f, _ := newProject(t, buildScript)
			_, err := execute(t, f, tc.args...)
			require.Error(t, err)
			assert.True(t, tc.check(err), "unexpected error category: %v", err)
		})
	}
}

func TestRunWarnsAboutUnenforcedGates(t *testing.T) {
	t.Parallel()

	const failingGate = `
gates:
  checks:
    - name: lint
      command: sh
      args: ["-c", "exit 3"]
`

	testCases := map[string]struct {
		args        []string
		wantWarning bool
	}{
		"reported": {nil, true},
		"enforced": {[]string{"--enforce-gates"}, false},
	}

	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			f, dir := newProject(t, buildScript)
			file, err := os.OpenFile(filepath.Join(dir, "xrel.yaml"), os.O_APPEND|os.O_WRONLY, 0o644)
			require.NoError(t, err)
			_, err = file.WriteString(failingGate)
			require.NoError(t, err)
			require.NoError(t, file.Close())

			args := append([]string{"--event", "push", "--ref", "refs/heads/main"}, tc.args...)
			cmd, _ := testutil.CreateCommand(t, testutil.CommandInput{Factory: f, NewCmd: NewCmdRun, Args: args})
			stderr := &bytes.Buffer{}
			cmd.SetErr(stderr)
			err = cmd.ExecuteContext(context.Background())

			if tc.wantWarning {
				require.NoError(t, err)
				assert.Contains(t, stderr.String(), "Warning: quality gates failed without blocking the run: lint")
			} else {
				require.Error(t, err)
				assert.True(t, xerrors.IsRunFailed(err), "unexpected error category: %v", err)
				assert.NotContains(t, stderr.String(), "Warning:")
			}
		})
	}
}

func TestRunRejectsMatrixBeforeOpeningStore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "xrel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(`
binary: app
source: %s
matrix:
  - os: ubuntu-latest
    target: x86_64-unknown-linux-gnu
  - os: ubuntu-22.04
    target: x86_64-unknown-linux-gnu
toolchain:
  command: sh
  output: out/{{.Target}}/{{.Binary}}
store:
  kind: minio
  minio:
    endpoint: 127.0.0.1:1
    access_key: access
    secret_key: secret
    bucket: releases
release:
  repository: octo/app
  token: secret
  api_url: http://127.0.0.1:1/api/
`, dir)), 0o644))

	logs := &bytes.Buffer{}
	f := factory.NewWithFS("test", afero.NewOsFs(), logs)
	f.ConfigFile = path
	f.Verbose = true

	_, err := execute(t, f, "--event", "push", "--ref", "refs/tags/v1.0.0")
	require.Error(t, err)
	assert.True(t, xerrors.IsNamingConflict(err), "unexpected error category: %v", err)
	assert.False(t, xerrors.IsStoreError(err))
	assert.NotContains(t, logs.String(), "using minio store")
}

func TestResolveTrigger(t *testing.T) {
	t.Parallel()

	tc, err := resolveTrigger(runOptions{event: "push", ref: "refs/tags/v2.0.0"}, ".")
	require.NoError(t, err)
	target, ok := release.Authorize(tc)
	require.True(t, ok)
	assert.Equal(t, "v2.0.0", target.Tag)

	tc, err = resolveTrigger(runOptions{event: "workflow_dispatch"}, ".")
	require.NoError(t, err)
	_, ok = release.Authorize(tc)
	assert.False(t, ok)
}
