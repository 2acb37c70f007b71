package gate

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAll(t *testing.T) {
	t.Parallel()

	gates := []Gate{
		{Name: Check, Command: "sh", Args: []string{"-c", "echo checked"}},
		{Name: Fmt, Command: "sh", Args: []string{"-c", "echo 'src/main.rs needs formatting' >&2; exit 1"}},
		{Name: Lint, Command: "sh", Args: []string{"-c", "test \"$LINT_LEVEL\" = deny"}, Env: map[string]string{"LINT_LEVEL": "deny"}},
	}

	results := RunAll(context.Background(), t.TempDir(), gates, log.New(io.Discard))
	require.Len(t, results, 3)

	assert.True(t, results[0].Passed)
	assert.Contains(t, results[0].Output, "checked")

	assert.False(t, results[1].Passed)
	assert.Contains(t, results[1].Error, "needs formatting")

	assert.True(t, results[2].Passed, results[2].Error)
	assert.Equal(t, []string{Fmt}, Failed(results))
}

func TestRunAllCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := RunAll(ctx, t.TempDir(), []Gate{{Name: Check, Command: "true"}}, nil)
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Contains(t, results[0].Error, "canceled")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		gate    Gate
		wantErr bool
	}{
		{"valid", Gate{Name: Lint, Command: "cargo", Args: []string{"clippy"}}, false},
		{"no name", Gate{Command: "cargo"}, true},
		{"no command", Gate{Name: Check}, true},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.gate.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
