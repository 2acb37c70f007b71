package matrix

import (
	"testing"

	"github.com/spf13/afero"
)

func TestParseMatrix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		want    int
		wantErr bool
	}{
		{
			name: "bare list",
			yaml: `
- os: ubuntu-latest
  target: x86_64-unknown-linux-gnu
- os: windows-latest
  target: x86_64-pc-windows-msvc
  extension: .exe
`,
			want: 2,
		},
		{
			name: "matrix key",
			yaml: `
matrix:
  - os: macos-latest
    target: aarch64-apple-darwin
`,
			want: 1,
		},
		{
			name: "github style include",
			yaml: `
matrix:
  include:
    - os: ubuntu-latest
      target: aarch64-unknown-linux-gnu
      args: ["--features", "vendored"]
      env:
        CC: aarch64-linux-gnu-gcc
`,
			want: 1,
		},
		{
			name:    "scalar document",
			yaml:    `hello`,
			wantErr: true,
		},
		{
			name:    "mapping without matrix",
			yaml:    `steps: []`,
			wantErr: true,
		},
		{
			name: "empty matrix key",
			yaml: `matrix:`,
			want: 0,
		},
		{
			name:    "matrix mapping without include",
			yaml:    "matrix:\n  exclude: []\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, err := ParseMatrix([]byte(tt.yaml))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got matrix %v", m)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(m) != tt.want {
				t.Errorf("expected %d entries, got %d", tt.want, len(m))
			}
		})
	}
}

func TestParseMatrixOverrides(t *testing.T) {
	t.Parallel()

	m, err := ParseMatrix([]byte(`
- os: ubuntu-latest
  target: aarch64-unknown-linux-gnu
  args: ["--features", "vendored"]
  env:
    CC: aarch64-linux-gnu-gcc
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e := m[0]
	if len(e.Args) != 2 || e.Args[1] != "vendored" {
		t.Errorf("unexpected args %v", e.Args)
	}
	if e.Env["CC"] != "aarch64-linux-gnu-gcc" {
		t.Errorf("unexpected env %v", e.Env)
	}
}

func TestLoadMatrix(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/repo/matrix.yml", []byte("- os: linux\n  target: x86_64-unknown-linux-musl\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadMatrix(fs, "/repo/matrix.yml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m) != 1 || m[0].Target != "x86_64-unknown-linux-musl" {
		t.Errorf("unexpected matrix %v", m)
	}

	if _, err := LoadMatrix(fs, "/repo/missing.yml"); err == nil {
		t.Error("expected error for missing file")
	}
}
