// Package matrix describes the set of build targets a run fans out over.
//
// A Matrix is an ordered list of entries, one per target triple. The target
// triple is the identity of an entry and must be unique within a matrix; the
// artifact name of every entry is derived from it, so uniqueness of triples is
// what keeps artifact names collision-free.
package matrix

import (
	"fmt"
	"sort"
	"strings"

	xerrors "github.com/xrel-dev/xrel/internal/errors"
)

// OperatingSystem is the runner image or host family a target is built on
type OperatingSystem string

const (
	Linux   OperatingSystem = "linux"
	MacOS   OperatingSystem = "macos"
	Windows OperatingSystem = "windows"
)

// Family maps runner labels such as "ubuntu-latest" or "windows-2022" to an OS family.
// Unknown labels are returned unchanged.
func (o OperatingSystem) Family() OperatingSystem {
	s := strings.ToLower(string(o))
	switch {
	case strings.HasPrefix(s, "ubuntu"), strings.HasPrefix(s, "linux"), strings.HasPrefix(s, "debian"):
		return Linux
	case strings.HasPrefix(s, "macos"), strings.HasPrefix(s, "darwin"), strings.HasPrefix(s, "osx"):
		return MacOS
	case strings.HasPrefix(s, "windows"), strings.HasPrefix(s, "win"):
		return Windows
	}
	return o
}

// Entry is one (operating system, target triple) combination to build for
type Entry struct {
	OS        OperatingSystem   `yaml:"os" json:"os" mapstructure:"os"`
	Target    string            `yaml:"target" json:"target" mapstructure:"target"`
	Extension string            `yaml:"extension,omitempty" json:"extension,omitempty" mapstructure:"extension"`
	Args      []string          `yaml:"args,omitempty" json:"args,omitempty" mapstructure:"args"`
	Env       map[string]string `yaml:"env,omitempty" json:"env,omitempty" mapstructure:"env"`
}

// ArtifactName returns the artifact name this entry produces for binary bin
func (e Entry) ArtifactName(bin string) string {
	return ArtifactName(bin, e.Target, e.Extension)
}

// Matrix is the ordered list of entries a run expands into jobs
type Matrix []Entry

// Targets returns the target triples in matrix order
func (m Matrix) Targets() []string {
	targets := make([]string, 0, len(m))
	for _, e := range m {
		targets = append(targets, e.Target)
	}
	return targets
}

// Lookup returns the entry for a target triple
func (m Matrix) Lookup(target string) (Entry, bool) {
	for _, e := range m {
		if e.Target == target {
			return e, true
		}
	}
	return Entry{}, false
}

// Validate checks the matrix invariants for binary bin. It must be called
// before any job starts; every violation is fatal to the whole run.
func (m Matrix) Validate(bin string) error {
	if err := ValidateBinaryName(bin); err != nil {
		return err
	}

	if len(m) == 0 {
		return xerrors.NewValidationError(nil, "matrix has no entries",
			"Add at least one entry under 'matrix' with an os and a target")
	}

	seenTargets := make(map[string]int, len(m))
	seenNames := make(map[string]string, len(m))
	for i, e := range m {
		target := strings.TrimSpace(e.Target)
		if target == "" {
			return xerrors.NewValidationError(nil, fmt.Sprintf("matrix entry %d has no target", i))
		}
		if target != e.Target || strings.ContainsAny(target, `/\ `) {
			return xerrors.NewValidationError(nil, fmt.Sprintf("matrix entry %d has an invalid target %q", i, e.Target))
		}
		if strings.TrimSpace(string(e.OS)) == "" {
			return xerrors.NewValidationError(nil, fmt.Sprintf("matrix entry %q has no os", e.Target))
		}
		if err := ValidateExtension(e.Extension); err != nil {
			return xerrors.WithDetails(err, fmt.Sprintf("matrix entry %q", e.Target))
		}

		if prev, ok := seenTargets[e.Target]; ok {
			return xerrors.NewNamingConflictError(nil,
				fmt.Sprintf("matrix entries %d and %d share target %q", prev, i, e.Target),
				"Each target triple may appear only once in the matrix")
		}
		seenTargets[e.Target] = i

		name := e.ArtifactName(bin)
		if other, ok := seenNames[name]; ok {
			return xerrors.NewNamingConflictError(nil,
				fmt.Sprintf("targets %q and %q both produce artifact %q", other, e.Target, name))
		}
		seenNames[name] = e.Target
	}

	return nil
}

// ArtifactNames returns the artifact name of every entry, sorted
func (m Matrix) ArtifactNames(bin string) []string {
	names := make([]string, 0, len(m))
	for _, e := range m {
		names = append(names, e.ArtifactName(bin))
	}
	sort.Strings(names)
	return names
}
