package pipelinerun

import (
	"github.com/google/uuid"

	"github.com/xrel-dev/xrel/internal/matrix"
)

// Plan validates the matrix for binary bin and expands it into one pending
// job per entry. Nothing is planned when validation fails.
func Plan(m matrix.Matrix, bin string) (*JobSet, error) {
	if err := m.Validate(bin); err != nil {
		return nil, err
	}

	set := NewJobSet()
	for _, entry := range m {
		set.Add(&Job{
			ID:           uuid.NewString(),
			Entry:        entry,
			ArtifactName: entry.ArtifactName(bin),
		})
	}
	return set, nil
}
