// Package artifact stores the named build outputs of a run.
//
// Artifacts are scoped by run ID. A Put for a name that already exists in the
// same run replaces it; an artifact becomes visible only once its Put has
// fully completed.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// ErrNotFound is returned by Get for names that were never stored in the run
var ErrNotFound = errors.New("artifact not found")

// Artifact describes a stored build output
type Artifact struct {
	Name     string    `json:"name" yaml:"name"`
	RunID    string    `json:"run_id" yaml:"run_id"`
	Target   string    `json:"target,omitempty" yaml:"target,omitempty"`
	Size     int64     `json:"size" yaml:"size"`
	SHA256   string    `json:"sha256" yaml:"sha256"`
	StoredAt time.Time `json:"stored_at" yaml:"stored_at"`
}

// Store receives artifacts from successful jobs and serves them to the publisher
type Store interface {
	// Put stores the bytes read from r under name, replacing any previous
	// artifact of that name in the run
	Put(ctx context.Context, runID, name string, r io.Reader) (*Artifact, error)

	// Get opens a stored artifact for reading
	Get(ctx context.Context, runID, name string) (io.ReadCloser, error)

	// List returns the names stored for a run, sorted
	List(ctx context.Context, runID string) ([]string, error)
}

// FormatBytes formats bytes into human-readable format (kB, MB, GB, etc.)
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		return "unknown"
	}
	return humanize.Bytes(uint64(bytes))
}

func validateKey(runID, name string) error {
	if err := validateSegment("run id", runID); err != nil {
		return err
	}
	return validateSegment("artifact name", name)
}

func validateSegment(kind, s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%s is required", kind)
	}
	if strings.ContainsAny(s, `/\`) || s == "." || s == ".." {
		return fmt.Errorf("%s %q is not a valid file name", kind, s)
	}
	return nil
}

// contextReader stops a copy as soon as ctx is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
