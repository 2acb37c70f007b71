package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"
)

const stagingDir = ".staging"

// FSStore keeps artifacts on a filesystem under root/<run id>/<name>
type FSStore struct {
	fs   afero.Fs
	root string
}

// NewFSStore creates a store rooted at root. A nil fs means the OS filesystem.
func NewFSStore(fs afero.Fs, root string) *FSStore {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FSStore{fs: fs, root: root}
}

// Root returns the directory artifacts are stored under
func (s *FSStore) Root() string {
	return s.root
}

// Put writes r to a staging file and renames it into place once complete
func (s *FSStore) Put(ctx context.Context, runID, name string, r io.Reader) (*Artifact, error) {
	if err := validateKey(runID, name); err != nil {
		return nil, err
	}

	runDir := filepath.Join(s.root, runID)
	staging := filepath.Join(runDir, stagingDir)
	if err := s.fs.MkdirAll(staging, 0o755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, staging, name+".*")
	if err != nil {
		return nil, fmt.Errorf("creating staging file: %w", err)
	}
	tmpName := tmp.Name()

	hasher := sha256.New()
	size, copyErr := io.Copy(io.MultiWriter(tmp, hasher), &contextReader{ctx: ctx, r: r})
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = s.fs.Remove(tmpName)
		return nil, fmt.Errorf("writing %s: %w", name, err)
	}

	if err := s.fs.Rename(tmpName, filepath.Join(runDir, name)); err != nil {
		_ = s.fs.Remove(tmpName)
		return nil, fmt.Errorf("committing %s: %w", name, err)
	}

	return &Artifact{
		Name:     name,
		RunID:    runID,
		Size:     size,
		SHA256:   hex.EncodeToString(hasher.Sum(nil)),
		StoredAt: time.Now().UTC(),
	}, nil
}

// Get opens a stored artifact
func (s *FSStore) Get(_ context.Context, runID, name string) (io.ReadCloser, error) {
	if err := validateKey(runID, name); err != nil {
		return nil, err
	}

	f, err := s.fs.Open(filepath.Join(s.root, runID, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	return f, nil
}

// List returns the committed artifact names of a run
func (s *FSStore) List(_ context.Context, runID string) ([]string, error) {
	if err := validateSegment("run id", runID); err != nil {
		return nil, err
	}

	infos, err := afero.ReadDir(s.fs, filepath.Join(s.root, runID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing run %s: %w", runID, err)
	}

	var names []string
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		names = append(names, info.Name())
	}
	sort.Strings(names)
	return names, nil
}
