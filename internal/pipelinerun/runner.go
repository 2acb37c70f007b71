package pipelinerun

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/xrel-dev/xrel/internal/artifact"
	xerrors "github.com/xrel-dev/xrel/internal/errors"
	"github.com/xrel-dev/xrel/internal/toolchain"
)

// Runner builds and stores the artifact of one job: checkout, build, rename,
// store. Every failure is captured in the returned Outcome.
type Runner struct {
	Binary    string
	SourceDir string
	RunID     string
	Timeout   time.Duration

	Toolchain toolchain.Toolchain
	Store     artifact.Store

	// FS is where the source directory and built binaries are read from
	FS afero.Fs

	// ResolveCommit reports the source revision; nil skips it
	ResolveCommit func(dir string) (string, error)

	Logger *log.Logger
}

// Run executes job and reports its outcome. It never panics.
func (r *Runner) Run(ctx context.Context, job Job) (out Outcome) {
	logger := r.logger().With("target", job.Entry.Target)

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	defer func() {
		if p := recover(); p != nil {
			logger.Debug("job panicked", "stack", string(debug.Stack()))
			out = Outcome{
				Failure: FailureBuild,
				Err:     xerrors.NewBuildError(fmt.Errorf("panic: %v", p), "job for "+job.Entry.Target+" crashed"),
				Commit:  out.Commit,
			}
		}
	}()

	dir, commit, err := r.checkout()
	out.Commit = commit
	if err != nil {
		return r.fail(ctx, out, FailureBuild, xerrors.NewBuildError(err, "checkout"))
	}

	logger.Debug("building", "os", job.Entry.OS, "dir", dir)
	built, err := r.Toolchain.Build(ctx, job.Entry.Target, toolchain.BuildOptions{
		Binary:    r.Binary,
		Extension: job.Entry.Extension,
		OS:        job.Entry.OS,
		SourceDir: dir,
		Args:      job.Entry.Args,
		Env:       job.Entry.Env,
	})
	if err != nil {
		return r.fail(ctx, out, FailureBuild, xerrors.NewBuildError(err, "toolchain failed for "+job.Entry.Target))
	}

	out.BinaryPath = built

	if err := r.verifyBinary(built); err != nil {
		return r.fail(ctx, out, FailureBuild, xerrors.NewBuildError(err, "toolchain reported success without a binary"))
	}

	a, err := r.store(ctx, built, job)
	if err != nil {
		return r.fail(ctx, out, FailureStore, xerrors.NewStoreError(err, "storing "+job.ArtifactName))
	}

	logger.Info("stored artifact", "artifact", a.Name, "size", artifact.FormatBytes(a.Size))
	out.Artifact = a
	return out
}

func (r *Runner) checkout() (string, string, error) {
	dir := r.SourceDir
	if dir == "" {
		dir = "."
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	info, err := r.fs().Stat(dir)
	if err != nil {
		return dir, "", fmt.Errorf("source directory: %w", err)
	}
	if !info.IsDir() {
		return dir, "", fmt.Errorf("source %s is not a directory", dir)
	}

	if r.ResolveCommit == nil {
		return dir, "", nil
	}
	commit, err := r.ResolveCommit(dir)
	if err != nil {
		// the revision is informational only
		r.logger().Debug("could not resolve source commit", "dir", dir, "err", err)
		return dir, "", nil
	}
	return dir, commit, nil
}

func (r *Runner) verifyBinary(path string) error {
	info, err := r.fs().Stat(path)
	if err != nil {
		return fmt.Errorf("expected binary at %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	return nil
}

func (r *Runner) store(ctx context.Context, built string, job Job) (*artifact.Artifact, error) {
	f, err := r.fs().Open(built)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	a, err := r.Store.Put(ctx, r.RunID, job.ArtifactName, f)
	if err != nil {
		return nil, err
	}
	a.Target = job.Entry.Target
	return a, nil
}

// fail classifies err, preferring a timeout or cancellation of ctx over the
// step's own kind
func (r *Runner) fail(ctx context.Context, out Outcome, kind FailureKind, err error) Outcome {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		kind = FailureTimeout
	case errors.Is(ctx.Err(), context.Canceled):
		kind = FailureCanceled
	}
	out.Failure = kind
	out.Err = err
	return out
}

func (r *Runner) fs() afero.Fs {
	if r.FS == nil {
		return afero.NewOsFs()
	}
	return r.FS
}

func (r *Runner) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}
