// Package pipelinerun expands a target matrix into build jobs, runs them
// concurrently, and publishes the stored artifacts once every job is done.
package pipelinerun

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/xrel-dev/xrel/internal/artifact"
	xerrors "github.com/xrel-dev/xrel/internal/errors"
	"github.com/xrel-dev/xrel/internal/gate"
	"github.com/xrel-dev/xrel/internal/matrix"
	"github.com/xrel-dev/xrel/internal/release"
	"github.com/xrel-dev/xrel/internal/toolchain"
)

// Publisher publishes the artifacts of a run to a release
type Publisher interface {
	Publish(ctx context.Context, target release.Target, artifacts []artifact.Artifact, store artifact.Store) *release.Report
}

// RunConfig holds configuration for a run
type RunConfig struct {
	// RunID scopes stored artifacts; generated when empty
	RunID string

	Binary    string
	Matrix    matrix.Matrix
	SourceDir string
	Trigger   release.TriggerContext

	Toolchain toolchain.Toolchain
	Store     artifact.Store
	// Publisher may be nil when no release target is configured
	Publisher Publisher

	Gates        []gate.Gate
	EnforceGates bool

	// Concurrency bounds the number of jobs building at once (0 = one per entry)
	Concurrency int
	// Timeout bounds each job (0 = no limit)
	Timeout time.Duration

	// DryRun plans the jobs without running anything
	DryRun bool

	FS            afero.Fs
	ResolveCommit func(dir string) (string, error)
	Logger        *log.Logger
}

// JobReport is the final state of one job
type JobReport struct {
	ID       string                 `json:"id" yaml:"id"`
	Target   string                 `json:"target" yaml:"target"`
	OS       matrix.OperatingSystem `json:"os" yaml:"os"`
	Artifact string                 `json:"artifact" yaml:"artifact"`
	State    JobState               `json:"state" yaml:"state"`
	Failure  FailureKind            `json:"failure,omitempty" yaml:"failure,omitempty"`
	Error    string                 `json:"error,omitempty" yaml:"error,omitempty"`
	Commit   string                 `json:"commit,omitempty" yaml:"commit,omitempty"`
	Binary   string                 `json:"binary_path,omitempty" yaml:"binary_path,omitempty"`
	Size     int64                  `json:"size,omitempty" yaml:"size,omitempty"`
	SHA256   string                 `json:"sha256,omitempty" yaml:"sha256,omitempty"`
	Duration time.Duration          `json:"duration" yaml:"duration"`

	err error
}

// Err returns the failure of the job, if any
func (r JobReport) Err() error {
	return r.err
}

// RunResult holds the result of a run
type RunResult struct {
	RunID       string                 `json:"run_id" yaml:"run_id"`
	Binary      string                 `json:"binary" yaml:"binary"`
	Trigger     release.TriggerContext `json:"trigger" yaml:"trigger"`
	Success     bool                   `json:"success" yaml:"success"`
	DryRun      bool                   `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	Stats       Stats                  `json:"stats" yaml:"stats"`
	Jobs        []JobReport            `json:"jobs" yaml:"jobs"`
	Artifacts   []string               `json:"artifacts" yaml:"artifacts"`
	Gates       []gate.Result          `json:"gates,omitempty" yaml:"gates,omitempty"`
	Publication *release.Report        `json:"publication" yaml:"publication"`
	Duration    time.Duration          `json:"duration" yaml:"duration"`
	Canceled    bool                   `json:"canceled,omitempty" yaml:"canceled,omitempty"`
}

// FailedJobs returns the reports of failed jobs
func (r *RunResult) FailedJobs() []JobReport {
	var failed []JobReport
	for _, j := range r.Jobs {
		if j.State == JobStateFailed {
			failed = append(failed, j)
		}
	}
	return failed
}

// Err summarises why the run did not succeed, or returns nil
func (r *RunResult) Err() error {
	if r.Success {
		return nil
	}

	var reasons []string
	if n := len(r.FailedJobs()); n > 0 {
		reasons = append(reasons, fmt.Sprintf("%d of %d jobs failed", n, len(r.Jobs)))
	}
	if names := gate.Failed(r.Gates); len(names) > 0 {
		reasons = append(reasons, "quality gates failed: "+strings.Join(names, ", "))
	}
	if r.Publication.Failed() {
		reasons = append(reasons, "publication "+string(r.Publication.Outcome))
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "run did not complete")
	}
	return xerrors.NewRunFailedError(strings.Join(reasons, "; "))
}

// Run validates the configuration, builds every matrix entry, waits for all
// jobs and then runs the publication step at most once. It returns an error
// only when the configuration is invalid; job and upload failures are
// reported in the result.
func Run(ctx context.Context, config *RunConfig) (*RunResult, error) {
	start := time.Now()

	jobs, err := Plan(config.Matrix, config.Binary)
	if err != nil {
		return nil, err
	}
	if err := validate(config); err != nil {
		return nil, err
	}

	runID := config.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.With("run", runID)

	result := &RunResult{
		RunID:   runID,
		Binary:  config.Binary,
		Trigger: config.Trigger,
		DryRun:  config.DryRun,
	}

	if config.DryRun {
		logger.Debug("dry run", "jobs", jobs.Len())
		result.Success = true
		result.Publication = plannedPublication(config)
		collect(result, jobs)
		return result, nil
	}

	runner := &Runner{
		Binary:        config.Binary,
		SourceDir:     config.SourceDir,
		RunID:         runID,
		Timeout:       config.Timeout,
		Toolchain:     config.Toolchain,
		Store:         config.Store,
		FS:            config.FS,
		ResolveCommit: config.ResolveCommit,
		Logger:        logger,
	}

	limit := config.Concurrency
	if limit <= 0 {
		limit = jobs.Len() + 1
	}

	logger.Info("starting run", "jobs", jobs.Len(), "concurrency", limit, "trigger", config.Trigger.String())

	// job goroutines never return an error, so no job can cancel its siblings
	var g errgroup.Group
	g.SetLimit(limit)

	if len(config.Gates) > 0 {
		g.Go(func() error {
			result.Gates = gate.RunAll(ctx, config.SourceDir, config.Gates, logger)
			return nil
		})
	}

	for _, job := range jobs.Jobs() {
		job := job
		g.Go(func() error {
			if err := jobs.Start(job.ID); err != nil {
				logger.Error("job not started", "target", job.Entry.Target, "err", err)
				return nil
			}
			out := runner.Run(ctx, job)
			if out.Err != nil {
				logger.Error("job failed", "target", job.Entry.Target, "failure", out.Failure, "err", out.Err)
			}
			if err := jobs.Finish(job.ID, out); err != nil {
				logger.Error("job not finished", "target", job.Entry.Target, "err", err)
			}
			return nil
		})
	}

	// barrier: every job is terminal past this point
	_ = g.Wait()

	result.Canceled = ctx.Err() != nil
	result.Publication = publish(ctx, config, result, jobs, logger)

	collect(result, jobs)
	result.Duration = time.Since(start)
	result.Success = !jobs.HasFailed() &&
		!result.Publication.Failed() &&
		!(config.EnforceGates && len(gate.Failed(result.Gates)) > 0) &&
		!result.Canceled

	logger.Info("run finished", "success", result.Success, "succeeded", result.Stats.Succeeded,
		"failed", result.Stats.Failed, "publication", result.Publication.Outcome)
	return result, nil
}

func validate(config *RunConfig) error {
	var missing []string
	if config.Toolchain == nil && !config.DryRun {
		missing = append(missing, "toolchain")
	}
	if config.Store == nil && !config.DryRun {
		missing = append(missing, "artifact store")
	}
	if len(missing) > 0 {
		return xerrors.NewConfigurationError(
			errors.New("no "+strings.Join(missing, " or ")+" configured"), "cannot start run")
	}
	for _, g := range config.Gates {
		if err := g.Validate(); err != nil {
			return xerrors.NewConfigurationError(err, "invalid quality gate")
		}
	}
	return nil
}

// publish runs the publication step once, after the barrier
func publish(ctx context.Context, config *RunConfig, result *RunResult, jobs *JobSet, logger *log.Logger) *release.Report {
	if ctx.Err() != nil {
		logger.Warn("run canceled, skipping publication")
		return release.Skipped("canceled")
	}

	if config.EnforceGates {
		if names := gate.Failed(result.Gates); len(names) > 0 {
			logger.Warn("quality gates failed, skipping publication", "gates", strings.Join(names, ","))
			return release.Skipped("quality gates failed: " + strings.Join(names, ", "))
		}
	}

	target, ok := release.Authorize(config.Trigger)
	if !ok {
		reason := release.DeclineReason(config.Trigger)
		logger.Info("not publishing", "reason", reason)
		return release.Skipped(reason)
	}

	if config.Publisher == nil {
		logger.Warn("tag push but no release target configured", "tag", target.Tag)
		return release.Skipped("no release target configured")
	}

	artifacts := jobs.Artifacts()
	logger.Info("publishing", "tag", target.Tag, "artifacts", len(artifacts))
	return config.Publisher.Publish(ctx, *target, artifacts, config.Store)
}

func plannedPublication(config *RunConfig) *release.Report {
	target, ok := release.Authorize(config.Trigger)
	if !ok {
		return release.Skipped(release.DeclineReason(config.Trigger))
	}
	return &release.Report{Outcome: release.OutcomeSkipped, Tag: target.Tag, Reason: "dry run"}
}

func collect(result *RunResult, jobs *JobSet) {
	result.Stats = jobs.Stats()
	result.Jobs = result.Jobs[:0]
	result.Artifacts = []string{}

	for _, job := range jobs.Jobs() {
		report := JobReport{
			ID:       job.ID,
			Target:   job.Entry.Target,
			OS:       job.Entry.OS,
			Artifact: job.ArtifactName,
			State:    job.State,
			Failure:  job.Failure,
			Commit:   job.Commit,
			Binary:   job.BinaryPath,
			Duration: job.Duration(),
			err:      job.Err,
		}
		if job.Err != nil {
			report.Error = job.Err.Error()
		}
		if job.Artifact != nil {
			report.Size = job.Artifact.Size
			report.SHA256 = job.Artifact.SHA256
			result.Artifacts = append(result.Artifacts, job.Artifact.Name)
		}
		result.Jobs = append(result.Jobs, report)
	}
}
