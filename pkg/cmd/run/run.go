package run

import (
	"context"
	"errors"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/xrel-dev/xrel/internal/config"
	xerrors "github.com/xrel-dev/xrel/internal/errors"
	"github.com/xrel-dev/xrel/internal/gate"
	"github.com/xrel-dev/xrel/internal/gitref"
	"github.com/xrel-dev/xrel/internal/pipelinerun"
	"github.com/xrel-dev/xrel/internal/release"
	"github.com/xrel-dev/xrel/pkg/cmd/factory"
	"github.com/xrel-dev/xrel/pkg/output"
)

type runOptions struct {
	event   string
	ref     string
	fromGit bool
	dryRun  bool
}

func NewCmdRun(f *factory.Factory) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [flags]",
		Short: "Build every matrix target and publish a release",
		Args:  cobra.NoArgs,
		Long: heredoc.Doc(`
			Build the binary for every entry of the target matrix, store the
			artifacts and, when the run was triggered by a tag push, attach them
			to the GitHub release for that tag.

			Jobs run concurrently and independently: a failed target never stops
			the others. Publication happens once, after every job has finished.

			The trigger is read from --event and --ref, then from the
			GITHUB_EVENT_NAME and GITHUB_REF environment variables. With
			--from-git it is derived from the tag or branch checked out in the
			source directory.
		`),
		Example: heredoc.Doc(`
			# Build every target without publishing
			$ xrel run --event push --ref refs/heads/main

			# Build and publish the release for v1.2.0
			$ xrel run --event push --ref refs/tags/v1.2.0

			# Use the tag checked out locally
			$ xrel run --from-git

			# Show the planned jobs and artifact names
			$ xrel run --dry-run -o yaml
		`),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return f.BindFlags(cmd.Flags(), map[string]string{
				"binary":        config.BinaryKey,
				"source":        config.SourceKey,
				"matrix":        config.MatrixFileKey,
				"concurrency":   config.ConcurrencyKey,
				"timeout":       config.TimeoutKey,
				"enforce-gates": config.EnforceKey,
			})
		},
		RunE: xerrors.WrapRunE(func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, f, opts)
		}),
	}

	cmd.Flags().String("binary", "", "Name of the binary to build")
	cmd.Flags().String("source", ".", "Source directory to build in")
	cmd.Flags().String("matrix", "", "Read the target matrix from a YAML file")
	cmd.Flags().Int("concurrency", 0, "Maximum number of jobs building at once (0 for all)")
	cmd.Flags().Duration("timeout", 0, "Time limit for each job (0 for none)")
	cmd.Flags().Bool("enforce-gates", false, "Fail the run and skip publication when a quality gate fails")
	cmd.Flags().StringVar(&opts.event, "event", "", "Event that triggered the run: push, pull_request or workflow_dispatch")
	cmd.Flags().StringVar(&opts.ref, "ref", "", "Git ref the run was triggered for, e.g. refs/tags/v1.0.0")
	cmd.Flags().BoolVar(&opts.fromGit, "from-git", false, "Derive the trigger from the local git checkout")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the planned jobs without building or publishing")
	cmd.MarkFlagsMutuallyExclusive("from-git", "event")
	cmd.MarkFlagsMutuallyExclusive("from-git", "ref")
	output.AddFlags(cmd.Flags())

	return cmd
}

func runRun(cmd *cobra.Command, f *factory.Factory, opts runOptions) error {
	ctx := cmd.Context()

	format, err := output.GetFormat(cmd.Flags())
	if err != nil {
		return xerrors.NewValidationError(err, "invalid --output")
	}

	conf, err := f.Config()
	if err != nil {
		return err
	}

	trigger, err := resolveTrigger(opts, conf.Source)
	if err != nil {
		return err
	}

	runConfig := &pipelinerun.RunConfig{
		Binary:        conf.Binary,
		Matrix:        conf.Matrix,
		SourceDir:     conf.Source,
		Trigger:       trigger,
		Gates:         conf.Gates.Checks,
		EnforceGates:  conf.Gates.Enforce,
		Concurrency:   conf.Concurrency,
		Timeout:       conf.Timeout,
		DryRun:        opts.dryRun,
		FS:            f.FS,
		ResolveCommit: gitref.HeadCommit,
		Logger:        f.Logger,
	}

	// the store and publisher are never opened for a matrix that cannot run
	if err := conf.Matrix.Validate(conf.Binary); err != nil {
		return err
	}

	if !opts.dryRun {
		if err := prepare(ctx, f, conf, runConfig); err != nil {
			return err
		}
	}

	result, err := pipelinerun.Run(ctx, runConfig)
	if err != nil {
		return err
	}

	output.ConfigureRenderer(cmd.OutOrStdout())
	if err := output.Write(cmd.OutOrStdout(), runReport{result}, format); err != nil {
		return xerrors.NewInternalError(err, "writing the run report")
	}

	if failed := gate.Failed(result.Gates); len(failed) > 0 && !conf.Gates.Enforce {
		xerrors.NewHandler().WithWriter(cmd.ErrOrStderr()).
			PrintWarning("quality gates failed without blocking the run: %s", strings.Join(failed, ", "))
	}

	if result.Canceled {
		return xerrors.NewUserAbortedError(context.Cause(ctx), "run interrupted",
			"Artifacts stored before the interrupt are kept under run "+result.RunID)
	}
	return result.Err()
}

// prepare wires the side-effecting dependencies of a real run
func prepare(ctx context.Context, f *factory.Factory, conf *config.Config, runConfig *pipelinerun.RunConfig) error {
	if err := conf.ValidateToolchain(); err != nil {
		return err
	}
	runConfig.Toolchain = f.Toolchain(conf)

	store, err := f.Store(ctx, conf)
	if err != nil {
		return err
	}
	runConfig.Store = store

	publisher, err := f.Publisher(ctx, conf)
	if err != nil {
		return err
	}
	runConfig.Publisher = publisher
	return nil
}

// resolveTrigger picks the trigger from flags, then the CI environment, then
// the local checkout when asked. Without any of them the run is never
// authorized to publish.
func resolveTrigger(opts runOptions, sourceDir string) (release.TriggerContext, error) {
	if opts.fromGit {
		tc, err := gitref.Trigger(sourceDir)
		if err != nil {
			return release.TriggerContext{}, xerrors.NewValidationError(err, "deriving the trigger from git",
				"Run inside a git repository or pass --event and --ref")
		}
		return tc, nil
	}

	if opts.event != "" || opts.ref != "" {
		if opts.event == "" {
			return release.TriggerContext{}, xerrors.NewValidationError(errors.New("--ref requires --event"), "invalid trigger")
		}
		kind, err := release.ParseEventKind(opts.event)
		if err != nil {
			return release.TriggerContext{}, xerrors.NewValidationError(err, "invalid trigger")
		}
		return release.TriggerContext{Event: kind, Ref: opts.ref}, nil
	}

	tc, ok, err := release.FromEnv()
	if err != nil {
		return release.TriggerContext{}, xerrors.NewValidationError(err, "reading the trigger from the environment")
	}
	if ok {
		return tc, nil
	}
	return release.TriggerContext{}, nil
}
