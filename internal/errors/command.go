package errors

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ExecuteWithErrorHandling runs the command tree and returns the process exit
// code. A failing command's error is written to its stderr, prefixed with the
// error category and tagged with the command path that produced it.
func ExecuteWithErrorHandling(cmd *cobra.Command, verbose bool) int {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	executed, err := cmd.ExecuteC()
	if err == nil {
		return ExitCodeSuccess
	}
	if executed == nil {
		executed = cmd
	}

	NewHandler().
		WithWriter(executed.ErrOrStderr()).
		WithVerbose(verbose).
		WithExitFunc(nil).
		HandleWithDetails(err, executed.CommandPath())
	return GetExitCodeForError(err)
}

// WrapRunE attaches command context to the errors fn returns, depending on
// their category
func WrapRunE(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		switch {
		case err == nil:
			return nil
		case IsConfigurationError(err):
			return WithSuggestions(err, fmt.Sprintf("Try '%s --help' for more information", cmd.CommandPath()))
		case IsValidationError(err):
			return WithDetails(err, "When executing "+cmd.CommandPath())
		case IsNamingConflict(err):
			return WithSuggestions(err,
				fmt.Sprintf("Run '%s matrix validate' to list the artifact name of every target", cmd.Root().Name()))
		case IsRunFailed(err):
			return WithSuggestions(err, "Re-run with --verbose, or with --output json for the diagnostics of every job")
		case IsUserAborted(err):
			return WithDetails(err, "stopped by a signal during "+cmd.CommandPath())
		}
		return err
	}
}
