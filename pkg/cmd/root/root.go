package root

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/xrel-dev/xrel/pkg/cmd/factory"
	gateCmd "github.com/xrel-dev/xrel/pkg/cmd/gate"
	matrixCmd "github.com/xrel-dev/xrel/pkg/cmd/matrix"
	runCmd "github.com/xrel-dev/xrel/pkg/cmd/run"
	versionCmd "github.com/xrel-dev/xrel/pkg/cmd/version"
)

func NewCmdRoot(f *factory.Factory) (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:   "xrel <command> <subcommand> [flags]",
		Short: "Matrix build and release tool",
		Long: heredoc.Doc(`
			Build a binary for every target of a matrix, keep the artifacts and
			publish them to a GitHub release when a tag is pushed.
		`),
		Example: heredoc.Doc(`
			$ xrel matrix validate
			$ xrel run --from-git
		`),
		Version:      f.Version,
		SilenceUsage: true,
	}

	cmd.SetVersionTemplate(versionCmd.Format(f.Version))

	cmd.PersistentFlags().StringVarP(&f.ConfigFile, "config", "c", "", "Path to the config file (default ./xrel.yaml)")
	cmd.PersistentFlags().BoolVarP(&f.Verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(runCmd.NewCmdRun(f))
	cmd.AddCommand(matrixCmd.NewCmdMatrix(f))
	cmd.AddCommand(gateCmd.NewCmdGate(f))
	cmd.AddCommand(versionCmd.NewCmdVersion(f.Version))

	return cmd, nil
}
