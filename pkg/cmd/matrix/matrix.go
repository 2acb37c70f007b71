package matrix

import (
	"github.com/spf13/cobra"

	"github.com/xrel-dev/xrel/pkg/cmd/factory"
)

func NewCmdMatrix(f *factory.Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matrix <command>",
		Short: "Inspect the target matrix",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(NewCmdMatrixValidate(f))

	return cmd
}
