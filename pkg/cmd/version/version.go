package version

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

func NewCmdVersion(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of xrel",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), Format(version))
		},
	}
}

// Format renders the version line shown by `xrel version` and `xrel --version`
func Format(version string) string {
	version = strings.TrimPrefix(version, "v")
	return fmt.Sprintf("xrel version %s (%s, %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
