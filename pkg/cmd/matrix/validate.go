package matrix

import (
	"fmt"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/xrel-dev/xrel/internal/config"
	xerrors "github.com/xrel-dev/xrel/internal/errors"
	"github.com/xrel-dev/xrel/internal/matrix"
	"github.com/xrel-dev/xrel/pkg/cmd/factory"
	"github.com/xrel-dev/xrel/pkg/output"
	"github.com/xrel-dev/xrel/pkg/style"
)

type entryReport struct {
	Target   string                 `json:"target" yaml:"target"`
	OS       matrix.OperatingSystem `json:"os" yaml:"os"`
	Family   matrix.OperatingSystem `json:"family" yaml:"family"`
	Artifact string                 `json:"artifact" yaml:"artifact"`
}

type validateReport struct {
	Binary  string        `json:"binary" yaml:"binary"`
	Entries []entryReport `json:"entries" yaml:"entries"`
}

func (r validateReport) TextOutput() string {
	rows := make([][]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		rows = append(rows, []string{e.Target, string(e.OS), e.Artifact})
	}
	summary := style.Pass().Render(fmt.Sprintf("%s Matrix is valid: %d targets for %s", style.PassMark, len(r.Entries), r.Binary))
	return output.Table([]string{"target", "os", "artifact"}, rows) + "\n\n" + summary
}

func NewCmdMatrixValidate(f *factory.Factory) *cobra.Command {
	cmd := &cobra.Command{
		DisableFlagsInUseLine: true,
		Use:                   "validate [flags]",
		Short:                 "Validate the target matrix",
		Args:                  cobra.NoArgs,
		Long: heredoc.Doc(`
			Validate the target matrix and print the artifact name every entry
			will produce. Duplicate targets, colliding artifact names and
			malformed extensions are reported without building anything.
		`),
		Example: heredoc.Doc(`
			# Validate the matrix in xrel.yaml
			$ xrel matrix validate

			# Validate a standalone matrix file for another binary
			$ xrel matrix validate --matrix ci/targets.yaml --binary tool
		`),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return f.BindFlags(cmd.Flags(), map[string]string{
				"binary": config.BinaryKey,
				"matrix": config.MatrixFileKey,
			})
		},
		RunE: xerrors.WrapRunE(func(cmd *cobra.Command, args []string) error {
			format, err := output.GetFormat(cmd.Flags())
			if err != nil {
				return xerrors.NewValidationError(err, "invalid --output")
			}

			conf, err := f.Config()
			if err != nil {
				return err
			}

			report, err := validateMatrix(conf.Binary, conf.Matrix)
			if err != nil {
				return err
			}

			output.ConfigureRenderer(cmd.OutOrStdout())
			return output.Write(cmd.OutOrStdout(), report, format)
		}),
	}

	cmd.Flags().String("binary", "", "Name of the binary to build")
	cmd.Flags().String("matrix", "", "Read the target matrix from a YAML file")
	output.AddFlags(cmd.Flags())

	return cmd
}

func validateMatrix(bin string, m matrix.Matrix) (validateReport, error) {
	if err := m.Validate(bin); err != nil {
		return validateReport{}, err
	}

	report := validateReport{Binary: bin, Entries: make([]entryReport, 0, len(m))}
	for _, e := range m {
		report.Entries = append(report.Entries, entryReport{
			Target:   e.Target,
			OS:       e.OS,
			Family:   e.OS.Family(),
			Artifact: e.ArtifactName(bin),
		})
	}
	return report, nil
}
