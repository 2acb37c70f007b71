package gate

import (
	"fmt"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/xrel-dev/xrel/internal/config"
	xerrors "github.com/xrel-dev/xrel/internal/errors"
	"github.com/xrel-dev/xrel/internal/gate"
	"github.com/xrel-dev/xrel/pkg/cmd/factory"
	"github.com/xrel-dev/xrel/pkg/output"
	"github.com/xrel-dev/xrel/pkg/style"
)

type gateReport struct {
	Results []gate.Result `json:"results" yaml:"results"`
}

func (r gateReport) TextOutput() string {
	var b strings.Builder
	for _, res := range r.Results {
		if res.Passed {
			fmt.Fprintf(&b, "%s %s  %s\n", style.Pass().Render(style.PassMark), res.Name,
				style.Faint().Render(res.Duration.Round(time.Millisecond).String()))
			continue
		}
		fmt.Fprintf(&b, "%s %s  %s\n", style.Fail().Render(style.FailMark), res.Name, style.Fail().Render(res.Error))
		if out := strings.TrimSpace(res.Output); out != "" {
			for _, line := range strings.Split(out, "\n") {
				fmt.Fprintf(&b, "    %s\n", style.Faint().Render(line))
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func NewCmdGate(f *factory.Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gate [<name>...] [flags]",
		Short: "Run the quality gates",
		Long: heredoc.Doc(`
			Run the configured quality gates (for example check, fmt and lint)
			once, in order, in the source directory. With names given, only those
			gates run. The command fails if any gate fails.
		`),
		Example: heredoc.Doc(`
			# Run every gate
			$ xrel gate

			# Run only the formatting check
			$ xrel gate fmt
		`),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return f.BindFlags(cmd.Flags(), map[string]string{
				"source": config.SourceKey,
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

			gates, err := selectGates(conf.Gates.Checks, args)
			if err != nil {
				return err
			}

			results := gate.RunAll(cmd.Context(), conf.Source, gates, f.Logger)

			output.ConfigureRenderer(cmd.OutOrStdout())
			if err := output.Write(cmd.OutOrStdout(), gateReport{Results: results}, format); err != nil {
				return xerrors.NewInternalError(err, "writing the gate report")
			}

			if failed := gate.Failed(results); len(failed) > 0 {
				return xerrors.NewRunFailedError("quality gates failed: " + strings.Join(failed, ", "))
			}
			return nil
		}),
	}

	cmd.Flags().String("source", ".", "Source directory to run the gates in")
	output.AddFlags(cmd.Flags())

	return cmd
}

// selectGates returns the gates named in names, in configuration order
func selectGates(gates []gate.Gate, names []string) ([]gate.Gate, error) {
	if len(gates) == 0 {
		return nil, xerrors.NewConfigurationError(nil, "no quality gates configured",
			"Add gates under 'gates.checks' in xrel.yaml")
	}
	if len(names) == 0 {
		return gates, nil
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	var selected []gate.Gate
	for _, g := range gates {
		if wanted[g.Name] {
			selected = append(selected, g)
			delete(wanted, g.Name)
		}
	}
	if len(wanted) > 0 {
		unknown := make([]string, 0, len(wanted))
		for _, n := range names {
			if wanted[n] {
				unknown = append(unknown, n)
			}
		}
		return nil, xerrors.NewValidationError(nil, "unknown gate: "+strings.Join(unknown, ", "))
	}
	return selected, nil
}
