package run

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xrel-dev/xrel/internal/artifact"
	"github.com/xrel-dev/xrel/internal/pipelinerun"
	"github.com/xrel-dev/xrel/internal/release"
	"github.com/xrel-dev/xrel/pkg/style"
)

// runReport renders a run result as text. JSON and YAML output are the
// result itself.
type runReport struct {
	*pipelinerun.RunResult
}

func (r runReport) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.RunResult)
}

func (r runReport) MarshalYAML() (interface{}, error) {
	return r.RunResult, nil
}

// TextOutput renders the run as a human readable report
func (r runReport) TextOutput() string {
	var b strings.Builder
	passStyle, failStyle, skipStyle := style.Pass(), style.Fail(), style.Skip()
	faintStyle, titleStyle := style.Faint(), style.Title()

	if r.DryRun {
		fmt.Fprintf(&b, "%s\n\n", titleStyle.Render("Dry run: "+r.Binary))
		for i, job := range r.Jobs {
			fmt.Fprintf(&b, "%d. %s (%s)\n   %s\n", i+1, job.Target, job.OS, faintStyle.Render("→ "+job.Artifact))
		}
		fmt.Fprintf(&b, "\n%s\n", publicationLine(r.Publication))
		return strings.TrimRight(b.String(), "\n")
	}

	fmt.Fprintf(&b, "%s\n", titleStyle.Render("Jobs"))
	for _, job := range r.Jobs {
		switch job.State {
		case pipelinerun.JobStateSucceeded:
			fmt.Fprintf(&b, "%s %s\n  %s\n", passStyle.Render(style.PassMark), job.Target,
				artifact.Summary(&artifact.Artifact{Name: job.Artifact, Size: job.Size, SHA256: job.SHA256}))
		case pipelinerun.JobStateFailed:
			fmt.Fprintf(&b, "%s %s  %s\n", failStyle.Render(style.FailMark), job.Target,
				failStyle.Render(fmt.Sprintf("%s failure: %s", job.Failure, job.Error)))
		default:
			fmt.Fprintf(&b, "%s %s  %s\n", skipStyle.Render(style.SkipMark), job.Target, job.State)
		}
	}

	if len(r.Gates) > 0 {
		fmt.Fprintf(&b, "\n%s\n", titleStyle.Render("Quality gates"))
		for _, g := range r.Gates {
			if g.Passed {
				fmt.Fprintf(&b, "%s %s  %s\n", passStyle.Render(style.PassMark), g.Name, faintStyle.Render(g.Duration.Round(time.Millisecond).String()))
			} else {
				fmt.Fprintf(&b, "%s %s  %s\n", failStyle.Render(style.FailMark), g.Name, failStyle.Render(style.Truncate(g.Error, 120)))
			}
		}
	}

	fmt.Fprintf(&b, "\n%s\n", titleStyle.Render("Release"))
	fmt.Fprintf(&b, "%s\n", publicationLine(r.Publication))
	if r.Publication != nil {
		for _, a := range r.Publication.Assets {
			if a.Uploaded {
				fmt.Fprintf(&b, "  %s %s\n", passStyle.Render(style.UpMark), a.Name)
			} else {
				fmt.Fprintf(&b, "  %s %s  %s\n", failStyle.Render(style.FailMark), a.Name, failStyle.Render(a.Error))
			}
		}
	}

	fmt.Fprintf(&b, "\nDuration: %s  Succeeded: %d  Failed: %d\n",
		r.Duration.Round(time.Millisecond), r.Stats.Succeeded, r.Stats.Failed)
	if r.Success {
		fmt.Fprint(&b, passStyle.Render("✓ Run passed"))
	} else {
		fmt.Fprint(&b, failStyle.Render("✗ Run failed"))
	}
	return b.String()
}

func publicationLine(p *release.Report) string {
	passStyle, failStyle, skipStyle := style.Pass(), style.Fail(), style.Skip()
	faintStyle := style.Faint()

	if p == nil {
		return skipStyle.Render("skipped")
	}
	switch p.Outcome {
	case release.OutcomePublished:
		line := passStyle.Render("published " + p.Tag)
		if p.URL != "" {
			line += " " + faintStyle.Render(p.URL)
		}
		return line
	case release.OutcomeSkipped:
		if p.Tag != "" {
			return skipStyle.Render(fmt.Sprintf("would publish %s (%s)", p.Tag, p.Reason))
		}
		return skipStyle.Render("skipped: " + p.Reason)
	default:
		line := failStyle.Render(fmt.Sprintf("%s %s", strings.ReplaceAll(string(p.Outcome), "_", " "), p.Tag))
		if p.Reason != "" {
			line += " " + failStyle.Render(p.Reason)
		}
		return line
	}
}
