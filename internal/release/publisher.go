package release

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/xrel-dev/xrel/internal/artifact"
	xerrors "github.com/xrel-dev/xrel/internal/errors"
)

// Release is a versioned release on the release target
type Release struct {
	ID         int64
	Tag        string
	Name       string
	Prerelease bool
	URL        string
}

// Asset is a file attached to a release
type Asset struct {
	ID   int64
	Name string
	Size int64
}

// Client is the narrow view of a release host the publisher needs
type Client interface {
	// EnsureRelease returns the release for tag, creating it when missing. The
	// returned release is not marked as a prerelease.
	EnsureRelease(ctx context.Context, tag string) (*Release, error)
	ListAssets(ctx context.Context, rel *Release) ([]Asset, error)
	DeleteAsset(ctx context.Context, rel *Release, asset Asset) error
	UploadAsset(ctx context.Context, rel *Release, name string, r io.Reader) (*Asset, error)
}

// Outcome is the result of the publication step of a run
type Outcome string

const (
	OutcomePublished       Outcome = "published"
	OutcomeSkipped         Outcome = "skipped"
	OutcomePartiallyFailed Outcome = "partially_failed"
	OutcomeFailed          Outcome = "failed"
)

// AssetResult is the upload result for one artifact
type AssetResult struct {
	Name     string `json:"name" yaml:"name"`
	Uploaded bool   `json:"uploaded" yaml:"uploaded"`
	Replaced bool   `json:"replaced,omitempty" yaml:"replaced,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`

	err error
}

// Err returns the upload error, if any
func (r AssetResult) Err() error {
	return r.err
}

// Report describes the publication step of a run
type Report struct {
	Outcome  Outcome       `json:"outcome" yaml:"outcome"`
	Tag      string        `json:"tag,omitempty" yaml:"tag,omitempty"`
	Reason   string        `json:"reason,omitempty" yaml:"reason,omitempty"`
	URL      string        `json:"url,omitempty" yaml:"url,omitempty"`
	Assets   []AssetResult `json:"assets,omitempty" yaml:"assets,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Skipped returns the report of a publication step that did not run
func Skipped(reason string) *Report {
	return &Report{Outcome: OutcomeSkipped, Reason: reason}
}

// Failed reports whether an authorized publication step failed
func (r *Report) Failed() bool {
	return r != nil && (r.Outcome == OutcomeFailed || r.Outcome == OutcomePartiallyFailed)
}

// Errors returns the per-asset errors in artifact order
func (r *Report) Errors() []error {
	var errs []error
	for _, a := range r.Assets {
		if a.err != nil {
			errs = append(errs, a.err)
		}
	}
	return errs
}

// Publisher uploads the artifacts of a run to a release
type Publisher struct {
	client      Client
	logger      *log.Logger
	concurrency int
}

// PublisherOption configures a Publisher
type PublisherOption func(*Publisher)

// WithLogger sets the logger used for upload progress
func WithLogger(logger *log.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithConcurrency bounds the number of parallel uploads
func WithConcurrency(n int) PublisherOption {
	return func(p *Publisher) {
		p.concurrency = n
	}
}

// NewPublisher creates a publisher backed by client
func NewPublisher(client Client, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		client:      client,
		logger:      log.Default(),
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.concurrency < 1 {
		p.concurrency = 1
	}
	return p
}

// Publish attaches every artifact to the release for target, replacing assets
// of the same name. A failed upload is recorded and does not stop the others.
func (p *Publisher) Publish(ctx context.Context, target Target, artifacts []artifact.Artifact, store artifact.Store) *Report {
	start := time.Now()
	logger := p.logger.With("tag", target.Tag)

	report := &Report{Tag: target.Tag}
	artifacts = uniqueByName(artifacts)
	report.Assets = make([]AssetResult, len(artifacts))
	for i, a := range artifacts {
		report.Assets[i].Name = a.Name
	}

	defer func() {
		report.Duration = time.Since(start)
	}()

	rel, err := p.client.EnsureRelease(ctx, target.Tag)
	if err != nil {
		logger.Error("could not prepare release", "err", err)
		p.failAll(report, err)
		return report
	}
	report.URL = rel.URL

	existing, err := p.client.ListAssets(ctx, rel)
	if err != nil {
		logger.Error("could not list release assets", "err", err)
		p.failAll(report, err)
		return report
	}
	byName := make(map[string]Asset, len(existing))
	for _, a := range existing {
		byName[a.Name] = a
	}

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, a := range artifacts {
		i, a := i, a
		g.Go(func() error {
			old, replace := byName[a.Name]
			err := p.publishOne(ctx, rel, a, store, old, replace)
			if err != nil {
				logger.Error("upload failed", "artifact", a.Name, "err", err)
				report.Assets[i].err = err
				report.Assets[i].Error = err.Error()
				return nil
			}
			logger.Info("uploaded", "artifact", a.Name, "size", artifact.FormatBytes(a.Size), "replaced", replace)
			report.Assets[i].Uploaded = true
			report.Assets[i].Replaced = replace
			return nil
		})
	}
	_ = g.Wait()

	report.Outcome = outcomeOf(report.Assets)
	return report
}

func (p *Publisher) publishOne(ctx context.Context, rel *Release, a artifact.Artifact, store artifact.Store, old Asset, replace bool) error {
	rc, err := store.Get(ctx, a.RunID, a.Name)
	if err != nil {
		return xerrors.NewPublishError(err, fmt.Sprintf("reading %s from the artifact store", a.Name))
	}
	defer rc.Close()

	if replace {
		p.logger.Debug("replacing existing asset", "artifact", a.Name, "asset_id", old.ID)
		if err := p.client.DeleteAsset(ctx, rel, old); err != nil {
			return err
		}
	}

	if _, err := p.client.UploadAsset(ctx, rel, a.Name, rc); err != nil {
		return err
	}
	return nil
}

func (p *Publisher) failAll(report *Report, err error) {
	for i := range report.Assets {
		report.Assets[i].err = err
		report.Assets[i].Error = err.Error()
	}
	report.Outcome = OutcomeFailed
	report.Reason = err.Error()
}

func outcomeOf(results []AssetResult) Outcome {
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
		}
	}
	switch {
	case failed == 0:
		return OutcomePublished
	case failed == len(results):
		return OutcomeFailed
	default:
		return OutcomePartiallyFailed
	}
}

// uniqueByName keeps the last artifact of each name, in first-seen order
func uniqueByName(artifacts []artifact.Artifact) []artifact.Artifact {
	index := make(map[string]int, len(artifacts))
	out := make([]artifact.Artifact, 0, len(artifacts))
	for _, a := range artifacts {
		if i, ok := index[a.Name]; ok {
			out[i] = a
			continue
		}
		index[a.Name] = len(out)
		out = append(out, a)
	}
	return out
}
