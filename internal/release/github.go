package release

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	xerrors "github.com/xrel-dev/xrel/internal/errors"
)

// GitHubClient publishes to GitHub releases
type GitHubClient struct {
	client      *github.Client
	owner       string
	repo        string
	releaseName string
}

type githubOptions struct {
	httpClient  *http.Client
	baseURL     string
	uploadURL   string
	userAgent   string
	releaseName string
}

// GitHubOption configures a GitHubClient
type GitHubOption func(*githubOptions)

// WithHTTPClient sets the transport the OAuth client wraps
func WithHTTPClient(client *http.Client) GitHubOption {
	return func(o *githubOptions) {
		o.httpClient = client
	}
}

// WithBaseURL sets the API root, e.g. https://ghe.example.com/api/v3/
func WithBaseURL(baseURL string) GitHubOption {
	return func(o *githubOptions) {
		o.baseURL = baseURL
	}
}

// WithUploadURL sets the upload API root, e.g. https://ghe.example.com/api/uploads/
func WithUploadURL(uploadURL string) GitHubOption {
	return func(o *githubOptions) {
		o.uploadURL = uploadURL
	}
}

// WithUserAgent sets the User-Agent header for requests
func WithUserAgent(userAgent string) GitHubOption {
	return func(o *githubOptions) {
		o.userAgent = userAgent
	}
}

// WithReleaseName sets the title of created releases. "{tag}" is replaced
// with the tag name.
func WithReleaseName(name string) GitHubOption {
	return func(o *githubOptions) {
		o.releaseName = name
	}
}

// NewGitHubClient creates a client for repository ("owner/name")
func NewGitHubClient(ctx context.Context, repository, token string, opts ...GitHubOption) (*GitHubClient, error) {
	owner, repo, ok := strings.Cut(repository, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return nil, xerrors.NewConfigurationError(
			fmt.Errorf("invalid repository %q", repository),
			"release.repository must be in the form owner/name",
		)
	}

	o := githubOptions{
		httpClient:  http.DefaultClient,
		userAgent:   "xrel",
		releaseName: "{tag}",
	}
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := o.httpClient
	if token != "" {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}

	client := github.NewClient(httpClient)
	client.UserAgent = o.userAgent
	if o.baseURL != "" {
		u, err := parseAPIURL(o.baseURL)
		if err != nil {
			return nil, xerrors.NewConfigurationError(err, "release.api_url is invalid")
		}
		client.BaseURL = u
		// uploads go to the same host unless told otherwise
		client.UploadURL = u
	}
	if o.uploadURL != "" {
		u, err := parseAPIURL(o.uploadURL)
		if err != nil {
			return nil, xerrors.NewConfigurationError(err, "release.upload_url is invalid")
		}
		client.UploadURL = u
	}

	return &GitHubClient{
		client:      client,
		owner:       owner,
		repo:        repo,
		releaseName: o.releaseName,
	}, nil
}

func parseAPIURL(raw string) (*url.URL, error) {
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%q is not an absolute URL", raw)
	}
	return u, nil
}

// EnsureRelease finds the release for tag or creates it, and clears the
// prerelease flag of an existing one
func (c *GitHubClient) EnsureRelease(ctx context.Context, tag string) (*Release, error) {
	rel, resp, err := c.client.Repositories.GetReleaseByTag(ctx, c.owner, c.repo, tag)
	switch {
	case err == nil:
		if rel.GetPrerelease() {
			rel, resp, err = c.client.Repositories.EditRelease(ctx, c.owner, c.repo, rel.GetID(),
				&github.RepositoryRelease{Prerelease: github.Bool(false)})
			if err != nil {
				return nil, xerrors.WrapRemoteError(err, statusOf(resp), "marking release "+tag+" as a full release")
			}
		}
	case statusOf(resp) == http.StatusNotFound:
		rel, resp, err = c.client.Repositories.CreateRelease(ctx, c.owner, c.repo, &github.RepositoryRelease{
			TagName:    github.String(tag),
			Name:       github.String(strings.ReplaceAll(c.releaseName, "{tag}", tag)),
			Prerelease: github.Bool(false),
		})
		if err != nil {
			return nil, xerrors.WrapRemoteError(err, statusOf(resp), "creating release "+tag)
		}
	default:
		return nil, xerrors.WrapRemoteError(err, statusOf(resp), "looking up release "+tag)
	}

	return &Release{
		ID:         rel.GetID(),
		Tag:        rel.GetTagName(),
		Name:       rel.GetName(),
		Prerelease: rel.GetPrerelease(),
		URL:        rel.GetHTMLURL(),
	}, nil
}

// ListAssets returns every asset of rel, following pagination
func (c *GitHubClient) ListAssets(ctx context.Context, rel *Release) ([]Asset, error) {
	var assets []Asset
	opts := &github.ListOptions{PerPage: 100}
	for {
		page, resp, err := c.client.Repositories.ListReleaseAssets(ctx, c.owner, c.repo, rel.ID, opts)
		if err != nil {
			return nil, xerrors.WrapRemoteError(err, statusOf(resp), "listing assets of release "+rel.Tag)
		}
		for _, a := range page {
			assets = append(assets, Asset{ID: a.GetID(), Name: a.GetName(), Size: int64(a.GetSize())})
		}
		if resp.NextPage == 0 {
			return assets, nil
		}
		opts.Page = resp.NextPage
	}
}

// DeleteAsset removes an asset. An asset that is already gone is not an error.
func (c *GitHubClient) DeleteAsset(ctx context.Context, rel *Release, asset Asset) error {
	resp, err := c.client.Repositories.DeleteReleaseAsset(ctx, c.owner, c.repo, asset.ID)
	if err != nil && statusOf(resp) != http.StatusNotFound {
		return xerrors.WrapRemoteError(err, statusOf(resp), "deleting asset "+asset.Name+" of release "+rel.Tag)
	}
	return nil
}

// UploadAsset uploads r as asset name. The upload API needs the length up
// front, so r is spooled to a temporary file first.
func (c *GitHubClient) UploadAsset(ctx context.Context, rel *Release, name string, r io.Reader) (*Asset, error) {
	f, err := spool(r)
	if err != nil {
		return nil, xerrors.NewPublishError(err, "buffering "+name+" for upload")
	}
	defer func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}()

	a, resp, err := c.client.Repositories.UploadReleaseAsset(ctx, c.owner, c.repo, rel.ID,
		&github.UploadOptions{Name: name}, f)
	if err != nil {
		return nil, xerrors.WrapRemoteError(err, statusOf(resp), "uploading "+name+" to release "+rel.Tag)
	}
	return &Asset{ID: a.GetID(), Name: a.GetName(), Size: int64(a.GetSize())}, nil
}

func spool(r io.Reader) (*os.File, error) {
	f, err := os.CreateTemp("", "xrel-asset-*")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, err
	}
	return f, nil
}

func statusOf(resp *github.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}

