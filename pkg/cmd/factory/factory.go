package factory

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/xrel-dev/xrel/internal/artifact"
	"github.com/xrel-dev/xrel/internal/config"
	xerrors "github.com/xrel-dev/xrel/internal/errors"
	"github.com/xrel-dev/xrel/internal/pipelinerun"
	"github.com/xrel-dev/xrel/internal/release"
	"github.com/xrel-dev/xrel/internal/toolchain"
)

// Factory builds the dependencies shared by every command. Config is loaded
// lazily so persistent flags are parsed before it is read.
type Factory struct {
	Version string
	FS      afero.Fs
	Viper   *viper.Viper
	Logger  *log.Logger

	// set by the root command's persistent flags
	ConfigFile string
	Verbose    bool

	config *config.Config
}

func New(version string) *Factory {
	return NewWithFS(version, afero.NewOsFs(), os.Stderr)
}

// NewWithFS creates a factory reading configuration from fs and logging to logOut
func NewWithFS(version string, fs afero.Fs, logOut io.Writer) *Factory {
	logger := log.NewWithOptions(logOut, log.Options{
		Prefix:          "xrel",
		ReportTimestamp: true,
	})

	return &Factory{
		Version: version,
		FS:      fs,
		Viper:   config.NewViper(fs),
		Logger:  logger,
	}
}

// BindFlags binds command flags to configuration keys. Commands call it from
// PreRunE so that only the flags of the running command are bound.
func (f *Factory) BindFlags(flags *pflag.FlagSet, keys map[string]string) error {
	for name, key := range keys {
		flag := flags.Lookup(name)
		if flag == nil {
			return xerrors.NewInternalError(fmt.Errorf("no flag --%s", name), "binding flags")
		}
		if err := f.Viper.BindPFlag(key, flag); err != nil {
			return xerrors.NewInternalError(err, "binding flag --"+name)
		}
	}
	return nil
}

// Config loads and validates the configuration once
func (f *Factory) Config() (*config.Config, error) {
	if f.config != nil {
		return f.config, nil
	}

	conf, err := config.Load(f.Viper, f.FS, f.ConfigFile)
	if err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	level := log.InfoLevel
	if f.Verbose {
		level = log.DebugLevel
	} else if conf.LogLevel != "" {
		parsed, err := log.ParseLevel(strings.ToLower(conf.LogLevel))
		if err != nil {
			return nil, xerrors.NewConfigurationError(err, "invalid log_level "+conf.LogLevel)
		}
		level = parsed
	}
	f.Logger.SetLevel(level)
	if conf.File != "" {
		f.Logger.Debug("using config file", "path", conf.File)
	}

	f.config = conf
	return conf, nil
}

// Store opens the artifact store selected by conf
func (f *Factory) Store(ctx context.Context, conf *config.Config) (artifact.Store, error) {
	switch conf.Store.Kind {
	case config.StoreKindMinIO:
		client, err := artifact.NewMinIOClient(conf.Store.MinIO)
		if err != nil {
			return nil, xerrors.NewConfigurationError(err, "configuring the minio store")
		}
		store := artifact.NewMinIOStore(client, conf.Store.MinIO)
		if err := store.EnsureBucket(ctx, conf.Store.MinIO.Region); err != nil {
			return nil, xerrors.NewStoreError(err, "preparing the artifact bucket")
		}
		f.Logger.Debug("using minio store", "endpoint", conf.Store.MinIO.Endpoint, "bucket", conf.Store.MinIO.Bucket)
		return store, nil
	case config.StoreKindFS, "":
		path := conf.Store.Path
		if path == "" {
			path = config.DefaultStorePath
		}
		f.Logger.Debug("using filesystem store", "path", path)
		return artifact.NewFSStore(f.FS, path), nil
	default:
		return nil, xerrors.NewConfigurationError(fmt.Errorf("unknown store kind %q", conf.Store.Kind), "configuring the artifact store")
	}
}

// Toolchain returns the build command described by conf
func (f *Factory) Toolchain(conf *config.Config) *toolchain.Command {
	return &toolchain.Command{
		Program: conf.Toolchain.Command,
		Args:    conf.Toolchain.Args,
		Output:  conf.Toolchain.Output,
		Strip:   conf.Toolchain.Strip,
		Env:     conf.Toolchain.Env,
		Logger:  f.Logger,
	}
}

// Publisher returns the release publisher, or nil when no repository is configured
func (f *Factory) Publisher(ctx context.Context, conf *config.Config) (pipelinerun.Publisher, error) {
	if !conf.Release.Enabled() {
		return nil, nil
	}

	opts := []release.GitHubOption{
		release.WithUserAgent(f.userAgent()),
	}
	if conf.Release.APIURL != "" {
		opts = append(opts, release.WithBaseURL(conf.Release.APIURL))
	}
	if conf.Release.UploadURL != "" {
		opts = append(opts, release.WithUploadURL(conf.Release.UploadURL))
	}
	if conf.Release.Name != "" {
		opts = append(opts, release.WithReleaseName(conf.Release.Name))
	}

	client, err := release.NewGitHubClient(ctx, conf.Release.Repository, conf.Release.Token, opts...)
	if err != nil {
		return nil, err
	}
	if conf.Release.Token == "" {
		f.Logger.Warn("no release token configured, uploads will be rejected", "repository", conf.Release.Repository)
	}

	return release.NewPublisher(client,
		release.WithLogger(f.Logger),
		release.WithConcurrency(conf.Release.Concurrency),
	), nil
}

func (f *Factory) userAgent() string {
	return fmt.Sprintf("xrel/%s (%s/%s)", f.Version, runtime.GOOS, runtime.GOARCH)
}
