// Package config contains the configuration for the xrel CLI
//
// Configuration is layered with viper: values from the config file (xrel.yaml
// in the working directory, or the file passed with --config) are overridden
// by XREL_* environment variables, which are overridden by command line flags.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/xrel-dev/xrel/internal/artifact"
	xerrors "github.com/xrel-dev/xrel/internal/errors"
	"github.com/xrel-dev/xrel/internal/gate"
	"github.com/xrel-dev/xrel/internal/matrix"
)

const (
	EnvPrefix      = "XREL"
	configFileName = "xrel"

	StoreKindFS    = "fs"
	StoreKindMinIO = "minio"

	DefaultStorePath = ".xrel/artifacts"
)

// Keys that are bound to command line flags
const (
	BinaryKey      = "binary"
	SourceKey      = "source"
	MatrixFileKey  = "matrix_file"
	ConcurrencyKey = "concurrency"
	TimeoutKey     = "timeout"
	LogLevelKey    = "log_level"
	EnforceKey     = "gates.enforce"
	StoreKindKey   = "store.kind"
	StorePathKey   = "store.path"
	RepositoryKey  = "release.repository"
)

// ToolchainConfig describes the external build command
type ToolchainConfig struct {
	Command string            `mapstructure:"command"`
	Args    []string          `mapstructure:"args"`
	Output  string            `mapstructure:"output"`
	Strip   []string          `mapstructure:"strip"`
	Env     map[string]string `mapstructure:"-"`
}

// GatesConfig lists the quality gates of the project
type GatesConfig struct {
	Enforce bool        `mapstructure:"enforce"`
	Checks  []gate.Gate `mapstructure:"checks"`
}

// StoreConfig selects where artifacts are kept
type StoreConfig struct {
	Kind  string               `mapstructure:"kind"`
	Path  string               `mapstructure:"path"`
	MinIO artifact.MinIOConfig `mapstructure:"minio"`
}

// ReleaseConfig describes the GitHub repository releases are published to
type ReleaseConfig struct {
	Repository  string `mapstructure:"repository"`
	Token       string `mapstructure:"token"`
	APIURL      string `mapstructure:"api_url"`
	UploadURL   string `mapstructure:"upload_url"`
	Name        string `mapstructure:"name"`
	Concurrency int    `mapstructure:"concurrency"`
}

// Enabled reports whether a release target is configured
func (r ReleaseConfig) Enabled() bool {
	return r.Repository != ""
}

// Config is the resolved configuration of one invocation
type Config struct {
	Binary      string          `mapstructure:"binary"`
	Source      string          `mapstructure:"source"`
	Matrix      matrix.Matrix   `mapstructure:"-"`
	MatrixFile  string          `mapstructure:"matrix_file"`
	Concurrency int             `mapstructure:"concurrency"`
	Timeout     time.Duration   `mapstructure:"timeout"`
	LogLevel    string          `mapstructure:"log_level"`
	Toolchain   ToolchainConfig `mapstructure:"toolchain"`
	Gates       GatesConfig     `mapstructure:"gates"`
	Store       StoreConfig     `mapstructure:"store"`
	Release     ReleaseConfig   `mapstructure:"release"`

	// File is the config file that was read, if any
	File string `mapstructure:"-"`
}

// NewViper returns a viper instance reading from fs with xrel's defaults and
// environment bindings
func NewViper(fs afero.Fs) *viper.Viper {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	v := viper.New()
	v.SetFs(fs)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(SourceKey, ".")
	v.SetDefault(ConcurrencyKey, 0)
	v.SetDefault(TimeoutKey, "0s")
	v.SetDefault(LogLevelKey, "info")
	v.SetDefault(EnforceKey, false)
	v.SetDefault(StoreKindKey, StoreKindFS)
	v.SetDefault(StorePathKey, DefaultStorePath)
	v.SetDefault("release.concurrency", 4)
	v.SetDefault("release.name", "{tag}")

	// keys without a default are only visible to Unmarshal once bound
	for _, key := range []string{
		BinaryKey, MatrixFileKey, RepositoryKey,
		"toolchain.command", "toolchain.output",
		"release.api_url", "release.upload_url",
		"store.minio.endpoint", "store.minio.region", "store.minio.bucket",
		"store.minio.prefix", "store.minio.use_ssl",
	} {
		_ = v.BindEnv(key)
	}
	_ = v.BindEnv("release.token", EnvPrefix+"_RELEASE_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv("store.minio.access_key", EnvPrefix+"_STORE_MINIO_ACCESS_KEY", "MINIO_ACCESS_KEY")
	_ = v.BindEnv("store.minio.secret_key", EnvPrefix+"_STORE_MINIO_SECRET_KEY", "MINIO_SECRET_KEY")

	return v
}

// Load reads the config file into v and decodes the result. An explicit path
// must exist; without one, xrel.yaml in the working directory is optional.
func Load(v *viper.Viper, fs afero.Fs, path string) (*Config, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	if path != "" {
		v.SetConfigFile(path)
		if filepath.Ext(path) == "" {
			v.SetConfigType("yaml")
		}
	} else {
		v.SetConfigName(configFileName)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, xerrors.NewConfigurationError(err, "reading config file",
				"Check the file exists and is valid YAML")
		}
	}

	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, xerrors.NewConfigurationError(err, "decoding configuration")
	}
	conf.File = v.ConfigFileUsed()

	if conf.File != "" {
		if err := decodeEnvSections(fs, conf); err != nil {
			return nil, xerrors.NewConfigurationError(err, "decoding configuration",
				"xrel reads its config file as YAML")
		}
	}

	if conf.MatrixFile != "" {
		m, err := matrix.LoadMatrix(fs, conf.MatrixFile)
		if err != nil {
			return nil, xerrors.NewConfigurationError(err, "loading matrix file "+conf.MatrixFile)
		}
		conf.Matrix = m
	}

	return conf, nil
}

// envSections are the parts of the config file holding environment variable
// names. viper lowercases every key it reads, so these are decoded from the
// file as written.
type envSections struct {
	Matrix    yaml.Node `yaml:"matrix"`
	Toolchain struct {
		Env map[string]string `yaml:"env"`
	} `yaml:"toolchain"`
	Gates struct {
		Checks []gate.Gate `yaml:"checks"`
	} `yaml:"gates"`
}

func decodeEnvSections(fs afero.Fs, conf *Config) error {
	switch strings.ToLower(filepath.Ext(conf.File)) {
	case "", ".yaml", ".yml", ".json":
	default:
		return fmt.Errorf("unsupported config file type %q", filepath.Ext(conf.File))
	}

	data, err := afero.ReadFile(fs, conf.File)
	if err != nil {
		return err
	}

	var raw envSections
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}

	conf.Toolchain.Env = raw.Toolchain.Env
	if raw.Gates.Checks != nil {
		conf.Gates.Checks = raw.Gates.Checks
	}
	if !raw.Matrix.IsZero() {
		m, err := matrix.DecodeMatrix(&raw.Matrix)
		if err != nil {
			return err
		}
		conf.Matrix = m
	}
	return nil
}

// Validate reports settings that can never work. Binary name and matrix
// invariants are checked when a run is planned.
func (c *Config) Validate() error {
	var problems []string

	if c.Concurrency < 0 {
		problems = append(problems, "concurrency must not be negative")
	}
	if c.Timeout < 0 {
		problems = append(problems, "timeout must not be negative")
	}
	if c.Release.Concurrency < 0 {
		problems = append(problems, "release.concurrency must not be negative")
	}

	switch c.Store.Kind {
	case StoreKindFS:
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required for the fs store")
		}
	case StoreKindMinIO:
		if err := c.Store.MinIO.Validate(); err != nil {
			problems = append(problems, "store.minio: "+err.Error())
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown store.kind %q: must be %s or %s", c.Store.Kind, StoreKindFS, StoreKindMinIO))
	}

	for _, g := range c.Gates.Checks {
		if err := g.Validate(); err != nil {
			problems = append(problems, "gates: "+err.Error())
		}
	}

	if c.Release.Enabled() {
		owner, repo, ok := strings.Cut(c.Release.Repository, "/")
		if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
			problems = append(problems, fmt.Sprintf("release.repository %q must be owner/name", c.Release.Repository))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return xerrors.NewConfigurationError(errors.New(strings.Join(problems, "; ")), "invalid configuration")
}

// ValidateToolchain checks a build command is configured
func (c *Config) ValidateToolchain() error {
	if c.Toolchain.Command == "" {
		return xerrors.NewConfigurationError(errors.New("toolchain.command is not set"), "no toolchain configured",
			"Set toolchain.command and toolchain.output in xrel.yaml")
	}
	if c.Toolchain.Output == "" {
		return xerrors.NewConfigurationError(errors.New("toolchain.output is not set"), "no toolchain configured",
			"Set toolchain.output to the path of the built binary, e.g. target/{{.Target}}/release/{{.Binary}}{{.Extension}}")
	}
	return nil
}
