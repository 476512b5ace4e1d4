package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	KeyOwner          = "owner"
	KeyRepo           = "repo"
	KeyAPIURL         = "api_url"
	KeyToken          = "token"
	KeyCurrentVersion = "current_version"
	KeyConstraint     = "constraint"
	KeyInstallDir     = "install_dir"
	KeyHTTPTimeout    = "http_timeout"
	KeyDryRunEnabled  = "dry_run.enabled"
	KeyDryRunFake     = "dry_run.fake_update"
	KeyDryRunStep     = "dry_run.step_interval"
	KeyDryRunDelay    = "dry_run.check_delay"
	KeyRefresh        = "refresh_interval"
	KeyMetricsAddr    = "metrics_addr"
	KeyLogFile        = "log_file"

	envPrefix = "AUTOUPDATE"
)

// Config holds user/system configuration for the updater.
type Config struct {
	Owner           string
	Repo            string
	APIURL          string
	Token           string
	CurrentVersion  string
	Constraint      string
	InstallDir      string
	HTTPTimeout     time.Duration
	DryRun          DryRun
	RefreshInterval time.Duration // host tick for watch
	MetricsAddr     string        // empty disables the status server
	LogFile         string        // updater log; empty logs to stderr
}

// DryRun configures the simulated updater.
type DryRun struct {
	Enabled      bool
	FakeUpdate   bool
	StepInterval time.Duration
	CheckDelay   time.Duration
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	home, _ := os.UserHomeDir()
	return Config{
		APIURL:         "https://api.github.com",
		CurrentVersion: "0.0.0",
		Constraint:     "*",
		InstallDir:     filepath.Join(home, ".autoupdate", "current"),
		HTTPTimeout:    30 * time.Second,
		DryRun: DryRun{
			StepInterval: 100 * time.Millisecond,
			CheckDelay:   2 * time.Second,
		},
		RefreshInterval: 100 * time.Millisecond,
		LogFile:         filepath.Join(home, ".autoupdate", "autoupdate.log"),
	}
}

type loadSettings struct {
	configPath string
	explicit   bool
	overrides  map[string]any
}

// Option configures Load.
type Option func(*loadSettings)

// WithConfigFile reads path instead of the default user config. The file
// must exist.
func WithConfigFile(path string) Option {
	return func(s *loadSettings) {
		if strings.TrimSpace(path) != "" {
			s.configPath = path
			s.explicit = true
		}
	}
}

// WithOverrides injects values typically coming from CLI flags.
func WithOverrides(overrides map[string]any) Option {
	return func(s *loadSettings) {
		if s.overrides == nil {
			s.overrides = map[string]any{}
		}
		for k, v := range overrides {
			s.overrides[k] = v
		}
	}
}

// Load resolves configuration with the precedence:
// defaults < config file < AUTOUPDATE_* environment < overrides.
func Load(opts ...Option) (Config, error) {
	settings := loadSettings{}
	for _, opt := range opts {
		opt(&settings)
	}
	if settings.configPath == "" {
		path, err := DefaultConfigPath()
		if err == nil {
			settings.configPath = path
		}
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, Defaults())
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := mergeConfigFile(v, settings.configPath, settings.explicit); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	for k, val := range settings.overrides {
		v.Set(k, val)
	}

	return Config{
		Owner:          v.GetString(KeyOwner),
		Repo:           v.GetString(KeyRepo),
		APIURL:         v.GetString(KeyAPIURL),
		Token:          v.GetString(KeyToken),
		CurrentVersion: v.GetString(KeyCurrentVersion),
		Constraint:     v.GetString(KeyConstraint),
		InstallDir:     v.GetString(KeyInstallDir),
		HTTPTimeout:    v.GetDuration(KeyHTTPTimeout),
		DryRun: DryRun{
			Enabled:      v.GetBool(KeyDryRunEnabled),
			FakeUpdate:   v.GetBool(KeyDryRunFake),
			StepInterval: v.GetDuration(KeyDryRunStep),
			CheckDelay:   v.GetDuration(KeyDryRunDelay),
		},
		RefreshInterval: v.GetDuration(KeyRefresh),
		MetricsAddr:     v.GetString(KeyMetricsAddr),
		LogFile:         v.GetString(KeyLogFile),
	}, nil
}

// Validate reports configuration that cannot drive a registry check.
func (c Config) Validate() error {
	if c.DryRun.Enabled {
		return nil
	}
	if c.Owner == "" || c.Repo == "" {
		return fmt.Errorf("owner and repo are required (set %s_OWNER/%s_REPO or use --owner/--repo)", envPrefix, envPrefix)
	}
	return nil
}

// DefaultConfigPath returns $HOME/.autoupdate/config.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine user home: %w", err)
	}
	return filepath.Join(home, ".autoupdate", "config.yaml"), nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault(KeyOwner, d.Owner)
	v.SetDefault(KeyRepo, d.Repo)
	v.SetDefault(KeyAPIURL, d.APIURL)
	v.SetDefault(KeyToken, d.Token)
	v.SetDefault(KeyCurrentVersion, d.CurrentVersion)
	v.SetDefault(KeyConstraint, d.Constraint)
	v.SetDefault(KeyInstallDir, d.InstallDir)
	v.SetDefault(KeyHTTPTimeout, d.HTTPTimeout)
	v.SetDefault(KeyDryRunEnabled, d.DryRun.Enabled)
	v.SetDefault(KeyDryRunFake, d.DryRun.FakeUpdate)
	v.SetDefault(KeyDryRunStep, d.DryRun.StepInterval)
	v.SetDefault(KeyDryRunDelay, d.DryRun.CheckDelay)
	v.SetDefault(KeyRefresh, d.RefreshInterval)
	v.SetDefault(KeyMetricsAddr, d.MetricsAddr)
	v.SetDefault(KeyLogFile, d.LogFile)
}

func mergeConfigFile(v *viper.Viper, path string, mustExist bool) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) && !mustExist {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
