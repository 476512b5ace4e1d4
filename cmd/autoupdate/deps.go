package main

import (
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/pushchain/autoupdate/internal/config"
	"github.com/pushchain/autoupdate/internal/exitcodes"
	"github.com/pushchain/autoupdate/internal/install"
	"github.com/pushchain/autoupdate/internal/logs"
	"github.com/pushchain/autoupdate/internal/update"
)

const logPrefix = "[autoupdate] "

// engine holds one wired update lifecycle.
type engine struct {
	cfg        config.Config
	current    update.Version
	constraint update.Constraint
	cell       *update.StatusCell
	updater    update.Updater
	done       <-chan struct{}
	candidate  func() string
	logger     *log.Logger
	logCloser  io.Closer
}

// Close releases the log file.
func (e *engine) Close() error {
	if e.logCloser == nil {
		return nil
	}
	return e.logCloser.Close()
}

// parseTarget parses the running version and constraint from cfg.
func parseTarget(cfg config.Config) (update.Version, update.Constraint, error) {
	current, err := update.ParseVersion(cfg.CurrentVersion)
	if err != nil {
		return update.Version{}, update.Constraint{}, exitcodes.WrapError(exitcodes.InvalidArgs, "invalid current version", err)
	}
	constraint, err := update.ParseConstraint(cfg.Constraint)
	if err != nil {
		return update.Version{}, update.Constraint{}, exitcodes.WrapError(exitcodes.InvalidArgs, "invalid constraint", err)
	}
	return current, constraint, nil
}

func newRegistryClient(cfg config.Config) update.RegistryClient {
	return update.NewGitHubClient(update.GitHubOptions{
		BaseURL:   cfg.APIURL,
		Token:     cfg.Token,
		UserAgent: "autoupdate/" + Version,
		HTTP:      &http.Client{Timeout: cfg.HTTPTimeout},
	})
}

// newLogger sends worker logs to stderr under --debug, otherwise to the
// configured log file.
func newLogger(cfg config.Config) (*log.Logger, io.Closer) {
	if flagDebug {
		return log.New(os.Stderr, logPrefix, log.LstdFlags), nil
	}
	logger, closer, err := logs.Open(cfg.LogFile, logPrefix)
	if err != nil {
		getPrinter().WithWriter(os.Stderr).Warn("updater log disabled: " + err.Error())
		return log.New(io.Discard, "", 0), nil
	}
	return logger, closer
}

type engineOptions struct {
	install bool
	// registry replaces the GitHub client (tests)
	registry update.RegistryClient
}

// newEngine wires an updater for cfg: a DryRunUpdater when dry-run is
// enabled, otherwise a RegistryUpdater, optionally with the manifest
// installer.
func newEngine(cfg config.Config, opts engineOptions) (*engine, error) {
	current, constraint, err := parseTarget(cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, exitcodes.WrapError(exitcodes.PreconditionFailed, "cannot check for updates", err)
	}

	logger, closer := newLogger(cfg)
	e := &engine{
		cfg:        cfg,
		current:    current,
		constraint: constraint,
		cell:       update.NewStatusCell(),
		logger:     logger,
		logCloser:  closer,
	}

	if cfg.DryRun.Enabled {
		u := update.NewDryRun(update.DryRunOptions{
			FakeUpdateAvailable: cfg.DryRun.FakeUpdate,
			CheckDelay:          dryRunPause(cfg.DryRun.CheckDelay),
			StepInterval:        dryRunPause(cfg.DryRun.StepInterval),
			Cell:                e.cell,
			Logger:              logger,
		})
		e.updater, e.done = u, u.Done()
		e.candidate = func() string {
			if cfg.DryRun.FakeUpdate && u.Status().Phase != update.PhaseCheckingForUpdate {
				return "dry-run"
			}
			return ""
		}
		return e, nil
	}

	client := opts.registry
	if client == nil {
		client = newRegistryClient(cfg)
	}
	ropts := update.RegistryOptions{
		Owner:  cfg.Owner,
		Repo:   cfg.Repo,
		Cell:   e.cell,
		Logger: logger,
	}
	if opts.install {
		ropts.Installer = install.New(install.Options{Dir: cfg.InstallDir, Logger: logger})
	} else {
		// downloads are bounded by the installer's own client
		ropts.Timeout = cfg.HTTPTimeout
	}
	u := update.NewRegistryUpdater(client, ropts)
	e.updater, e.done = u, u.Done()
	e.candidate = func() string {
		if c, ok := u.Candidate(); ok {
			return c.Tag
		}
		return ""
	}
	return e, nil
}

// dryRunPause maps a configured pause onto DryRunOptions. Config defaults
// are already applied, so an explicit zero means no pause.
func dryRunPause(d time.Duration) time.Duration {
	if d == 0 {
		return update.NoPause
	}
	return d
}
