package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pushchain/autoupdate/internal/config"
	"github.com/pushchain/autoupdate/internal/ui"
	"github.com/pushchain/autoupdate/internal/update"
)

// errMock is a generic error for test assertions.
var errMock = errors.New("mock error")

// fakeRegistry implements update.RegistryClient for testing.
type fakeRegistry struct {
	releases []update.Release
	err      error
	owner    string
	repo     string
}

func (f *fakeRegistry) ListReleases(_ context.Context, owner, repo string) ([]update.Release, error) {
	f.owner, f.repo = owner, repo
	return f.releases, f.err
}

func release(tag string, manifest bool) update.Release {
	r := update.Release{TagName: tag, Name: "Release " + tag}
	if manifest {
		r.Assets = []update.Asset{{
			Name:               update.ManifestAssetName,
			BrowserDownloadURL: "https://example.invalid/" + tag + "/manifest.json",
			Size:               2048,
		}}
	}
	return r
}

// setupCLI resets global flags and UI settings for one test.
func setupCLI(t *testing.T) {
	t.Helper()
	saved := struct {
		output, config, owner, repo, current, constraint, api string
		quiet, debug, noColor, noEmoji                        bool
	}{flagOutput, flagConfig, flagOwner, flagRepo, flagCurrent, flagConstraint, flagAPIURL,
		flagQuiet, flagDebug, flagNoColor, flagNoEmoji}
	t.Cleanup(func() {
		flagOutput, flagConfig, flagOwner, flagRepo = saved.output, saved.config, saved.owner, saved.repo
		flagCurrent, flagConstraint, flagAPIURL = saved.current, saved.constraint, saved.api
		flagQuiet, flagDebug, flagNoColor, flagNoEmoji = saved.quiet, saved.debug, saved.noColor, saved.noEmoji
		ui.InitGlobal(ui.Config{})
	})

	flagOutput, flagConfig, flagOwner, flagRepo = "text", "", "", ""
	flagCurrent, flagConstraint, flagAPIURL = "", "", ""
	flagQuiet, flagDebug, flagNoColor, flagNoEmoji = false, false, true, true
	ui.InitGlobal(ui.Config{NoColor: true, NoEmoji: true})

	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(name, "AUTOUPDATE_") {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
}

// testConfig returns defaults pointing at a temp log file and install dir.
func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.Owner, cfg.Repo = "acme", "app"
	cfg.CurrentVersion = "1.0.0"
	cfg.LogFile = filepath.Join(dir, "autoupdate.log")
	cfg.InstallDir = filepath.Join(dir, "current")
	cfg.HTTPTimeout = 5 * time.Second
	cfg.RefreshInterval = time.Millisecond
	cfg.DryRun.CheckDelay = time.Microsecond
	cfg.DryRun.StepInterval = time.Microsecond
	return cfg
}
