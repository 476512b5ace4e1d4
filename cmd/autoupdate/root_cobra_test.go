package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pushchain/autoupdate/internal/exitcodes"
)

func TestAllSubcommandsRegistered(t *testing.T) {
	registered := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Name()] = true
	}
	for _, name := range []string{"check", "watch", "status", "logs", "version", "completion"} {
		if !registered[name] {
			t.Errorf("expected subcommand %q not registered on rootCmd", name)
		}
	}
}

func TestLoadCfg_FlagOverrides(t *testing.T) {
	setupCLI(t)
	flagOwner, flagRepo = "acme", "app"
	flagCurrent, flagConstraint = "1.2.3", "^1.2"

	cfg, err := loadCfg()
	if err != nil {
		t.Fatalf("loadCfg() error = %v", err)
	}
	if cfg.Owner != "acme" || cfg.Repo != "app" {
		t.Errorf("owner/repo = %s/%s", cfg.Owner, cfg.Repo)
	}
	if cfg.CurrentVersion != "1.2.3" || cfg.Constraint != "^1.2" {
		t.Errorf("current=%q constraint=%q", cfg.CurrentVersion, cfg.Constraint)
	}
}

func TestLoadCfg_FileThenFlag(t *testing.T) {
	setupCLI(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("owner: fromfile\nrepo: tool\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	flagConfig = path
	flagRepo = "override"

	cfg, err := loadCfg()
	if err != nil {
		t.Fatalf("loadCfg() error = %v", err)
	}
	if cfg.Owner != "fromfile" || cfg.Repo != "override" {
		t.Errorf("owner/repo = %s/%s, want fromfile/override", cfg.Owner, cfg.Repo)
	}
}

func TestLoadCfg_MissingExplicitFile(t *testing.T) {
	setupCLI(t)
	flagConfig = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := loadCfg()
	if got := exitcodes.CodeForError(err); got != exitcodes.ValidationError {
		t.Fatalf("exit code = %d, want %d (err %v)", got, exitcodes.ValidationError, err)
	}
}

func TestValidateOutput(t *testing.T) {
	setupCLI(t)
	for _, f := range []string{"text", "json", "yaml", ""} {
		flagOutput = f
		if err := validateOutput(); err != nil {
			t.Errorf("validateOutput(%q) = %v", f, err)
		}
	}
	flagOutput = "xml"
	if got := exitcodes.CodeForError(validateOutput()); got != exitcodes.InvalidArgs {
		t.Errorf("exit code = %d, want %d", got, exitcodes.InvalidArgs)
	}
}

func TestRootHelpListsCommands(t *testing.T) {
	setupCLI(t)
	var buf bytes.Buffer
	printRootHelp(&buf)
	for _, want := range []string{"check", "watch", "status", "logs", "--owner", "--constraint"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("help missing %q", want)
		}
	}
}
