package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate points HOME at an empty directory so the user config is absent.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, envPrefix+"_") {
			name := kv[:strings.IndexByte(kv, '=')]
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
	return home
}

func TestDefaults_AllFields(t *testing.T) {
	home := isolate(t)
	cfg := Defaults()

	if cfg.APIURL != "https://api.github.com" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.CurrentVersion != "0.0.0" {
		t.Errorf("CurrentVersion = %q, want 0.0.0", cfg.CurrentVersion)
	}
	if cfg.Constraint != "*" {
		t.Errorf("Constraint = %q, want *", cfg.Constraint)
	}
	if want := filepath.Join(home, ".autoupdate", "current"); cfg.InstallDir != want {
		t.Errorf("InstallDir = %q, want %q", cfg.InstallDir, want)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("HTTPTimeout = %v", cfg.HTTPTimeout)
	}
	if cfg.DryRun.StepInterval != 100*time.Millisecond || cfg.DryRun.CheckDelay != 2*time.Second {
		t.Errorf("DryRun = %+v", cfg.DryRun)
	}
	if cfg.DryRun.Enabled || cfg.DryRun.FakeUpdate {
		t.Error("dry run should be disabled by default")
	}
	if cfg.MetricsAddr != "" {
		t.Errorf("MetricsAddr = %q, want empty", cfg.MetricsAddr)
	}
	if want := filepath.Join(home, ".autoupdate", "autoupdate.log"); cfg.LogFile != want {
		t.Errorf("LogFile = %q, want %q", cfg.LogFile, want)
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg != Defaults() {
		t.Errorf("Load() = %+v, want defaults %+v", cfg, Defaults())
	}
}

func TestLoad_Precedence(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, ".autoupdate", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := `owner: file-owner
repo: file-repo
constraint: "^1.2"
http_timeout: 5s
dry_run:
  enabled: true
  step_interval: 10ms
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AUTOUPDATE_REPO", "env-repo")
	t.Setenv("AUTOUPDATE_DRY_RUN_FAKE_UPDATE", "true")

	cfg, err := Load(WithOverrides(map[string]any{KeyConstraint: ">=2.0"}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Owner != "file-owner" {
		t.Errorf("Owner = %q, want from file", cfg.Owner)
	}
	if cfg.Repo != "env-repo" {
		t.Errorf("Repo = %q, want env override", cfg.Repo)
	}
	if cfg.Constraint != ">=2.0" {
		t.Errorf("Constraint = %q, want flag override", cfg.Constraint)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Errorf("HTTPTimeout = %v, want 5s", cfg.HTTPTimeout)
	}
	if !cfg.DryRun.Enabled || !cfg.DryRun.FakeUpdate {
		t.Errorf("DryRun = %+v, want enabled with fake update", cfg.DryRun)
	}
	if cfg.DryRun.StepInterval != 10*time.Millisecond {
		t.Errorf("StepInterval = %v, want 10ms", cfg.DryRun.StepInterval)
	}
	if cfg.DryRun.CheckDelay != 2*time.Second {
		t.Errorf("CheckDelay = %v, want default 2s", cfg.DryRun.CheckDelay)
	}
}

func TestLoad_ExplicitConfigFile(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(dir, "custom.yaml")
		if err := os.WriteFile(path, []byte("owner: acme\nrepo: game\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		cfg, err := Load(WithConfigFile(path))
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Owner != "acme" || cfg.Repo != "game" {
			t.Errorf("cfg = %+v", cfg)
		}
	})

	t.Run("missing file is an error", func(t *testing.T) {
		if _, err := Load(WithConfigFile(filepath.Join(dir, "nope.yaml"))); err == nil {
			t.Error("expected error for missing explicit config")
		}
	})

	t.Run("directory is an error", func(t *testing.T) {
		if _, err := Load(WithConfigFile(dir)); err == nil {
			t.Error("expected error for directory config path")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		if err := os.WriteFile(path, []byte("owner: [unterminated\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(WithConfigFile(path)); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yaml")
		if err := os.WriteFile(path, []byte("  \n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(WithConfigFile(path)); err != nil {
			t.Errorf("Load() error = %v", err)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"owner and repo", Config{Owner: "acme", Repo: "game"}, false},
		{"missing repo", Config{Owner: "acme"}, true},
		{"missing both", Config{}, true},
		{"dry run needs nothing", Config{DryRun: DryRun{Enabled: true}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
