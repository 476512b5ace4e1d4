package install

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pierrec/lz4/v4"
)

type tarEntry struct {
	name     string
	body     string
	typeflag byte
	linkname string
	mode     int64
}

// writeTestTar writes entries as a tar stream compressed per kind.
func writeTestTar(t *testing.T, archivePath string, kind archiveKind, entries []tarEntry) {
	t.Helper()

	f, err := os.Create(archivePath)
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}
	defer f.Close()

	var w io.WriteCloser
	switch kind {
	case kindTarGz:
		w = gzip.NewWriter(f)
	case kindTarLz4:
		w = lz4.NewWriter(f)
	default:
		t.Fatalf("unsupported kind %d", kind)
	}
	defer w.Close()

	tw := tar.NewWriter(w)
	defer tw.Close()

	for _, e := range entries {
		typeflag := e.typeflag
		if typeflag == 0 {
			typeflag = tar.TypeReg
		}
		mode := e.mode
		if mode == 0 {
			mode = 0o644
			if typeflag == tar.TypeDir {
				mode = 0o755
			}
		}
		h := &tar.Header{
			Name:     e.name,
			Mode:     mode,
			Typeflag: typeflag,
			Linkname: e.linkname,
		}
		if typeflag == tar.TypeReg {
			h.Size = int64(len(e.body))
		}
		if err := tw.WriteHeader(h); err != nil {
			t.Fatalf("failed to write tar header: %v", err)
		}
		if typeflag == tar.TypeReg && e.body != "" {
			if _, err := tw.Write([]byte(e.body)); err != nil {
				t.Fatalf("failed to write tar content: %v", err)
			}
		}
	}
}

func TestKindOf(t *testing.T) {
	tests := map[string]archiveKind{
		"game.tar.gz":    kindTarGz,
		"game.TGZ":       kindTarGz,
		"assets.tar.lz4": kindTarLz4,
		"game.exe":       kindPlain,
		"data.gz":        kindPlain,
		"manifest.json":  kindPlain,
	}
	for name, want := range tests {
		if got := kindOf(name); got != want {
			t.Errorf("kindOf(%q) = %d, want %d", name, got, want)
		}
	}
}

func TestExtractTar(t *testing.T) {
	for _, kind := range []archiveKind{kindTarGz, kindTarLz4} {
		kind := kind
		name := map[archiveKind]string{kindTarGz: "gzip", kindTarLz4: "lz4"}[kind]

		t.Run(name, func(t *testing.T) {
			tmpDir := t.TempDir()
			archivePath := filepath.Join(tmpDir, "release.tar")
			dest := filepath.Join(tmpDir, "out")

			writeTestTar(t, archivePath, kind, []tarEntry{
				{name: "bin/", typeflag: tar.TypeDir},
				{name: "bin/game", body: "#!/bin/sh\necho hi\n", mode: 0o755},
				{name: "assets/level1.dat", body: "level data"},
				{name: "assets/current", typeflag: tar.TypeSymlink, linkname: "level1.dat"},
				{name: "assets/copy.dat", typeflag: tar.TypeLink, linkname: "assets/level1.dat"},
				{name: "dev/null", typeflag: tar.TypeChar},
			})

			n, err := countEntries(archivePath, kind)
			if err != nil {
				t.Fatalf("countEntries() error = %v", err)
			}
			if n != 6 {
				t.Errorf("countEntries() = %d, want 6", n)
			}

			var seen []string
			if err := extractTar(archivePath, kind, dest, func(name string) { seen = append(seen, name) }); err != nil {
				t.Fatalf("extractTar() error = %v", err)
			}
			if len(seen) != 6 {
				t.Errorf("onEntry called %d times, want 6", len(seen))
			}

			data, err := os.ReadFile(filepath.Join(dest, "bin", "game"))
			if err != nil {
				t.Fatalf("read bin/game: %v", err)
			}
			if !strings.Contains(string(data), "echo hi") {
				t.Errorf("bin/game = %q", data)
			}
			info, err := os.Stat(filepath.Join(dest, "bin", "game"))
			if err != nil {
				t.Fatal(err)
			}
			if info.Mode().Perm()&0o100 == 0 {
				t.Errorf("bin/game mode = %v, want executable", info.Mode())
			}

			link, err := os.Readlink(filepath.Join(dest, "assets", "current"))
			if err != nil || link != "level1.dat" {
				t.Errorf("symlink = %q, %v", link, err)
			}
			if data, err := os.ReadFile(filepath.Join(dest, "assets", "copy.dat")); err != nil || string(data) != "level data" {
				t.Errorf("hard link = %q, %v", data, err)
			}
			if _, err := os.Lstat(filepath.Join(dest, "dev", "null")); !os.IsNotExist(err) {
				t.Errorf("char device should be skipped, got %v", err)
			}
		})
	}
}

func TestExtractTarRejectsUnsafeEntries(t *testing.T) {
	tests := []struct {
		name    string
		entry   tarEntry
		wantErr string
	}{
		{"parent traversal", tarEntry{name: "../evil.txt", body: "x"}, "invalid path"},
		{"nested traversal", tarEntry{name: "a/../../evil.txt", body: "x"}, "invalid path"},
		{"absolute symlink", tarEntry{name: "link", typeflag: tar.TypeSymlink, linkname: "/etc/passwd"}, "absolute symlink"},
		{"escaping symlink", tarEntry{name: "a/link", typeflag: tar.TypeSymlink, linkname: "../../etc"}, "symlink escapes"},
		{"escaping hard link", tarEntry{name: "link", typeflag: tar.TypeLink, linkname: "../outside"}, "hard link escapes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			archivePath := filepath.Join(tmpDir, "bad.tar.gz")
			writeTestTar(t, archivePath, kindTarGz, []tarEntry{tt.entry})

			err := extractTar(archivePath, kindTarGz, filepath.Join(tmpDir, "out"), nil)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
			if _, err := os.Stat(filepath.Join(tmpDir, "evil.txt")); !os.IsNotExist(err) {
				t.Error("file written outside destination")
			}
		})
	}
}

func TestExtractTarCorruptArchive(t *testing.T) {
	tmpDir := t.TempDir()
	archivePath := filepath.Join(tmpDir, "corrupt.tar.gz")
	if err := os.WriteFile(archivePath, []byte("definitely not gzip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := extractTar(archivePath, kindTarGz, filepath.Join(tmpDir, "out"), nil); err == nil {
		t.Error("expected error for corrupt archive")
	}
	if _, _, err := openTar(archivePath, kindPlain); err == nil {
		t.Error("openTar should reject plain files")
	}
}
