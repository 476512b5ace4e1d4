package install

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Manifest describes what a release installs. It is published as the
// release asset named manifest.json.
type Manifest struct {
	Version string `json:"version"`
	Files   []File `json:"files"`
}

// File maps one release asset onto a path under the install directory.
// Archives are unpacked into Target; other assets are written to Target.
// Empty OS or Arch matches every platform.
type File struct {
	Asset  string `json:"asset"`
	Target string `json:"target"`
	OS     string `json:"os,omitempty"`
	Arch   string `json:"arch,omitempty"`
}

// DecodeManifest reads and validates a manifest.
func DecodeManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	for i, f := range m.Files {
		if f.Asset == "" {
			return nil, fmt.Errorf("manifest file %d: asset is required", i)
		}
		if err := validTarget(f.Target); err != nil {
			return nil, fmt.Errorf("manifest file %d (%s): %w", i, f.Asset, err)
		}
	}
	return &m, nil
}

// ForPlatform returns the entries that apply to goos/goarch.
func (m *Manifest) ForPlatform(goos, goarch string) []File {
	var out []File
	for _, f := range m.Files {
		if f.OS != "" && f.OS != goos {
			continue
		}
		if f.Arch != "" && f.Arch != goarch {
			continue
		}
		out = append(out, f)
	}
	return out
}

// validTarget rejects targets that would escape the install directory.
// An empty target or "." means the install directory itself.
func validTarget(target string) error {
	if target == "" {
		return nil
	}
	if filepath.IsAbs(target) || strings.HasPrefix(target, "/") {
		return fmt.Errorf("absolute target %q not allowed", target)
	}
	clean := filepath.Clean(filepath.FromSlash(target))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("target %q escapes install directory", target)
	}
	return nil
}
