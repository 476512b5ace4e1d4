package install

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
)

type archiveKind int

const (
	kindPlain archiveKind = iota
	kindTarGz
	kindTarLz4
)

func kindOf(name string) archiveKind {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return kindTarGz
	case strings.HasSuffix(lower, ".tar.lz4"):
		return kindTarLz4
	}
	return kindPlain
}

// openTar opens archivePath and returns a tar reader over its decompressed
// stream. The caller closes the returned closer.
func openTar(archivePath string, kind archiveKind) (*tar.Reader, io.Closer, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open archive: %w", err)
	}

	switch kind {
	case kindTarGz:
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("create gzip reader: %w", err)
		}
		return tar.NewReader(gz), closers{gz, f}, nil
	case kindTarLz4:
		return tar.NewReader(lz4.NewReader(f)), f, nil
	}
	f.Close()
	return nil, nil, fmt.Errorf("%s is not a tar archive", archivePath)
}

type closers []io.Closer

func (c closers) Close() error {
	var first error
	for _, cl := range c {
		if err := cl.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// countEntries returns the number of headers in the archive.
func countEntries(archivePath string, kind archiveKind) (int64, error) {
	tr, c, err := openTar(archivePath, kind)
	if err != nil {
		return 0, err
	}
	defer c.Close()

	var n int64
	for {
		_, err := tr.Next()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return 0, fmt.Errorf("read tar header: %w", err)
		}
		n++
	}
}

// extractTar unpacks the archive into destDir, calling onEntry once per
// header. Entries resolving outside destDir and absolute symlinks are
// rejected.
func extractTar(archivePath string, kind archiveKind, destDir string, onEntry func(name string)) error {
	tr, c, err := openTar(archivePath, kind)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", destDir, err)
	}
	root := filepath.Clean(destDir) + string(os.PathSeparator)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		cleanName := filepath.Clean(header.Name)
		if strings.HasPrefix(cleanName, "..") || filepath.IsAbs(cleanName) {
			return fmt.Errorf("invalid path in archive: %s", header.Name)
		}
		targetPath := filepath.Join(destDir, cleanName)
		if cleanName != "." && !strings.HasPrefix(targetPath, root) {
			return fmt.Errorf("path traversal detected: %s", header.Name)
		}

		if onEntry != nil {
			onEntry(cleanName)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(targetPath, dirMode(header.Mode)); err != nil {
				return fmt.Errorf("create dir %s: %w", cleanName, err)
			}

		case tar.TypeReg:
			if err := writeEntry(tr, targetPath, header); err != nil {
				return fmt.Errorf("%s: %w", cleanName, err)
			}

		case tar.TypeSymlink:
			if filepath.IsAbs(header.Linkname) {
				return fmt.Errorf("absolute symlink not allowed: %s -> %s", cleanName, header.Linkname)
			}
			resolved := filepath.Join(filepath.Dir(targetPath), header.Linkname)
			if resolved != filepath.Clean(destDir) && !strings.HasPrefix(resolved, root) {
				return fmt.Errorf("symlink escapes destination: %s -> %s", cleanName, header.Linkname)
			}
			if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
				return fmt.Errorf("create parent dir for %s: %w", cleanName, err)
			}
			_ = os.Remove(targetPath)
			if err := os.Symlink(header.Linkname, targetPath); err != nil {
				return fmt.Errorf("create symlink %s: %w", cleanName, err)
			}

		case tar.TypeLink:
			linkTarget := filepath.Join(destDir, filepath.Clean(header.Linkname))
			if !strings.HasPrefix(linkTarget, root) {
				return fmt.Errorf("hard link escapes destination: %s -> %s", cleanName, header.Linkname)
			}
			if err := os.Link(linkTarget, targetPath); err != nil {
				return fmt.Errorf("create hard link %s: %w", cleanName, err)
			}

		default:
			// devices, fifos and the like are not part of a release
			continue
		}
	}
}

func writeEntry(r io.Reader, targetPath string, header *tar.Header) error {
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	out, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode).Perm())
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	written, err := io.Copy(out, r)
	if err != nil {
		out.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if header.Size > 0 && written != header.Size {
		out.Close()
		return fmt.Errorf("incomplete extraction: wrote %d of %d bytes (disk full?)", written, header.Size)
	}
	return out.Close()
}

func dirMode(mode int64) os.FileMode {
	m := os.FileMode(mode).Perm()
	if m == 0 {
		return 0o755
	}
	return m
}

// copyFile copies src to dst, creating parent directories.
func copyFile(src, dst string, mode os.FileMode) error {
	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	dest, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dest, source); err != nil {
		dest.Close()
		return err
	}
	return dest.Close()
}
