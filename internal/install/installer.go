package install

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/pushchain/autoupdate/internal/update"
)

// ErrInsufficientSpace is returned when the install directory's filesystem
// cannot hold the release.
var ErrInsufficientSpace = errors.New("insufficient disk space")

// HTTPDoer interface for HTTP requests (allows mocking in tests).
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Options configures a ManifestInstaller.
type Options struct {
	Dir    string      // install directory (required)
	GOOS   string      // platform filter (default: runtime.GOOS)
	GOARCH string      // platform filter (default: runtime.GOARCH)
	HTTP   HTTPDoer    // default: client with a 30s response header timeout
	Logger *log.Logger // default: discard

	// FreeSpace reports free bytes on the filesystem holding path
	// (default: gopsutil disk.Usage).
	FreeSpace func(path string) (uint64, error)
}

// ManifestInstaller installs a release described by its manifest.json
// asset into a directory.
type ManifestInstaller struct {
	dir       string
	goos      string
	goarch    string
	http      HTTPDoer
	logger    *log.Logger
	freeSpace func(string) (uint64, error)
}

// New creates a ManifestInstaller.
func New(opts Options) *ManifestInstaller {
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}
	if opts.GOARCH == "" {
		opts.GOARCH = runtime.GOARCH
	}
	if opts.HTTP == nil {
		opts.HTTP = &http.Client{
			Timeout: 0, // assets may be large
			Transport: &http.Transport{
				ResponseHeaderTimeout: 30 * time.Second,
				IdleConnTimeout:       90 * time.Second,
			},
		}
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.FreeSpace == nil {
		opts.FreeSpace = diskFree
	}
	return &ManifestInstaller{
		dir:       opts.Dir,
		goos:      opts.GOOS,
		goarch:    opts.GOARCH,
		http:      opts.HTTP,
		logger:    opts.Logger,
		freeSpace: opts.FreeSpace,
	}
}

func diskFree(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

// staged is one downloaded asset waiting to be unpacked.
type staged struct {
	file  File
	path  string
	kind  archiveKind
	count int64
}

// Install downloads the candidate's assets, unpacks them into a staging
// directory next to the install directory and moves them into place.
// Nothing in the install directory changes unless every asset downloaded
// and unpacked.
func (m *ManifestInstaller) Install(ctx context.Context, c update.Candidate, report func(update.Status)) error {
	if m.dir == "" {
		return fmt.Errorf("install directory is required")
	}
	if report == nil {
		report = func(update.Status) {}
	}

	manifest, err := m.fetchManifest(ctx, c)
	if err != nil {
		return err
	}
	files := manifest.ForPlatform(m.goos, m.goarch)
	if len(files) == 0 {
		return fmt.Errorf("release %s has no files for %s/%s", c.Version, m.goos, m.goarch)
	}

	assets := make([]*update.Asset, len(files))
	var total int64
	for i, f := range files {
		a := c.FindAsset(f.Asset)
		if a == nil {
			return fmt.Errorf("manifest references missing asset %q", f.Asset)
		}
		assets[i] = a
		total += a.Size
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("create install dir: %w", err)
	}
	if err := m.checkSpace(total); err != nil {
		return err
	}

	staging, err := os.MkdirTemp(filepath.Dir(filepath.Clean(m.dir)), ".autoupdate-staging-*")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	downloads := filepath.Join(staging, "downloads")
	root := filepath.Join(staging, "root")
	if err := os.MkdirAll(downloads, 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}

	// download
	report(update.Downloading(0))
	var done int64
	items := make([]staged, len(files))
	for i, f := range files {
		dest := filepath.Join(downloads, fmt.Sprintf("%d-%s", i, filepath.Base(f.Asset)))
		base := done
		n, err := m.downloadFile(ctx, assets[i].BrowserDownloadURL, dest, func(current, size int64) {
			report(update.Downloading(percent(base+current, total, size)))
		})
		if err != nil {
			return fmt.Errorf("download %s: %w", f.Asset, err)
		}
		done += n
		items[i] = staged{file: f, path: dest, kind: kindOf(f.Asset), count: 1}
		m.logger.Printf("downloaded %s (%d bytes)", f.Asset, n)
	}
	report(update.Downloading(100))

	// unpack
	var entries int64
	for i := range items {
		if items[i].kind == kindPlain {
			continue
		}
		n, err := countEntries(items[i].path, items[i].kind)
		if err != nil {
			return fmt.Errorf("read %s: %w", items[i].file.Asset, err)
		}
		items[i].count = n
	}
	for _, it := range items {
		entries += it.count
	}

	report(update.Installing(0))
	var unpacked int64
	for _, it := range items {
		target := filepath.Join(root, filepath.FromSlash(it.file.Target))
		switch it.kind {
		case kindPlain:
			dst := target
			if it.file.Target == "" || it.file.Target == "." {
				dst = filepath.Join(root, filepath.Base(it.file.Asset))
			}
			if err := copyFile(it.path, dst, 0o755); err != nil {
				return fmt.Errorf("stage %s: %w", it.file.Asset, err)
			}
			unpacked++
			report(update.Installing(ratio(unpacked, entries)))
		default:
			err := extractTar(it.path, it.kind, target, func(string) {
				unpacked++
				report(update.Installing(ratio(unpacked, entries)))
			})
			if err != nil {
				return fmt.Errorf("unpack %s: %w", it.file.Asset, err)
			}
		}
	}

	if err := promote(root, m.dir); err != nil {
		return err
	}
	report(update.Installing(100))
	m.logger.Printf("installed %s into %s", c.Version, m.dir)
	return nil
}

func (m *ManifestInstaller) fetchManifest(ctx context.Context, c update.Candidate) (*Manifest, error) {
	asset := c.Manifest()
	if asset == nil {
		return nil, fmt.Errorf("release %s has no %s", c.Version, update.ManifestAssetName)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.BrowserDownloadURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch manifest: HTTP %d: %s", resp.StatusCode, resp.Status)
	}
	return DecodeManifest(resp.Body)
}

func (m *ManifestInstaller) checkSpace(need int64) error {
	if need <= 0 {
		return nil
	}
	free, err := m.freeSpace(m.dir)
	if err != nil {
		m.logger.Printf("disk space check skipped: %v", err)
		return nil
	}
	// archives are held and unpacked at the same time
	if free < uint64(need)*2 {
		return fmt.Errorf("%w: need %d bytes, %d free in %s", ErrInsufficientSpace, need*2, free, m.dir)
	}
	return nil
}

// downloadFile downloads url to destPath with progress callback and returns
// the number of bytes written.
func (m *ManifestInstaller) downloadFile(ctx context.Context, url, destPath string, progress func(current, total int64)) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	reader := &progressReader{
		reader:   resp.Body,
		total:    resp.ContentLength,
		progress: progress,
	}
	n, err := io.Copy(out, reader)
	if err != nil {
		return n, err
	}
	return n, out.Close()
}

// promote moves the staged tree at root into dir. Directories present on
// both sides are merged; anything else in dir is replaced.
func promote(root, dir string) error {
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read staging dir: %w", err)
	}
	for _, e := range entries {
		src := filepath.Join(root, e.Name())
		dst := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if info, err := os.Lstat(dst); err == nil && info.IsDir() {
				if err := promote(src, dst); err != nil {
					return err
				}
				continue
			}
		}
		if err := os.RemoveAll(dst); err != nil {
			return fmt.Errorf("replace %s: %w", dst, err)
		}
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("install %s: %w", dst, err)
		}
	}
	return nil
}

// progressReader wraps a reader to report download progress.
type progressReader struct {
	reader   io.Reader
	total    int64
	current  int64
	progress func(current, total int64)
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.current += int64(n)
	if pr.progress != nil {
		pr.progress(pr.current, pr.total)
	}
	return n, err
}

// percent converts bytes done into a percentage of total. When the manifest
// sizes are unknown the current response length is used instead.
func percent(done, total, responseSize int64) float64 {
	if total <= 0 {
		total = responseSize
	}
	if total <= 0 {
		return 0
	}
	return ratio(done, total)
}

func ratio(done, total int64) float64 {
	if total <= 0 {
		return 100
	}
	p := float64(done) / float64(total) * 100
	if p > 100 {
		p = 100
	}
	return p
}
