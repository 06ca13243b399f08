// Package depmanager provides the external binaries extraction depends on: yt-dlp, and ffmpeg
// for stream merging and audio transcoding. Binaries come either from PATH or from configured
// release URLs. Checksums only signal that a newer release exists, they do not verify downloads.
package depmanager

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"titan/internal/config"
	"titan/internal/errs"

	"github.com/ulikunitz/xz"
)

// Tool is the name of an external binary.
type Tool string

// Managed tools.
const (
	ToolYTdlp   Tool = "yt-dlp"
	ToolFFmpeg  Tool = "ffmpeg"
	ToolFFprobe Tool = "ffprobe"
)

const (
	downloadTimeout      = 10 * time.Minute
	filePermExecutable   = 0o755
	filePermReadWrite    = 0o644
	sha256HexLength      = 64
	sha256SumsFieldCount = 2
	savedSumsFilename    = ".sha256sums.json"
)

// Platform is an OS and architecture pair.
type Platform struct {
	OS   string
	Arch string
}

// String returns "os/arch".
func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

// Manager resolves and installs tools.
type Manager struct {
	log      *slog.Logger
	cfg      config.DepManager
	platform Platform
	client   *http.Client

	mu        sync.RWMutex
	paths     map[Tool]string
	sums      map[string]string // artifact -> sha256 from the release
	savedSums map[string]string // artifact -> sha256 at last install

	updating atomic.Bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithPlatform overrides the detected platform.
func WithPlatform(p Platform) Option {
	return func(m *Manager) { m.platform = p }
}

// WithHTTPClient overrides the client used for downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.client = c }
}

// New creates a manager.
func New(log *slog.Logger, cfg config.DepManager, opts ...Option) *Manager {
	m := &Manager{
		log:       log.With(slog.String("package", "depmanager")),
		cfg:       cfg,
		platform:  Platform{OS: runtime.GOOS, Arch: runtime.GOARCH},
		client:    &http.Client{Timeout: downloadTimeout},
		paths:     make(map[Tool]string),
		sums:      make(map[string]string),
		savedSums: make(map[string]string),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Start resolves every tool, from PATH or by installing it. When binaries are managed and an
// update interval is set, a background checker runs until ctx is done.
func (m *Manager) Start(ctx context.Context) error {
	if m.cfg.UseSystemBinaries {
		return m.LookupSystem()
	}

	if err := m.Install(ctx); err != nil {
		return err
	}

	go m.runUpdateChecker(ctx)

	return nil
}

// LookupSystem finds yt-dlp and ffmpeg in PATH. ffprobe is optional.
func (m *Manager) LookupSystem() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, tool := range []Tool{ToolYTdlp, ToolFFmpeg} {
		p, err := exec.LookPath(string(tool))
		if err != nil {
			return fmt.Errorf("%w: %s: %w", errs.ErrBinaryNotFound, tool, err)
		}

		m.paths[tool] = p
	}

	if p, err := exec.LookPath(string(ToolFFprobe)); err == nil {
		m.paths[ToolFFprobe] = p
	}

	m.log.Info("using system binaries", slog.Any("paths", m.paths))

	return nil
}

// Install downloads missing tools into the bins directory and records their checksums.
func (m *Manager) Install(ctx context.Context) error {
	if err := os.MkdirAll(m.cfg.BinsDir, filePermExecutable); err != nil {
		return fmt.Errorf("create bins dir: %w", err)
	}

	if err := m.loadSavedSums(); err != nil {
		m.log.DebugContext(ctx, "no saved checksums, first run", slog.Any("error", err))
	}

	for _, tool := range []Tool{ToolFFmpeg, ToolYTdlp} {
		if m.installed(tool) {
			m.setPath(tool, m.localPath(tool))

			if tool == ToolFFmpeg && m.installed(ToolFFprobe) {
				m.setPath(ToolFFprobe, m.localPath(ToolFFprobe))
			}

			continue
		}

		if err := m.install(ctx, tool); err != nil {
			return fmt.Errorf("install %s: %w", tool, err)
		}
	}

	m.log.InfoContext(ctx, "binaries installed", slog.Any("paths", m.paths))

	if err := m.FetchSums(ctx); err != nil {
		m.log.WarnContext(ctx, "fetch checksums", slog.Any("error", err))

		return nil
	}

	if err := m.saveSums(); err != nil {
		m.log.WarnContext(ctx, "save checksums", slog.Any("error", err))
	}

	return nil
}

// Path returns the resolved path of tool, or "" when it has not been resolved.
func (m *Manager) Path(tool Tool) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.paths[tool]
}

// FetchSums downloads and parses every configured checksum file.
func (m *Manager) FetchSums(ctx context.Context) error {
	if len(m.cfg.SHA256SumsURLs) == 0 {
		return errors.New("no checksum urls configured")
	}

	for _, url := range m.cfg.SHA256SumsURLs {
		body, err := m.get(ctx, url)
		if err != nil {
			return fmt.Errorf("fetch checksums: %w", err)
		}

		data, err := io.ReadAll(body)
		_ = body.Close()

		if err != nil {
			return fmt.Errorf("read checksums: %w", err)
		}

		m.mu.Lock()
		maps.Copy(m.sums, ParseSums(string(data)))
		m.mu.Unlock()
	}

	return nil
}

// ParseSums parses "hash  filename" lines, skipping anything malformed.
func ParseSums(content string) map[string]string {
	sums := make(map[string]string)

	for line := range strings.SplitSeq(content, "\n") {
		fields := strings.Fields(line)
		if len(fields) != sha256SumsFieldCount || len(fields[0]) != sha256HexLength {
			continue
		}

		sums[strings.TrimPrefix(fields[1], "*")] = fields[0]
	}

	return sums
}

func (m *Manager) runUpdateChecker(ctx context.Context) {
	if m.cfg.UpdateInterval <= 0 {
		return
	}

	ticker := time.NewTicker(m.cfg.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkAndUpdate(ctx)
		}
	}
}

func (m *Manager) checkAndUpdate(ctx context.Context) {
	if !m.updating.CompareAndSwap(false, true) {
		return
	}
	defer m.updating.Store(false)

	if err := m.FetchSums(ctx); err != nil {
		m.log.WarnContext(ctx, "update check: fetch checksums", slog.Any("error", err))

		return
	}

	updates := m.findUpdates()
	if len(updates) == 0 {
		m.log.DebugContext(ctx, "update check: up to date")

		return
	}

	for _, tool := range updates {
		if err := m.install(ctx, tool); err != nil {
			m.log.ErrorContext(ctx, "update check: install", slog.String("tool", string(tool)), slog.Any("error", err))

			continue
		}

		m.log.InfoContext(ctx, "update check: tool updated", slog.String("tool", string(tool)))
	}

	if err := m.saveSums(); err != nil {
		m.log.WarnContext(ctx, "update check: save checksums", slog.Any("error", err))
	}
}

// findUpdates returns tools whose release artifact checksum changed since the last install.
func (m *Manager) findUpdates() []Tool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var updates []Tool

	for _, tool := range []Tool{ToolYTdlp, ToolFFmpeg} {
		url, err := m.releaseURL(tool)
		if err != nil {
			continue
		}

		artifact := path.Base(url)

		newHash, ok := m.sums[artifact]
		if !ok {
			continue
		}

		if oldHash, seen := m.savedSums[artifact]; !seen || oldHash != newHash {
			updates = append(updates, tool)
		}
	}

	return updates
}

func (m *Manager) localPath(tool Tool) string {
	name := string(tool)
	if m.platform.OS == "windows" {
		name += ".exe"
	}

	return filepath.Join(m.cfg.BinsDir, name)
}

func (m *Manager) installed(tool Tool) bool {
	info, err := os.Stat(m.localPath(tool))

	return err == nil && info.Size() > 0
}

func (m *Manager) setPath(tool Tool, p string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.paths[tool] = p
}

// releaseURL returns the configured download URL for tool on the current platform.
func (m *Manager) releaseURL(tool Tool) (string, error) {
	var arm64, amd64 string

	switch tool {
	case ToolYTdlp:
		arm64, amd64 = m.cfg.YTdlpLinuxARM64, m.cfg.YTdlpLinuxAMD64
	case ToolFFmpeg, ToolFFprobe:
		arm64, amd64 = m.cfg.FFmpegLinuxARM64, m.cfg.FFmpegLinuxAMD64
	default:
		return "", fmt.Errorf("unknown tool %q", tool)
	}

	var url string

	switch m.platform.String() {
	case "linux/arm64":
		url = arm64
	case "linux/amd64":
		url = amd64
	default:
		return "", fmt.Errorf("%w: %s", errs.ErrUnsupportedPlatform, m.platform)
	}

	if url == "" {
		return "", fmt.Errorf("no download url for %s on %s", tool, m.platform)
	}

	return url, nil
}

// archiveMembers lists the files taken from a release archive for tool.
func archiveMembers(tool Tool) map[string]Tool {
	if tool == ToolFFmpeg {
		return map[string]Tool{"ffmpeg": ToolFFmpeg, "ffprobe": ToolFFprobe}
	}

	return map[string]Tool{string(tool): tool}
}

func (m *Manager) install(ctx context.Context, tool Tool) error {
	url, err := m.releaseURL(tool)
	if err != nil {
		return err
	}

	m.log.InfoContext(ctx, "downloading binary", slog.String("tool", string(tool)), slog.String("url", url))

	tmpPath, err := m.download(ctx, url)
	if err != nil {
		return err
	}
	defer os.Remove(tmpPath)

	members := archiveMembers(tool)

	var installed map[string]string

	switch {
	case strings.HasSuffix(url, ".tar.xz"), strings.HasSuffix(url, ".tar.gz"), strings.HasSuffix(url, ".zip"):
		installed, err = m.extract(tmpPath, url, members)
		if err != nil {
			return fmt.Errorf("extract: %w", err)
		}
	default:
		dest := m.localPath(tool)
		if err := os.Rename(tmpPath, dest); err != nil {
			return fmt.Errorf("rename: %w", err)
		}

		installed = map[string]string{string(tool): dest}
	}

	for name, p := range installed {
		if err := os.Chmod(p, filePermExecutable); err != nil {
			return fmt.Errorf("chmod: %w", err)
		}

		m.setPath(members[name], p)
	}

	return nil
}

func (m *Manager) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()

		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return resp.Body, nil
}

// download writes url to a temp file in the bins directory and returns its path.
func (m *Manager) download(ctx context.Context, url string) (string, error) {
	body, err := m.get(ctx, url)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer body.Close()

	tmp, err := os.CreateTemp(m.cfg.BinsDir, "download-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return "", fmt.Errorf("write temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return "", fmt.Errorf("close temp file: %w", err)
	}

	return tmp.Name(), nil
}

// extract copies the wanted members of an archive into the bins directory and
// returns member name -> installed path.
func (m *Manager) extract(archivePath, url string, members map[string]Tool) (map[string]string, error) {
	if strings.HasSuffix(url, ".zip") {
		return m.extractZip(archivePath, members)
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	var r io.Reader

	if strings.HasSuffix(url, ".tar.xz") {
		r, err = xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("create xz reader: %w", err)
		}
	} else {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		defer gz.Close()

		r = gz
	}

	return m.extractTar(r, members)
}

func (m *Manager) extractTar(r io.Reader, members map[string]Tool) (map[string]string, error) {
	tr := tar.NewReader(r)
	installed := make(map[string]string)

	for len(installed) < len(members) {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("read tar header: %w", err)
		}

		name := filepath.Base(hdr.Name)
		if _, ok := members[name]; !ok || hdr.Typeflag != tar.TypeReg {
			continue
		}

		dest, err := m.writeMember(name, tr)
		if err != nil {
			return nil, err
		}

		installed[name] = dest
	}

	if len(installed) == 0 {
		return nil, errors.New("no wanted files in tar archive")
	}

	return installed, nil
}

func (m *Manager) extractZip(archivePath string, members map[string]Tool) (map[string]string, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	installed := make(map[string]string)

	for _, f := range zr.File {
		name := path.Base(f.Name)
		if _, ok := members[name]; !ok || f.FileInfo().IsDir() {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open zip member: %w", err)
		}

		dest, err := m.writeMember(name, rc)
		_ = rc.Close()

		if err != nil {
			return nil, err
		}

		installed[name] = dest
	}

	if len(installed) == 0 {
		return nil, errors.New("no wanted files in zip archive")
	}

	return installed, nil
}

func (m *Manager) writeMember(name string, r io.Reader) (string, error) {
	dest := filepath.Join(m.cfg.BinsDir, name)

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermExecutable)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}

	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()

		return "", fmt.Errorf("write %s: %w", name, err)
	}

	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}

	return dest, nil
}

func (m *Manager) loadSavedSums() error {
	data, err := os.ReadFile(filepath.Join(m.cfg.BinsDir, savedSumsFilename))
	if err != nil {
		return fmt.Errorf("read checksums file: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := json.Unmarshal(data, &m.savedSums); err != nil {
		return fmt.Errorf("unmarshal checksums: %w", err)
	}

	return nil
}

func (m *Manager) saveSums() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.sums, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checksums: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.cfg.BinsDir, savedSumsFilename), data, filePermReadWrite); err != nil {
		return fmt.Errorf("write checksums file: %w", err)
	}

	m.savedSums = maps.Clone(m.sums)

	return nil
}
