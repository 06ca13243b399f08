//go:build integration

package integration_test

import (
	_ "embed"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"titan/internal/config"
	"titan/internal/depmanager"
	"titan/internal/downloader"
	"titan/internal/entity"
	"titan/internal/jobspec"
)

//go:embed testdata/fake-ytdlp.sh
var fakeYTDLPScript string

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeBins resolves only the fake yt-dlp.
type fakeBins string

func (b fakeBins) Path(tool depmanager.Tool) string {
	if tool == depmanager.ToolYTdlp {
		return string(b)
	}

	return ""
}

type ytdlpIntegrationFixture struct {
	cfg        *config.Config
	extractor  *downloader.YTdlp
	outputFile string
}

func newYTdlpIntegrationFixture(t *testing.T, mode string) *ytdlpIntegrationFixture {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("integration fake yt-dlp helper uses shell script")
	}

	baseDir := t.TempDir()
	binsDir := filepath.Join(baseDir, "bins")
	downloadsDir := filepath.Join(baseDir, "downloads")
	cacheDir := filepath.Join(baseDir, "cache")

	for _, dir := range []string{binsDir, downloadsDir, cacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	cfg := &config.Config{
		Job: config.Job{Timeout: 5 * time.Second, UserAgent: "titan-test"},
		Dir: config.Dir{
			Downloads:        downloadsDir,
			Cache:            cacheDir,
			FilenameTemplate: "%(title)s.%(ext)s",
			PurgeBeforeJob:   false,
		},
		History: config.History{DBPath: filepath.Join(baseDir, "history.db")},
	}

	fakeBinaryPath := filepath.Join(binsDir, "yt-dlp")
	if err := os.WriteFile(fakeBinaryPath, []byte(fakeYTDLPScript), 0o755); err != nil {
		t.Fatalf("write fake yt-dlp: %v", err)
	}

	outputFile := filepath.Join(downloadsDir, "Fake Clip.mp4")
	t.Setenv("TITAN_FAKE_MODE", mode)
	t.Setenv("TITAN_FAKE_OUTPUT_FILE", outputFile)

	return &ytdlpIntegrationFixture{
		cfg:        cfg,
		extractor:  downloader.NewYTdlp(discard, cfg, fakeBins(fakeBinaryPath), nil),
		outputFile: outputFile,
	}
}

func (fx *ytdlpIntegrationFixture) videoSpec(t *testing.T) jobspec.JobSpec {
	t.Helper()

	spec, err := jobspec.Build(entity.MediaKindVideo, "720p HD", fx.cfg.Dir.Downloads)
	if err != nil {
		t.Fatalf("build spec: %v", err)
	}

	return spec
}
