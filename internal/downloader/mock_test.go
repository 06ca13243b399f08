package downloader_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/synctest"
	"time"

	"titan/internal/downloader"
	"titan/internal/entity"
	"titan/internal/errs"
	"titan/internal/jobspec"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestMockExtract(t *testing.T) {
	tests := []struct {
		name     string
		kind     entity.MediaKind
		label    string
		wantBase string
	}{
		{name: "video", kind: entity.MediaKindVideo, label: "720p HD", wantBase: "mock-clip.mp4"},
		{name: "audio", kind: entity.MediaKindAudio, label: "320kbps (Pro)", wantBase: "mock-clip.mp3"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				dir := t.TempDir()

				spec, err := jobspec.Build(tc.kind, tc.label, dir)
				if err != nil {
					t.Fatalf("Build() failed: %v", err)
				}

				m := downloader.NewMock(discard, downloader.WithSimulateTime(time.Second))

				start := time.Now()

				res, err := m.Extract(t.Context(), "https://media.example/v/clip", spec)
				if err != nil {
					t.Fatalf("Extract() failed: %v", err)
				}

				if elapsed := time.Since(start); elapsed != time.Second {
					t.Errorf("extraction took %v, want 1s", elapsed)
				}

				if res.Filename != filepath.Join(dir, tc.wantBase) {
					t.Errorf("got filename %q, want %q", res.Filename, filepath.Join(dir, tc.wantBase))
				}

				if _, err := os.Stat(res.Filename); err != nil {
					t.Errorf("file not written: %v", err)
				}

				if res.Title != "mock-clip" || res.ID == "" {
					t.Errorf("unexpected result %+v", res)
				}
			})
		})
	}
}

func TestMockFailure(t *testing.T) {
	dir := t.TempDir()

	spec, err := jobspec.Build(entity.MediaKindVideo, "480p SD", dir)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	m := downloader.NewMock(discard, downloader.WithSimulateTime(0), downloader.WithFailure("HTTP Error 403: Forbidden"))

	_, err = m.Extract(t.Context(), "https://media.example/v/clip", spec)
	if !errors.Is(err, errs.ErrExtractionFailed) {
		t.Fatalf("got %v, want ErrExtractionFailed", err)
	}

	if !strings.Contains(err.Error(), "HTTP Error 403: Forbidden") {
		t.Errorf("error %q lost the original message", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("failed extraction wrote files: %v", entries)
	}
}

func TestMockCancel(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		spec, err := jobspec.Build(entity.MediaKindVideo, "480p SD", t.TempDir())
		if err != nil {
			t.Fatalf("Build() failed: %v", err)
		}

		m := downloader.NewMock(discard, downloader.WithSimulateTime(time.Minute))

		ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
		defer cancel()

		_, err = m.Extract(ctx, "https://media.example/v/clip", spec)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("got %v, want deadline exceeded", err)
		}

		if downloader.Classify(err) != "timeout" {
			t.Errorf("Classify() = %q, want timeout", downloader.Classify(err))
		}
	})
}
