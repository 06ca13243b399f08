package downloader

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"titan/internal/consts"
	"titan/internal/entity"
	"titan/internal/errs"
	"titan/internal/jobspec"

	"github.com/google/uuid"
)

const mockSteps = 10

// Mock pretends to extract: it waits, logs progress and writes a small file.
type Mock struct {
	log      *slog.Logger
	simulate time.Duration
	failWith string
}

// MockOption configures a Mock.
type MockOption func(*Mock)

// WithSimulateTime sets how long a fake extraction takes.
func WithSimulateTime(d time.Duration) MockOption {
	return func(m *Mock) { m.simulate = d }
}

// WithFailure makes every extraction fail with msg.
func WithFailure(msg string) MockOption {
	return func(m *Mock) { m.failWith = msg }
}

// NewMock creates a mock extractor.
func NewMock(log *slog.Logger, opts ...MockOption) *Mock {
	m := &Mock{
		log:      log.With(slog.String("package", "downloader"), slog.String("downloader", consts.DownloaderMock)),
		simulate: consts.DefaultSimulateTime,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Extract implements Extractor.
func (m *Mock) Extract(ctx context.Context, rawURL string, spec jobspec.JobSpec) (*entity.Result, error) {
	log := m.log.With(slog.String("url", rawURL), slog.Any("spec", spec))

	err := simulateDownload(ctx, m.simulate, func(progress int) {
		log.DebugContext(ctx, "mock progress", slog.Int("progress", progress))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrExtractionFailed, err)
	}

	if m.failWith != "" {
		log.ErrorContext(ctx, "mock failure", slog.String("error", m.failWith))

		return nil, fmt.Errorf("%w: %s", errs.ErrExtractionFailed, m.failWith)
	}

	title := mockTitle(rawURL)

	ext := spec.MergeContainer
	if ext == "" {
		ext = "webm"
	}

	prepared := filepath.Join(filepath.Dir(spec.OutputTemplate), title+"."+ext)
	final := spec.ResolveOutputPath(prepared)

	if err := os.WriteFile(final, []byte("mock media: "+rawURL), 0o644); err != nil {
		return nil, fmt.Errorf("%w: write file: %w", errs.ErrExtractionFailed, err)
	}

	result := &entity.Result{
		ID:        uuid.NewSHA1(uuid.NameSpaceURL, []byte(rawURL)).String(),
		Title:     title,
		Extractor: consts.DownloaderMock,
		Filename:  final,
	}

	log.InfoContext(ctx, "mock extraction done", slog.Any("result", *result))

	return result, nil
}

// mockTitle derives a file-safe title from the last URL path segment.
func mockTitle(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return consts.DefaultTitle
	}

	base := strings.Trim(path.Base(u.Path), "/.")
	if base == "" {
		base = u.Hostname()
	}

	if base == "" {
		return consts.DefaultTitle
	}

	return "mock-" + base
}

func simulateDownload(ctx context.Context, duration time.Duration, progressFn func(progress int)) error {
	if duration <= 0 {
		progressFn(100)

		return ctx.Err()
	}

	ticker := time.NewTicker(duration / mockSteps)
	defer ticker.Stop()

	for step := 1; step <= mockSteps; step++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			progressFn(step * (100 / mockSteps))
		}
	}

	return nil
}
