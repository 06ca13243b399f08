// Package storage manages the download directory: finished files land here, are served from
// here, and are purged before new jobs or once they outlive the retention period.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"titan/internal/errs"
)

const dirPerm = 0o755

// Dir is the download directory.
type Dir struct {
	log       *slog.Logger
	path      string
	retention time.Duration
	now       func() time.Time
}

// New returns a Dir rooted at path. A zero retention disables expiry.
func New(log *slog.Logger, path string, retention time.Duration) *Dir {
	return &Dir{
		log:       log.With(slog.String("package", "storage")),
		path:      path,
		retention: retention,
		now:       time.Now,
	}
}

// Path returns the directory path.
func (d *Dir) Path() string {
	return d.path
}

// Ensure creates the directory if it does not exist.
func (d *Dir) Ensure() error {
	if err := os.MkdirAll(d.path, dirPerm); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}

	return nil
}

// Purge removes every regular file in the directory and returns how many were removed.
// Individual failures are logged and skipped. A missing directory purges nothing.
func (d *Dir) Purge(ctx context.Context) (int, error) {
	return d.removeMatching(ctx, func(fs.FileInfo) bool { return true })
}

// RemoveExpired removes files whose modification time is older than the retention period.
func (d *Dir) RemoveExpired(ctx context.Context) (int, error) {
	if d.retention <= 0 {
		return 0, nil
	}

	cutoff := d.now().Add(-d.retention)

	return d.removeMatching(ctx, func(info fs.FileInfo) bool { return info.ModTime().Before(cutoff) })
}

// RunCleanup removes expired files every interval until ctx is done.
func (d *Dir) RunCleanup(ctx context.Context, interval time.Duration) {
	if d.retention <= 0 || interval <= 0 {
		return
	}

	log := d.log.With(slog.Duration("interval", interval), slog.Duration("retention", d.retention))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := d.RemoveExpired(ctx)
			if err != nil {
				log.ErrorContext(ctx, "remove expired files", slog.Any("error", err))

				continue
			}

			if n > 0 {
				log.InfoContext(ctx, "expired files removed", slog.Int("count", n))
			}
		case <-ctx.Done():
			log.Info("cleanup stopped")

			return
		}
	}
}

// Resolve maps a bare file name to a path inside the directory. Names that would escape the
// directory, and files that do not exist, yield errs.ErrFileNotFound.
func (d *Dir) Resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." || strings.ContainsRune(name, '\\') {
		return "", fmt.Errorf("%w: %q", errs.ErrFileNotFound, name)
	}

	p := filepath.Join(d.path, name)

	info, err := os.Stat(p)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %q", errs.ErrFileNotFound, name)
	}

	return p, nil
}

func (d *Dir) removeMatching(ctx context.Context, match func(fs.FileInfo) bool) (int, error) {
	entries, err := os.ReadDir(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("read download dir: %w", err)
	}

	removed := 0

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		info, err := entry.Info()
		if err != nil || !match(info) {
			continue
		}

		p := filepath.Join(d.path, entry.Name())
		if err := os.Remove(p); err != nil {
			d.log.WarnContext(ctx, "remove file", slog.String("path", p), slog.Any("error", err))

			continue
		}

		removed++
	}

	d.log.DebugContext(ctx, "files removed", slog.String("dir", d.path), slog.Int("count", removed))

	return removed, nil
}
