// Package history keeps the durable log of completed downloads in a single SQLite table.
//
// Every operation opens the database, acts and closes it again. No connection or cache is
// held between calls, so wiping the file never races with a long-lived handle.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"titan/internal/consts"
	"titan/internal/entity"
	"titan/internal/errs"

	// SQLite driver for database/sql
	_ "github.com/mattn/go-sqlite3"
)

const schema = `CREATE TABLE IF NOT EXISTS downloads
	(id INTEGER PRIMARY KEY AUTOINCREMENT, title TEXT, quality TEXT, type TEXT, date TEXT)`

const busyTimeoutMs = 5000

// sidecars are removed together with the database file.
var sidecars = []string{"-journal", "-wal", "-shm"}

// Recorder is the part of the store the download flow depends on.
type Recorder interface {
	Initialize(ctx context.Context) error
	Append(ctx context.Context, title, quality string, kind entity.MediaKind) error
	ListAll(ctx context.Context) ([]entity.HistoryRecord, error)
	Wipe(ctx context.Context) error
}

// Store is the SQLite-backed history store.
type Store struct {
	log    *slog.Logger
	dbPath string
	now    func() time.Time

	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp appended records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a store for the database at dbPath. Nothing is opened until the first call.
func New(log *slog.Logger, dbPath string, opts ...Option) *Store {
	s := &Store{
		log:    log.With(slog.String("package", "history")),
		dbPath: dbPath,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Initialize creates the database file, its parent directory and the table if any are absent.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := s.open(ctx, "rwc")
	if err != nil {
		return err
	}
	defer s.close(db)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create history table: %w", err)
	}

	s.log.DebugContext(ctx, "history initialized", slog.String("path", s.dbPath))

	return nil
}

// Append logs one completed download stamped with the current time.
func (s *Store) Append(ctx context.Context, title, quality string, kind entity.MediaKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.open(ctx, "rw")
	if err != nil {
		return err
	}
	defer s.close(db)

	date := s.now().Format(consts.HistoryDateLayout)

	res, err := db.ExecContext(ctx,
		"INSERT INTO downloads (title, quality, type, date) VALUES (?, ?, ?, ?)",
		title, quality, kind.DisplayName(), date)
	if err != nil {
		return fmt.Errorf("%w: insert: %w", errs.ErrStorageUnavailable, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		s.log.WarnContext(ctx, "history record id unavailable", slog.Any("error", err))
	}

	s.log.InfoContext(ctx, "history record appended", slog.Any("record", entity.HistoryRecord{
		ID:      id,
		Title:   title,
		Quality: quality,
		Type:    kind.DisplayName(),
		Date:    date,
	}))

	return nil
}

// ListAll returns every record, most recent first. It does not create a missing store:
// an absent file or table is reported as errs.ErrStorageUnavailable.
func (s *Store) ListAll(ctx context.Context) ([]entity.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.open(ctx, "rw")
	if err != nil {
		return nil, err
	}
	defer s.close(db)

	rows, err := db.QueryContext(ctx, "SELECT id, title, quality, type, date FROM downloads ORDER BY id DESC")
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", errs.ErrStorageUnavailable, err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			s.log.ErrorContext(ctx, "close rows", slog.Any("error", err))
		}
	}()

	records := make([]entity.HistoryRecord, 0)

	for rows.Next() {
		var rec entity.HistoryRecord

		var title, quality, typ, date sql.NullString

		if err := rows.Scan(&rec.ID, &title, &quality, &typ, &date); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}

		rec.Title = title.String
		rec.Quality = quality.String
		rec.Type = typ.String
		rec.Date = date.String

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}

	return records, nil
}

// Wipe deletes the whole database file. A missing file is not an error.
func (s *Store) Wipe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.dbPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove history db: %w", err)
	}

	for _, suffix := range sidecars {
		if err := os.Remove(s.dbPath + suffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove history db%s: %w", suffix, err)
		}
	}

	s.log.InfoContext(ctx, "history wiped", slog.String("path", s.dbPath))

	return nil
}

// open connects with the given sqlite open mode: "rw" never creates the file, "rwc" does.
func (s *Store) open(ctx context.Context, mode string) (*sql.DB, error) {
	dsn, err := fileDSN(s.dbPath, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrStorageUnavailable, err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %w", errs.ErrStorageUnavailable, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("%w: ping: %w", errs.ErrStorageUnavailable, err)
	}

	return db, nil
}

// fileDSN renders path as a sqlite URI, escaping '#', '?' and '%' so they stay part of the file name.
func fileDSN(path, mode string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve history db path: %w", err)
	}

	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	u := url.URL{
		Scheme: "file",
		Path:   p,
		RawQuery: url.Values{
			"mode":          {mode},
			"_busy_timeout": {strconv.Itoa(busyTimeoutMs)},
		}.Encode(),
	}

	return u.String(), nil
}

func (s *Store) close(db *sql.DB) {
	if err := db.Close(); err != nil {
		s.log.Error("close history db", slog.Any("error", err))
	}
}
