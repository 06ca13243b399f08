package history_test

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"titan/internal/entity"
	"titan/internal/errs"
	"titan/internal/history"
)

func newStore(t *testing.T, opts ...history.Option) *history.Store {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return history.New(log, filepath.Join(t.TempDir(), "vault", "titan_vault.db"), opts...)
}

func TestInitializeIdempotent(t *testing.T) {
	ctx := t.Context()
	store := newStore(t)

	for range 3 {
		if err := store.Initialize(ctx); err != nil {
			t.Fatalf("Initialize() failed: %v", err)
		}
	}

	if _, err := os.Stat(store.Path()); err != nil {
		t.Fatalf("database file not created: %v", err)
	}

	if err := store.Append(ctx, "a", "720p HD", entity.MediaKindVideo); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	if err := store.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}

	records, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() failed: %v", err)
	}

	if len(records) != 1 {
		t.Errorf("initialize must keep existing rows, got %d", len(records))
	}
}

func TestListAllEmpty(t *testing.T) {
	ctx := t.Context()
	store := newStore(t)

	if err := store.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}

	records, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() failed: %v", err)
	}

	if records == nil || len(records) != 0 {
		t.Errorf("got %#v, want empty non-nil slice", records)
	}
}

func TestAppendOrdering(t *testing.T) {
	ctx := t.Context()
	store := newStore(t)

	if err := store.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}

	const n = 7
	for i := range n {
		kind := entity.MediaKindVideo
		if i%2 == 1 {
			kind = entity.MediaKindAudio
		}

		if err := store.Append(ctx, fmt.Sprintf("title-%d", i), "720p HD", kind); err != nil {
			t.Fatalf("Append(%d) failed: %v", i, err)
		}
	}

	records, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() failed: %v", err)
	}

	if len(records) != n {
		t.Fatalf("got %d records, want %d", len(records), n)
	}

	for i, rec := range records {
		want := fmt.Sprintf("title-%d", n-1-i)
		if rec.Title != want {
			t.Errorf("records[%d].Title = %q, want %q", i, rec.Title, want)
		}

		if i > 0 && rec.ID >= records[i-1].ID {
			t.Errorf("ids not strictly decreasing: %d after %d", rec.ID, records[i-1].ID)
		}
	}

	if records[0].Type != "Video (MP4)" || records[1].Type != "Audio (MP3)" {
		t.Errorf("unexpected type column: %q, %q", records[0].Type, records[1].Type)
	}
}

func TestAppendRecordFields(t *testing.T) {
	ctx := t.Context()
	clock := func() time.Time { return time.Date(2024, time.March, 5, 9, 7, 0, 0, time.Local) }
	store := newStore(t, history.WithClock(clock))

	if err := store.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}

	if err := store.Append(ctx, "Concert", "4K / 2160p Ultra HD", entity.MediaKindVideo); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	records, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() failed: %v", err)
	}

	want := entity.HistoryRecord{
		ID:      1,
		Title:   "Concert",
		Quality: "4K / 2160p Ultra HD",
		Type:    "Video (MP4)",
		Date:    "05 Mar, 09:07",
	}

	if len(records) != 1 || records[0] != want {
		t.Errorf("got %+v, want %+v", records, want)
	}
}

func TestWipe(t *testing.T) {
	ctx := t.Context()
	store := newStore(t)

	if err := store.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}

	for i := range 3 {
		if err := store.Append(ctx, fmt.Sprint(i), "128kbps (Standard)", entity.MediaKindAudio); err != nil {
			t.Fatalf("Append() failed: %v", err)
		}
	}

	if err := store.Wipe(ctx); err != nil {
		t.Fatalf("Wipe() failed: %v", err)
	}

	if _, err := os.Stat(store.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("database file still present: %v", err)
	}

	if _, err := store.ListAll(ctx); !errors.Is(err, errs.ErrStorageUnavailable) {
		t.Errorf("ListAll() after wipe: got %v, want ErrStorageUnavailable", err)
	}

	if err := store.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}

	records, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() failed: %v", err)
	}

	if len(records) != 0 {
		t.Errorf("got %d records after wipe, want 0", len(records))
	}

	if err := store.Append(ctx, "fresh", "480p SD", entity.MediaKindVideo); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	records, err = store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() failed: %v", err)
	}

	if len(records) != 1 || records[0].ID != 1 {
		t.Errorf("ids must restart after wipe, got %+v", records)
	}
}

func TestWipeWithURIMetacharactersInPath(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	for _, dir := range []string{"vault#1", "vault?mode=memory", "vault%20x"} {
		t.Run(dir, func(t *testing.T) {
			ctx := t.Context()
			store := history.New(log, filepath.Join(t.TempDir(), dir, "titan.db"))

			if err := store.Initialize(ctx); err != nil {
				t.Fatalf("Initialize() failed: %v", err)
			}

			if _, err := os.Stat(store.Path()); err != nil {
				t.Fatalf("database not created at %q: %v", store.Path(), err)
			}

			if err := store.Append(ctx, "a", "720p HD", entity.MediaKindVideo); err != nil {
				t.Fatalf("Append() failed: %v", err)
			}

			if err := store.Wipe(ctx); err != nil {
				t.Fatalf("Wipe() failed: %v", err)
			}

			if err := store.Initialize(ctx); err != nil {
				t.Fatalf("Initialize() failed: %v", err)
			}

			records, err := store.ListAll(ctx)
			if err != nil {
				t.Fatalf("ListAll() failed: %v", err)
			}

			if len(records) != 0 {
				t.Errorf("got %d records after wipe, want 0", len(records))
			}
		})
	}
}

func TestWipeMissingIsNoop(t *testing.T) {
	store := newStore(t)

	if err := store.Wipe(t.Context()); err != nil {
		t.Fatalf("Wipe() on missing store failed: %v", err)
	}
}

func TestUnavailableStore(t *testing.T) {
	ctx := t.Context()

	t.Run("missing file", func(t *testing.T) {
		store := newStore(t)

		if _, err := store.ListAll(ctx); !errors.Is(err, errs.ErrStorageUnavailable) {
			t.Errorf("ListAll(): got %v, want ErrStorageUnavailable", err)
		}

		if err := store.Append(ctx, "x", "720p HD", entity.MediaKindVideo); !errors.Is(err, errs.ErrStorageUnavailable) {
			t.Errorf("Append(): got %v, want ErrStorageUnavailable", err)
		}

		if _, err := os.Stat(store.Path()); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("file must not be created implicitly: %v", err)
		}
	})

	t.Run("missing table", func(t *testing.T) {
		store := newStore(t)

		if err := os.MkdirAll(filepath.Dir(store.Path()), 0o755); err != nil {
			t.Fatal(err)
		}

		if err := os.WriteFile(store.Path(), nil, 0o644); err != nil {
			t.Fatal(err)
		}

		if _, err := store.ListAll(ctx); !errors.Is(err, errs.ErrStorageUnavailable) {
			t.Errorf("ListAll(): got %v, want ErrStorageUnavailable", err)
		}

		if err := store.Append(ctx, "x", "720p HD", entity.MediaKindVideo); !errors.Is(err, errs.ErrStorageUnavailable) {
			t.Errorf("Append(): got %v, want ErrStorageUnavailable", err)
		}
	})
}
