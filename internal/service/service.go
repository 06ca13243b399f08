// Package service runs the download flow: validate the request, prepare the destination,
// build the job spec, extract, and log the result to history.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"titan/internal/config"
	"titan/internal/consts"
	"titan/internal/downloader"
	"titan/internal/entity"
	"titan/internal/errs"
	"titan/internal/history"
	"titan/internal/jobspec"
	"titan/internal/observability"
	"titan/pkg/urls"

	"github.com/google/uuid"
)

// FilesRoute is the path prefix finished files are served under.
const FilesRoute = "/v1/files/"

// Destination is the directory downloads are written to.
type Destination interface {
	Path() string
	Ensure() error
	Purge(ctx context.Context) (int, error)
	Resolve(name string) (string, error)
}

// DownloadRequest is a user's download request.
type DownloadRequest struct {
	URL     string
	Type    string
	Quality string // empty selects the catalog default for Type
}

// Outcome is the single result of a submitted extraction.
type Outcome struct {
	Result *entity.Result
	Err    error
}

// Service coordinates downloads and history.
type Service struct {
	log       *slog.Logger
	cfg       *config.Config
	catalog   *jobspec.Catalog
	builder   jobspec.Builder
	extractor downloader.Extractor
	history   history.Recorder
	dest      Destination
	metrics   *observability.Metrics
	now       func() time.Time

	busy sync.Mutex
}

// New creates a service.
func New(
	log *slog.Logger,
	cfg *config.Config,
	catalog *jobspec.Catalog,
	extractor downloader.Extractor,
	recorder history.Recorder,
	dest Destination,
	metrics *observability.Metrics,
) *Service {
	return &Service{
		log:       log.With(slog.String("package", "service")),
		cfg:       cfg,
		catalog:   catalog,
		builder:   jobspec.Builder{FilenameTemplate: cfg.Dir.FilenameTemplate},
		extractor: extractor,
		history:   recorder,
		dest:      dest,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Catalog returns the offered quality labels.
func (s *Service) Catalog() *jobspec.Catalog {
	return s.catalog
}

// Download runs one download end to end. Only one download runs at a time; a concurrent call
// gets errs.ErrJobInProgress. When extraction succeeds but the history append fails, the
// download is returned together with an error wrapping errs.ErrHistoryAppend.
func (s *Service) Download(ctx context.Context, req DownloadRequest) (*entity.Download, error) {
	rawURL, kind, label, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	log := s.log.With(slog.String("url", rawURL), slog.String("type", string(kind)), slog.String("quality", label))

	if !s.busy.TryLock() {
		s.metrics.RecordDownloadRejected(string(kind), "busy")

		return nil, errs.ErrJobInProgress
	}
	defer s.busy.Unlock()

	if err := s.dest.Ensure(); err != nil {
		return nil, fmt.Errorf("prepare destination: %w", err)
	}

	if s.cfg.Dir.PurgeBeforeJob {
		n, err := s.dest.Purge(ctx)
		if err != nil {
			log.WarnContext(ctx, "purge before job", slog.Any("error", err))
		}

		s.metrics.RecordPurge(observability.PurgeBeforeJob, n)
	}

	spec, err := s.builder.Build(kind, label, s.dest.Path())
	if err != nil {
		return nil, fmt.Errorf("build job spec: %w", err)
	}

	started := s.now()

	out := <-s.Submit(ctx, rawURL, spec)
	if out.Err != nil {
		log.ErrorContext(ctx, "extraction failed", slog.Any("error", out.Err))

		if errors.Is(out.Err, context.Canceled) {
			return nil, fmt.Errorf("%w: %w", errs.ErrJobCancelled, out.Err)
		}

		return nil, out.Err
	}

	download := &entity.Download{
		ID:         uuid.NewString(),
		URL:        rawURL,
		Kind:       kind,
		Quality:    label,
		Result:     *out.Result,
		FileURL:    FilesRoute + url.PathEscape(filepath.Base(out.Result.Filename)),
		MimeType:   kind.MimeType(),
		StartedAt:  started,
		FinishedAt: s.now(),
	}

	if info, err := os.Stat(out.Result.Filename); err == nil {
		s.metrics.RecordDownloadBytes(info.Size())
	}

	title := out.Result.Title
	if title == "" {
		title = consts.DefaultTitle
	}

	// the file exists at this point, so a client that went away must not lose the record
	err = s.history.Append(context.WithoutCancel(ctx), title, label, kind)
	s.metrics.RecordHistoryAppend(err)

	if err != nil {
		log.ErrorContext(ctx, "history append", slog.Any("error", err), slog.Any("download", download))

		return download, fmt.Errorf("%w: %w", errs.ErrHistoryAppend, err)
	}

	log.InfoContext(ctx, "download finished", slog.Any("download", download))

	return download, nil
}

// Submit runs one extraction bounded by the configured job timeout and delivers exactly one
// outcome on the returned channel. Cancelling ctx aborts the extraction.
func (s *Service) Submit(ctx context.Context, rawURL string, spec jobspec.JobSpec) <-chan Outcome {
	out := make(chan Outcome, 1)

	go func() {
		jobCtx, cancel := s.jobContext(ctx)
		defer cancel()

		finish := s.metrics.DownloadStarted(string(spec.Kind))

		inner := make(chan Outcome, 1)

		go func() {
			res, err := s.extractor.Extract(jobCtx, rawURL, spec)
			if err == nil && res == nil {
				err = errors.Join(errs.ErrExtractionFailed, errs.ErrNoOutputFile)
			}

			inner <- Outcome{Result: res, Err: err}
		}()

		var outcome Outcome

		select {
		case outcome = <-inner:
		case <-jobCtx.Done():
			outcome = Outcome{Err: fmt.Errorf("%w: %w", errs.ErrExtractionFailed, jobCtx.Err())}
		}

		finish(downloader.Classify(outcome.Err))

		out <- outcome
	}()

	return out
}

func (s *Service) jobContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Job.Timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, s.cfg.Job.Timeout)
}

// History lists logged downloads, most recent first. An unavailable store reads as empty.
func (s *Service) History(ctx context.Context) ([]entity.HistoryRecord, error) {
	records, err := s.history.ListAll(ctx)
	if errors.Is(err, errs.ErrStorageUnavailable) {
		s.log.WarnContext(ctx, "history unavailable, showing empty list", slog.Any("error", err))

		return []entity.HistoryRecord{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	return records, nil
}

// WipeHistory deletes the whole history store and recreates it empty.
func (s *Service) WipeHistory(ctx context.Context) error {
	if err := s.history.Wipe(ctx); err != nil {
		return fmt.Errorf("wipe history: %w", err)
	}

	s.metrics.RecordHistoryWipe()

	if err := s.history.Initialize(ctx); err != nil {
		return fmt.Errorf("reinitialize history: %w", err)
	}

	return nil
}

// PurgeDownloads removes every file in the download directory.
func (s *Service) PurgeDownloads(ctx context.Context) (int, error) {
	n, err := s.dest.Purge(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge downloads: %w", err)
	}

	s.metrics.RecordPurge(observability.PurgeManual, n)
	s.log.InfoContext(ctx, "downloads purged", slog.Int("count", n))

	return n, nil
}

// File resolves a served file name to its path in the download directory.
func (s *Service) File(name string) (string, error) {
	return s.dest.Resolve(name)
}

func (s *Service) validate(req DownloadRequest) (string, entity.MediaKind, string, error) {
	rawURL := urls.Normalize(urls.FixURL(req.URL))
	if !urls.IsURLValid(rawURL) {
		return "", "", "", fmt.Errorf("%w: %q", errs.ErrInvalidURL, req.URL)
	}

	kind, err := entity.ParseMediaKind(req.Type)
	if err != nil {
		return "", "", "", err
	}

	label := req.Quality
	if label == "" {
		label = s.catalog.Default(kind)
	}

	if !s.catalog.Contains(kind, label) {
		return "", "", "", fmt.Errorf("%w: %q is not offered for %s", errs.ErrInvalidQualityLabel, label, kind)
	}

	return rawURL, kind, label, nil
}
