package downloader

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"titan/pkg/calc"
	"titan/pkg/shellquote"

	"github.com/lrstanley/go-ytdlp"
)

// Result wraps ytdlp.Result for custom logging.
type Result struct {
	*ytdlp.Result
}

// LogValue implements the slog.LogValuer interface for custom logging of Result.
func (r Result) LogValue() slog.Value {
	if r.Result == nil {
		return slog.GroupValue(slog.String("error", "nil result"))
	}

	return slog.GroupValue(
		slog.String("command", shellquote.Join(r.Executable, r.Args...)),
		slog.Int("exit_code", r.ExitCode),
		slog.String("stderr", strings.TrimSpace(r.Stderr)),
	)
}

// ProgressUpdate wraps ytdlp.ProgressUpdate for custom logging.
type ProgressUpdate struct {
	*ytdlp.ProgressUpdate
}

// LogValue implements the slog.LogValuer interface for custom logging of ProgressUpdate.
func (p ProgressUpdate) LogValue() slog.Value {
	if p.ProgressUpdate == nil {
		return slog.GroupValue(slog.String("error", "nil progress update"))
	}

	return slog.GroupValue(
		slog.String("filename", p.Filename),
		slog.String("status", fmt.Sprintf("%v", p.Status)),
		slog.Int("downloaded_bytes", p.DownloadedBytes),
		slog.Int("total_bytes", p.TotalBytes),
		slog.Int("fragment_index", p.FragmentIndex),
		slog.Int("fragment_count", p.FragmentCount),
		slog.Int("progress", calc.Progress(p.DownloadedBytes, p.TotalBytes)),
		slog.String("eta", calc.ETA(p.DownloadedBytes, p.TotalBytes, time.Since(p.Started)).String()),
	)
}

// ResultJSON is the subset of yt-dlp's per-entry JSON the adapter reads.
type ResultJSON struct {
	Type       string `json:"_type"`
	ID         string `json:"id"`
	Title      string `json:"title"`
	Extractor  string `json:"extractor"`
	Thumbnail  string `json:"thumbnail"`
	WebpageURL string `json:"webpage_url"`
	Ext        string `json:"ext"`
	// Filename is the prepared name from the JSON, replaced by the moved path when one is printed.
	Filename string `json:"filename"`
}
