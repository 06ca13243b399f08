// Package entity defines the core entities used in the application.
package entity

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"titan/internal/consts"
	"titan/internal/errs"
)

// MediaKind is the kind of media a download produces.
type MediaKind string

const (
	// MediaKindVideo downloads video merged with audio.
	MediaKindVideo MediaKind = "video"
	// MediaKindAudio downloads audio only and transcodes it.
	MediaKindAudio MediaKind = "audio"
)

// ParseMediaKind accepts "video"/"audio" in any case and the display names "Video (MP4)"/"Audio (MP3)".
func ParseMediaKind(s string) (MediaKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(MediaKindVideo), strings.ToLower(consts.KindVideoDisplay):
		return MediaKindVideo, nil
	case string(MediaKindAudio), strings.ToLower(consts.KindAudioDisplay):
		return MediaKindAudio, nil
	default:
		return "", fmt.Errorf("%w: %q", errs.ErrInvalidMediaKind, s)
	}
}

// DisplayName returns the name stored in the history type column.
func (k MediaKind) DisplayName() string {
	if k == MediaKindAudio {
		return consts.KindAudioDisplay
	}

	return consts.KindVideoDisplay
}

// MimeType returns the content type served for files of this kind.
func (k MediaKind) MimeType() string {
	if k == MediaKindAudio {
		return consts.MimeAudio
	}

	return consts.MimeVideo
}

// HistoryRecord is one logged, completed download.
type HistoryRecord struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Quality string `json:"quality"`
	Type    string `json:"type"`
	Date    string `json:"date"`
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (r HistoryRecord) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("id", r.ID),
		slog.String("title", r.Title),
		slog.String("quality", r.Quality),
		slog.String("type", r.Type),
		slog.String("date", r.Date),
	)
}

// Result describes what the extractor produced.
type Result struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Extractor string `json:"extractor"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Filename  string `json:"filename"` // final path after post-processing
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (r Result) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", r.ID),
		slog.String("title", r.Title),
		slog.String("extractor", r.Extractor),
		slog.String("thumbnail", r.Thumbnail),
		slog.String("filename", r.Filename),
	)
}

// Download is a finished download request.
type Download struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Kind       MediaKind `json:"type"`
	Quality    string    `json:"quality"`
	Result     Result    `json:"result"`
	FileURL    string    `json:"fileUrl"`
	MimeType   string    `json:"mimeType"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (d Download) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", d.ID),
		slog.String("url", d.URL),
		slog.String("type", string(d.Kind)),
		slog.String("quality", d.Quality),
		slog.Any("result", d.Result),
		slog.Duration("elapsed", d.FinishedAt.Sub(d.StartedAt)),
	)
}
