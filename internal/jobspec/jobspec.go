// Package jobspec turns a media kind and a human-readable quality label into a fully
// specified yt-dlp job: selection policy, output template and post-processing.
//
// Building a spec is pure. The only failure is a quality label that does not follow
// the "<N>p ..." / "<A> / <N>p ..." (video) or "<N>kbps (...)" (audio) patterns.
package jobspec

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"titan/internal/consts"
	"titan/internal/entity"
	"titan/internal/errs"
)

// DefaultFilenameTemplate names files after the source title and extension.
const DefaultFilenameTemplate = "%(title)s.%(ext)s"

// dualNotationSep separates the marketing name from the resolution, e.g. "4K / 2160p".
const dualNotationSep = " / "

// JobSpec is the resolved description of one retrieval and optional transcode.
type JobSpec struct {
	Kind           entity.MediaKind
	QualityLabel   string
	Format         string // yt-dlp format selector
	OutputTemplate string

	// video
	MaxHeight      int
	MergeContainer string

	// audio
	BitrateKbps int
	AudioCodec  string
	FinalExt    string
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (s JobSpec) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", string(s.Kind)),
		slog.String("quality", s.QualityLabel),
		slog.String("format", s.Format),
		slog.String("output", s.OutputTemplate),
		slog.Int("max_height", s.MaxHeight),
		slog.String("merge_container", s.MergeContainer),
		slog.Int("bitrate_kbps", s.BitrateKbps),
		slog.String("audio_codec", s.AudioCodec),
		slog.String("final_ext", s.FinalExt),
	)
}

// AudioQuality returns the --audio-quality value, e.g. "320K". Empty for video jobs.
func (s JobSpec) AudioQuality() string {
	if s.BitrateKbps <= 0 {
		return ""
	}

	return strconv.Itoa(s.BitrateKbps) + "K"
}

// ResolveOutputPath maps the filename the extractor prepared to the file that exists after
// post-processing. Audio extraction renames the container, so the extension is replaced.
func (s JobSpec) ResolveOutputPath(prepared string) string {
	if s.FinalExt == "" || prepared == "" {
		return prepared
	}

	return strings.TrimSuffix(prepared, filepath.Ext(prepared)) + "." + s.FinalExt
}

// Builder builds job specs with a configurable filename template.
type Builder struct {
	FilenameTemplate string
}

// Build builds a job spec using DefaultFilenameTemplate.
func Build(kind entity.MediaKind, qualityLabel, destinationDir string) (JobSpec, error) {
	return Builder{}.Build(kind, qualityLabel, destinationDir)
}

// Build maps (kind, label, destination) to a job spec.
func (b Builder) Build(kind entity.MediaKind, qualityLabel, destinationDir string) (JobSpec, error) {
	tmpl := b.FilenameTemplate
	if tmpl == "" {
		tmpl = DefaultFilenameTemplate
	}

	spec := JobSpec{
		Kind:           kind,
		QualityLabel:   qualityLabel,
		OutputTemplate: filepath.Join(destinationDir, tmpl),
	}

	switch kind {
	case entity.MediaKindVideo:
		height, err := ParseResolution(qualityLabel)
		if err != nil {
			return JobSpec{}, err
		}

		spec.MaxHeight = height
		spec.Format = VideoFormat(height)
		spec.MergeContainer = consts.MergeContainerVideo
	case entity.MediaKindAudio:
		bitrate, err := ParseBitrate(qualityLabel)
		if err != nil {
			return JobSpec{}, err
		}

		spec.BitrateKbps = bitrate
		spec.Format = AudioFormat
		spec.AudioCodec = consts.AudioCodec
		spec.FinalExt = consts.AudioExt
	default:
		return JobSpec{}, fmt.Errorf("%w: %q", errs.ErrInvalidMediaKind, kind)
	}

	return spec, nil
}

// AudioFormat prefers an audio-only stream and falls back to the best overall stream.
const AudioFormat = "bestaudio/best"

// VideoFormat returns the three-tier selector: separate video at or below the bound plus best
// audio, then the best combined stream at or below the bound, then the best stream at all.
// Stream catalogs differ per source and title, so every tier is needed.
func VideoFormat(maxHeight int) string {
	return fmt.Sprintf("bestvideo[height<=%d]+bestaudio/best[height<=%d]/best", maxHeight, maxHeight)
}

// ParseResolution extracts the vertical resolution bound from a video label.
// "1080p Full HD" => 1080, "4K / 2160p Ultra HD" => 2160.
func ParseResolution(label string) (int, error) {
	s := strings.TrimSpace(label)
	if _, after, ok := strings.Cut(s, dualNotationSep); ok {
		s = strings.TrimSpace(after)
	}

	return parseLeadingNumber(label, s, "p")
}

// ParseBitrate extracts the target bitrate in kbps from an audio label.
// "320kbps (Pro)" => 320.
func ParseBitrate(label string) (int, error) {
	return parseLeadingNumber(label, strings.TrimSpace(label), "k")
}

func parseLeadingNumber(label, s, unit string) (int, error) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}

	if end == 0 || !strings.HasPrefix(s[end:], unit) {
		return 0, fmt.Errorf("%w: %q", errs.ErrInvalidQualityLabel, label)
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", errs.ErrInvalidQualityLabel, label)
	}

	return n, nil
}
