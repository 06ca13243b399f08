package downloader_test

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"testing"

	"titan/internal/downloader"
	"titan/internal/entity"
	"titan/internal/errs"
	"titan/internal/jobspec"
	"titan/pkg/ptr"

	"github.com/lrstanley/go-ytdlp"
)

//go:embed testdata/ytdlp_stdout_video.txt
var ytdlpStdoutVideo string

//go:embed testdata/ytdlp_stdout_audio_no_move.txt
var ytdlpStdoutAudioNoMove string

//go:embed testdata/ytdlp_stdout_noise.txt
var ytdlpStdoutNoise string

func TestParseYtdlpStdout(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		want   []downloader.ResultJSON
	}{
		{
			name:   "json then moved path",
			stdout: ytdlpStdoutVideo,
			want: []downloader.ResultJSON{
				{ID: "dQw4w9WgXcQ", Title: "Never Gonna Give You Up", Filename: "/srv/downloads/Never Gonna Give You Up.mp4"},
			},
		},
		{
			name:   "json only keeps prepared filename",
			stdout: ytdlpStdoutAudioNoMove,
			want: []downloader.ResultJSON{
				{ID: "a1", Title: "Lecture", Filename: "/srv/downloads/Lecture.webm"},
			},
		},
		{
			name:   "multiple entries with blanks and stray lines",
			stdout: ytdlpStdoutNoise,
			want: []downloader.ResultJSON{
				{ID: "one", Title: "First", Filename: "/tmp/first.mp3"},
				{ID: "two", Title: "Second", Filename: "/tmp/second.mp3"},
			},
		},
		{
			name:   "empty",
			stdout: "",
			want:   nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := downloader.ParseYtdlpStdout(tc.stdout)
			if err != nil {
				t.Fatalf("ParseYtdlpStdout() failed: %v", err)
			}

			if len(got) != len(tc.want) {
				t.Fatalf("got %d results, want %d", len(got), len(tc.want))
			}

			for idx, result := range got {
				if result.ID != tc.want[idx].ID {
					t.Errorf("got ID = %q, want %q", result.ID, tc.want[idx].ID)
				}

				if result.Title != tc.want[idx].Title {
					t.Errorf("got Title = %q, want %q", result.Title, tc.want[idx].Title)
				}

				if result.Filename != tc.want[idx].Filename {
					t.Errorf("got Filename = %q, want %q", result.Filename, tc.want[idx].Filename)
				}
			}
		})
	}
}

func mustBuild(t *testing.T, kind entity.MediaKind, label string) jobspec.JobSpec {
	t.Helper()

	spec, err := jobspec.Build(kind, label, "/srv/downloads")
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	return spec
}

func TestComposeResult(t *testing.T) {
	video := mustBuild(t, entity.MediaKindVideo, "1080p Full HD")
	audio := mustBuild(t, entity.MediaKindAudio, "128kbps (Standard)")

	tests := []struct {
		name    string
		info    []*ytdlp.ExtractedInfo
		stdout  string
		spec    jobspec.JobSpec
		want    entity.Result
		wantErr error
	}{
		{
			name:   "video uses moved path",
			stdout: ytdlpStdoutVideo,
			spec:   video,
			want: entity.Result{
				ID:        "dQw4w9WgXcQ",
				Title:     "Never Gonna Give You Up",
				Extractor: "youtube",
				Thumbnail: "https://i.ytimg.com/vi/dQw4w9WgXcQ/maxresdefault.jpg",
				Filename:  "/srv/downloads/Never Gonna Give You Up.mp4",
			},
		},
		{
			name:   "audio maps prepared name to final extension",
			stdout: ytdlpStdoutAudioNoMove,
			spec:   audio,
			want: entity.Result{
				ID:        "a1",
				Title:     "Lecture",
				Extractor: "generic",
				Filename:  "/srv/downloads/Lecture.mp3",
			},
		},
		{
			name: "extracted info fills gaps",
			info: []*ytdlp.ExtractedInfo{{
				ID:        "x9",
				Title:     ptr.Of("From Info"),
				Extractor: ptr.Of("vimeo"),
				Filename:  ptr.Of("/srv/downloads/From Info.m4a"),
			}},
			stdout: "",
			spec:   audio,
			want: entity.Result{
				ID:        "x9",
				Title:     "From Info",
				Extractor: "vimeo",
				Filename:  "/srv/downloads/From Info.mp3",
			},
		},
		{
			name:    "no file reported",
			stdout:  `{"id": "z", "title": "Nothing"}`,
			spec:    video,
			wantErr: errs.ErrNoOutputFile,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := downloader.ComposeResult(tc.info, tc.stdout, tc.spec)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("got error %v, want %v", err, tc.wantErr)
				}

				return
			}

			if err != nil {
				t.Fatalf("ComposeResult() failed: %v", err)
			}

			if *got != tc.want {
				t.Errorf("got %+v, want %+v", *got, tc.want)
			}
		})
	}
}

func TestErrorLines(t *testing.T) {
	stderr := "WARNING: [youtube] something\n" +
		"ERROR: [youtube] dQw4w9WgXcQ: HTTP Error 403: Forbidden\n" +
		"  \n"

	if got, want := downloader.ErrorLines(stderr), "ERROR: [youtube] dQw4w9WgXcQ: HTTP Error 403: Forbidden"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	if got := downloader.ErrorLines("WARNING: only warnings"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: nil, want: "ok"},
		{err: fmt.Errorf("%w: %w", errs.ErrExtractionFailed, context.Canceled), want: "canceled"},
		{err: fmt.Errorf("%w: %w", errs.ErrExtractionFailed, context.DeadlineExceeded), want: "timeout"},
		{err: fmt.Errorf("%w: 403 Forbidden", errs.ErrExtractionFailed), want: "extraction"},
	}

	for _, tc := range tests {
		if got := downloader.Classify(tc.err); got != tc.want {
			t.Errorf("Classify(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
