package downloader

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"titan/internal/config"
	"titan/internal/consts"
	"titan/internal/depmanager"
	"titan/internal/entity"
	"titan/internal/errs"
	"titan/internal/jobspec"
	"titan/pkg/ptr"

	"github.com/lrstanley/go-ytdlp"
)

var (
	maxJSONSize = 10 * 1024 * 1024                                       // 10 MiB scanner buffer
	bufSize     = 4096                                                   // 4 KiB buffer size
	reFilepath  = regexp.MustCompile(`(?i)^[^\{\[\n].*\.[a-z0-9]{1,6}$`) // file path

	// changing this may break ParseYtdlpStdout().
	defaultPrintAfterMove = "after_move:filepath"
)

// ProxyPicker hands out an egress proxy, "" meaning direct.
type ProxyPicker interface {
	GetProxy(ctx context.Context) (string, error)
}

// BinaryResolver resolves the path of an external tool, "" meaning unresolved.
type BinaryResolver interface {
	Path(tool depmanager.Tool) string
}

// YTdlp extracts media with the yt-dlp executable.
type YTdlp struct {
	log     *slog.Logger
	cfg     *config.Config
	bins    BinaryResolver
	proxies ProxyPicker
}

// NewYTdlp creates a yt-dlp extractor. bins and proxies may be nil.
func NewYTdlp(log *slog.Logger, cfg *config.Config, bins BinaryResolver, proxies ProxyPicker) *YTdlp {
	return &YTdlp{
		log:     log.With(slog.String("package", "downloader"), slog.String("downloader", consts.DownloaderYTdlp)),
		cfg:     cfg,
		bins:    bins,
		proxies: proxies,
	}
}

// Extract runs yt-dlp for one URL. Errors wrap errs.ErrExtractionFailed and carry yt-dlp's own message.
func (d *YTdlp) Extract(ctx context.Context, url string, spec jobspec.JobSpec) (*entity.Result, error) {
	log := d.log.With(slog.String("url", url), slog.Any("spec", spec))

	command := d.command(ctx, log, spec)

	res, err := command.Run(ctx, url)
	if err != nil {
		log.ErrorContext(ctx, "ytdlp run", slog.Any("error", err), slog.Any("result", Result{res}))

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrExtractionFailed, ctxErr)
		}

		return nil, fmt.Errorf("%w: %s", errs.ErrExtractionFailed, failureMessage(res, err))
	}

	info, err := res.GetExtractedInfo()
	if err != nil {
		log.WarnContext(ctx, "ytdlp get extracted info", slog.Any("error", err))
	}

	result, err := ComposeResult(info, res.Stdout, spec)
	if err != nil {
		return nil, fmt.Errorf("compose result: %w", err)
	}

	log.InfoContext(ctx, "extraction done", slog.Any("result", *result))

	return result, nil
}

func (d *YTdlp) command(ctx context.Context, log *slog.Logger, spec jobspec.JobSpec) *ytdlp.Command {
	progressFn := func(prog ytdlp.ProgressUpdate) {
		log.DebugContext(ctx, "ytdlp progress", slog.Any("progress_update", ProgressUpdate{&prog}))
	}

	command := ytdlp.New().
		Format(spec.Format).
		Output(spec.OutputTemplate).
		NoPlaylist().
		Quiet().
		NoWarnings().
		AddHeaders("User-Agent:"+d.cfg.Job.UserAgent).
		CacheDir(d.cfg.Dir.Cache).
		ProgressFunc(defaultProgressFreq, progressFn).
		PrintJSON().
		Print(defaultPrintAfterMove)

	if spec.MergeContainer != "" {
		command = command.MergeOutputFormat(spec.MergeContainer)
	}

	if spec.AudioCodec != "" {
		command = command.ExtractAudio().AudioFormat(spec.AudioCodec).AudioQuality(spec.AudioQuality())
	}

	if cookies := d.cfg.Dir.CookieFile; cookies != "" {
		if _, err := os.Stat(cookies); err == nil {
			command = command.Cookies(cookies)
		} else {
			log.DebugContext(ctx, "cookie file not used", slog.String("path", cookies), slog.Any("error", err))
		}
	}

	if d.proxies != nil {
		proxyURL, err := d.proxies.GetProxy(ctx)
		if err != nil {
			log.WarnContext(ctx, "no healthy proxy, going direct", slog.Any("error", err))
		} else if proxyURL != "" {
			command = command.Proxy(proxyURL)
		}
	}

	if d.bins != nil {
		if p := d.bins.Path(depmanager.ToolYTdlp); p != "" {
			command = command.SetExecutable(p)
		}

		if p := d.bins.Path(depmanager.ToolFFmpeg); p != "" {
			command = command.FFmpegLocation(p)
		}
	}

	return command
}

// failureMessage prefers yt-dlp's own "ERROR:" lines over the exit status.
func failureMessage(res *ytdlp.Result, runErr error) string {
	if res != nil {
		if msg := ErrorLines(res.Stderr); msg != "" {
			return msg
		}
	}

	return runErr.Error()
}

// ErrorLines returns the "ERROR:" lines of yt-dlp's stderr, joined by newlines.
func ErrorLines(stderr string) string {
	var lines []string

	for line := range strings.SplitSeq(stderr, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "ERROR:") {
			lines = append(lines, line)
		}
	}

	return strings.Join(lines, "\n")
}

// ParseYtdlpStdout parses the stdout of yt-dlp and returns a slice of ResultJSON with their filenames.
// A file path line belongs to the JSON line before it.
func ParseYtdlpStdout(stdout string) ([]ResultJSON, error) {
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, bufSize), maxJSONSize)

	var res []ResultJSON

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var r ResultJSON
		if err := json.Unmarshal([]byte(line), &r); err == nil {
			res = append(res, r)

			continue
		}

		if reFilepath.MatchString(line) && len(res) > 0 {
			res[len(res)-1].Filename = line
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan stdout: %w", err)
	}

	return res, nil
}

// ComposeResult builds the extraction result from yt-dlp's extracted info and stdout.
// The file path is the moved path when printed, else the prepared filename, and is always
// mapped through spec.ResolveOutputPath.
func ComposeResult(info []*ytdlp.ExtractedInfo, stdout string, spec jobspec.JobSpec) (*entity.Result, error) {
	entries, err := ParseYtdlpStdout(stdout)
	if err != nil {
		return nil, fmt.Errorf("parse yt-dlp stdout: %w", err)
	}

	var result entity.Result

	if len(entries) > 0 {
		e := entries[0]
		result = entity.Result{
			ID:        e.ID,
			Title:     e.Title,
			Extractor: e.Extractor,
			Thumbnail: e.Thumbnail,
			Filename:  e.Filename,
		}
	}

	if len(info) > 0 && info[0] != nil {
		inf := info[0]

		if result.ID == "" {
			result.ID = inf.ID
		}

		if t := ptr.Deref(inf.Title); t != "" {
			result.Title = t
		}

		if ex := ptr.Deref(inf.Extractor); ex != "" {
			result.Extractor = ex
		}

		if th := ptr.Deref(inf.Thumbnail); th != "" {
			result.Thumbnail = th
		}

		if result.Filename == "" {
			result.Filename = ptr.Deref(inf.Filename)
		}
	}

	if result.Filename == "" {
		return nil, errors.Join(errs.ErrExtractionFailed, errs.ErrNoOutputFile)
	}

	result.Filename = spec.ResolveOutputPath(result.Filename)

	return &result, nil
}
