// Package config handles application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	HTTP       HTTP
	App        App
	Job        Job
	Dir        Dir
	History    History
	DepManager DepManager
	Proxy      Proxy
}

// App holds application-wide configuration.
type App struct {
	LogLevel string `env:"TITAN_APP_LOG_LEVEL" envDefault:"info"`
	// Downloader selects the extraction backend: "ytdlp" or "mock".
	Downloader string `env:"TITAN_APP_DOWNLOADER" envDefault:"ytdlp"`
	// MockFailure makes the mock downloader fail every job with this message.
	MockFailure string `env:"TITAN_APP_MOCK_FAILURE"`
}

// Job holds download job configuration.
type Job struct {
	Timeout time.Duration `env:"TITAN_APP_JOB_TIMEOUT" envDefault:"30m"`
	// UserAgent is sent with every extraction request.
	UserAgent string `env:"TITAN_APP_JOB_USER_AGENT" envDefault:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"` //nolint:lll
}

// HTTP holds HTTP server configuration.
type HTTP struct {
	Port            string        `env:"TITAN_HTTP_PORT"             envDefault:":8080"`
	HandlerTimeout  time.Duration `env:"TITAN_HTTP_HANDLER_TIMEOUT"  envDefault:"20s"`
	ShutdownTimeout time.Duration `env:"TITAN_HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Dir holds directory paths for downloads, cache, and cookie file.
type Dir struct {
	Downloads string `env:"TITAN_DIR_DOWNLOAD" envDefault:"./downloads"` // downloads stored here
	Cache     string `env:"TITAN_DIR_CACHE"    envDefault:"./data/cache"` // yt-dlp cache (meta, sigs)

	// netscape cookie jar, skipped when the file does not exist
	// see: https://github.com/yt-dlp/yt-dlp/wiki/FAQ#how-do-i-pass-cookies-to-yt-dlp
	CookieFile string `env:"TITAN_DIR_COOKIE_FILE" envDefault:"cookies.txt"`

	// see: https://github.com/yt-dlp/yt-dlp/blob/2025.09.05/README.md#output-template
	FilenameTemplate string `env:"TITAN_DIR_FILENAME_TEMPLATE" envDefault:"%(title)s.%(ext)s"`

	// PurgeBeforeJob removes every file in Downloads before a new job starts.
	PurgeBeforeJob bool `env:"TITAN_DIR_PURGE_BEFORE_JOB" envDefault:"true"`

	// Retention is how long a downloaded file is kept, 0 keeps files until the next purge.
	Retention       time.Duration `env:"TITAN_DIR_RETENTION"        envDefault:"24h"`
	CleanupInterval time.Duration `env:"TITAN_DIR_CLEANUP_INTERVAL" envDefault:"10m"`
}

// SetAbsPaths converts all directory paths to absolute paths.
func (c *Dir) SetAbsPaths() error {
	var err error
	if c.Downloads, err = filepath.Abs(c.Downloads); err != nil {
		return fmt.Errorf("downloads: %w", err)
	}

	if c.Cache, err = filepath.Abs(c.Cache); err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	if c.CookieFile != "" {
		if c.CookieFile, err = filepath.Abs(c.CookieFile); err != nil {
			return fmt.Errorf("cookie file: %w", err)
		}
	}

	return nil
}

// History holds the download history database configuration.
type History struct {
	DBPath string `env:"TITAN_HISTORY_DB_PATH" envDefault:"titan_vault.db"`
}

// SetAbsPaths converts the database path to an absolute path.
func (h *History) SetAbsPaths() error {
	var err error
	if h.DBPath, err = filepath.Abs(h.DBPath); err != nil {
		return fmt.Errorf("db path: %w", err)
	}

	return nil
}

// New loads configuration from an optional .env file and environment variables.
func New() (*Config, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	err = env.Parse(cfg)
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	err = cfg.Dir.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set absolute paths: %w", err)
	}

	err = cfg.History.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set history absolute paths: %w", err)
	}

	err = cfg.DepManager.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set dep manager absolute paths: %w", err)
	}

	cfg.Proxy.parseList()

	return cfg, nil
}

// DepManager holds binary dependency management configuration.
type DepManager struct {
	// BinsDir is the directory where binaries are stored
	BinsDir string `env:"TITAN_DEPMANAGER_BINS_DIR" envDefault:"./bins"`
	// UseSystemBinaries indicates whether to use system-installed binaries or download them.
	UseSystemBinaries bool `env:"TITAN_DEPMANAGER_USE_SYSTEM_BINARIES" envDefault:"true"`

	// ffmpeg archive URLs per platform, needed for audio extraction and stream merging.
	FFmpegLinuxARM64 string `env:"TITAN_DEPMANAGER_FFMPEG_LINUX_ARM64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linuxarm64-gpl.tar.xz"` //nolint:lll
	FFmpegLinuxAMD64 string `env:"TITAN_DEPMANAGER_FFMPEG_LINUX_AMD64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linux64-gpl.tar.xz"`    //nolint:lll

	// yt-dlp binary URLs per platform.
	YTdlpLinuxARM64 string `env:"TITAN_DEPMANAGER_YTDLP_LINUX_ARM64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux_aarch64"` //nolint:lll
	YTdlpLinuxAMD64 string `env:"TITAN_DEPMANAGER_YTDLP_LINUX_AMD64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux"`         //nolint:lll

	// SHA256SumsURLs lists checksum files in "hash  filename" format, used only to notice new releases.
	SHA256SumsURLs []string `env:"TITAN_DEPMANAGER_SHA256SUMS_URLS" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/SHA2-256SUMS" envSeparator:","` //nolint:lll
	// UpdateInterval is how often downloaded binaries are checked for new releases, 0 disables it.
	UpdateInterval time.Duration `env:"TITAN_DEPMANAGER_UPDATE_INTERVAL" envDefault:"24h"`
}

// SetAbsPaths converts the BinsDir path to an absolute path.
func (d *DepManager) SetAbsPaths() error {
	var err error
	if d.BinsDir, err = filepath.Abs(d.BinsDir); err != nil {
		return fmt.Errorf("bins dir: %w", err)
	}

	return nil
}

// Proxy holds proxy configuration for extraction requests.
type Proxy struct {
	// List is a comma-separated list of proxy URLs in socks5h format
	List string `env:"TITAN_PROXY_LIST" envDefault:""`
	// HealthCheck enables a TCP reachability probe before a proxy is handed out
	HealthCheck bool `env:"TITAN_PROXY_HEALTH_CHECK" envDefault:"true"`
	// HealthTimeout bounds a single probe
	HealthTimeout time.Duration `env:"TITAN_PROXY_HEALTH_TIMEOUT" envDefault:"3s"`

	// Proxies is the parsed list of proxy URLs
	Proxies []string `env:"-"`
}

// parseList parses the comma-separated proxy list.
func (p *Proxy) parseList() {
	if p.List == "" {
		return
	}

	for proxy := range strings.SplitSeq(p.List, ",") {
		proxy = strings.TrimSpace(proxy)
		if proxy != "" {
			p.Proxies = append(p.Proxies, proxy)
		}
	}
}
