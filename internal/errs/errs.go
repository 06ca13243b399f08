// Package errs defines common error variables used across the application.
package errs

import "errors"

var (
	// ErrInvalidRequestBody indicates that the request body is invalid or cannot be parsed.
	ErrInvalidRequestBody = errors.New("invalid request body")
)

// Valid request errors.
var (
	// ErrInvalidURL indicates that the URL field in the request is invalid.
	ErrInvalidURL = errors.New("invalid url field")
	// ErrInvalidMediaKind indicates that the type field is neither video nor audio.
	ErrInvalidMediaKind = errors.New("invalid media type")
	// ErrInvalidQualityLabel indicates that a quality label cannot be parsed or is not offered.
	ErrInvalidQualityLabel = errors.New("invalid quality label")
)

// Job errors.
var (
	// ErrJobInProgress indicates that another download is still running.
	ErrJobInProgress = errors.New("job in progress")
	// ErrJobCancelled indicates that the job was cancelled before it finished.
	ErrJobCancelled = errors.New("job cancelled")
)

// History errors.
var (
	// ErrStorageUnavailable indicates that the history database is missing, locked or has no schema.
	ErrStorageUnavailable = errors.New("history storage unavailable")
	// ErrHistoryAppend indicates that a finished download could not be logged.
	ErrHistoryAppend = errors.New("history append failed")
)

// Downloader errors.
var (
	// ErrExtractionFailed indicates that the external extractor reported an error.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrNoOutputFile indicates that the extractor finished without reporting a file.
	ErrNoOutputFile = errors.New("no output file reported")
	// ErrBinaryNotFound indicates that the required binary was not found.
	ErrBinaryNotFound = errors.New("binary not found")
	// ErrUnsupportedPlatform indicates that the current platform is not supported.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// File errors.
var (
	// ErrFileNotFound indicates that a requested file is not inside the download directory.
	ErrFileNotFound = errors.New("file not found")
)

// Proxy errors.
var (
	// ErrNoProxiesAvailable indicates that no configured proxy passed the health check.
	ErrNoProxiesAvailable = errors.New("no proxies available")
)
