// Package consts defines application-wide constants.
package consts

import "time"

const (
	// DefaultHandlerTimeout is the default timeout for HTTP handlers that do not run a job.
	DefaultHandlerTimeout = 30 * time.Second
	// DefaultJobTimeout is the default timeout for a single extraction.
	DefaultJobTimeout = 30 * time.Minute
	// DefaultSimulateTime is the default time to simulate processing in mock downloader.
	DefaultSimulateTime = 1 * time.Second
	// DefaultTitle is recorded when the extractor reports no title.
	DefaultTitle = "Extracted_Media"
	// HistoryDateLayout renders "%d %b, %H:%M".
	HistoryDateLayout = "02 Jan, 15:04"
)

// Media kind display names, stored verbatim in the history type column.
const (
	// KindVideoDisplay is the display name of the video kind.
	KindVideoDisplay = "Video (MP4)"
	// KindAudioDisplay is the display name of the audio kind.
	KindAudioDisplay = "Audio (MP3)"
)

// Output containers and codecs.
const (
	// MergeContainerVideo is the container separate video and audio streams are merged into.
	MergeContainerVideo = "mp4"
	// AudioCodec is the codec audio jobs are transcoded to.
	AudioCodec = "mp3"
	// AudioExt is the extension every audio job ends up with after post-processing.
	AudioExt = "mp3"
	// MimeVideo is served for video downloads.
	MimeVideo = "video/mp4"
	// MimeAudio is served for audio downloads.
	MimeAudio = "audio/mpeg"
)

// HTTP response messages.
const (
	// RespInvalidRequestBody is returned when the request body is invalid.
	RespInvalidRequestBody = "invalid request body"
	// RespQueryParamMissing is returned when a required path or query parameter is missing or invalid.
	RespQueryParamMissing = "query param missing or invalid"
	// RespUnprocessableEntity is returned when the request cannot be processed.
	RespUnprocessableEntity = "unprocessable entity"
	// RespDownloadFinished is returned when a download completed and was logged.
	RespDownloadFinished = "download finished"
	// RespDownloadFailed is returned when the extractor failed.
	RespDownloadFailed = "download failed"
	// RespDownloadHint accompanies extraction failures.
	RespDownloadHint = "If error 403 persists, please upload a fresh cookies.txt."
	// RespJobInProgress is returned when another download is still running.
	RespJobInProgress = "another download is in progress"
	// RespHistoryAppendFailed is returned when the download succeeded but could not be logged.
	RespHistoryAppendFailed = "download finished but history append failed"
	// RespHistoryRetrieved is returned when history records are listed.
	RespHistoryRetrieved = "history retrieved"
	// RespHistoryListFailed is returned when history records cannot be listed.
	RespHistoryListFailed = "list history failed"
	// RespHistoryWiped is returned when the history store was wiped.
	RespHistoryWiped = "history wiped"
	// RespHistoryWipeFailed is returned when the history store could not be wiped.
	RespHistoryWipeFailed = "history wipe failed"
	// RespQualitiesRetrieved is returned with the quality catalog.
	RespQualitiesRetrieved = "qualities retrieved"
	// RespFilesPurged is returned after a manual purge of the download directory.
	RespFilesPurged = "files purged"
	// RespFilesPurgeFailed is returned when the download directory could not be purged.
	RespFilesPurgeFailed = "files purge failed"
	// RespFileNotFound is returned when a file is not found.
	RespFileNotFound = "file not found"
)

// Downloader identifiers.
const (
	// DownloaderYTdlp is the yt-dlp downloader identifier.
	DownloaderYTdlp = "ytdlp"
	// DownloaderMock is the mock downloader identifier for testing.
	DownloaderMock = "mock"
)
