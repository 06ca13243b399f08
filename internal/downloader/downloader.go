// Package downloader runs a job spec against an extraction backend and reports what it produced.
package downloader

import (
	"context"
	"errors"
	"time"

	"titan/internal/entity"
	"titan/internal/jobspec"
)

const (
	defaultProgressFreq = 500 * time.Millisecond
)

// Extractor retrieves the media at url as described by spec.
// On success the returned result names the final file on disk.
type Extractor interface {
	Extract(ctx context.Context, url string, spec jobspec.JobSpec) (*entity.Result, error)
}

// Classify maps an extraction error to a short reason used in metrics and logs.
func Classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "extraction"
	}
}
