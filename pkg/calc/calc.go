// Package calc derives transfer progress figures.
package calc

import (
	"math"
	"time"
)

// Progress returns done as a whole percentage of total, clamped to 0..100.
// An unknown total (zero or less) reports 0.
func Progress(done, total int) int {
	if total <= 0 || done <= 0 {
		return 0
	}

	if done >= total {
		return 100
	}

	return int(math.Round(float64(done) / float64(total) * 100))
}

// ETA extrapolates the remaining time from the rate so far. It is zero when nothing has been
// transferred yet, the total is unknown, or the transfer is complete.
func ETA(done, total int, elapsed time.Duration) time.Duration {
	if total <= 0 || done <= 0 || done >= total || elapsed <= 0 {
		return 0
	}

	return time.Duration(float64(elapsed) * (float64(total)/float64(done) - 1))
}
