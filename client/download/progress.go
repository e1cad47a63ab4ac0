package download

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// LogProgress returns a progress callback that logs at most once per
// second, plus once when a transfer of known size completes. A total of
// -1 means the size is unknown.
func LogProgress(logger *slog.Logger) func(transferred, total int64) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		mu        sync.Mutex
		startTime = time.Now()
		lastLog   time.Time
	)

	return func(transferred, total int64) {
		mu.Lock()
		defer mu.Unlock()

		if time.Since(lastLog) >= time.Second {
			lastLog = time.Now()
			logProgress(logger, "downloading", transferred, total, startTime)
		}

		if total >= 0 && transferred == total {
			logProgress(logger, "download complete", transferred, total, startTime)
		}
	}
}

func logProgress(logger *slog.Logger, msg string, transferred, total int64, startTime time.Time) {
	elapsed := time.Since(startTime)
	progress := "unknown"
	if total > 0 {
		progress = fmt.Sprintf("%.1f%%", float64(transferred)/float64(total)*100)
	}

	attrs := []any{
		"progress", progress,
		"elapsed", elapsed.Round(time.Millisecond),
		"transferred", transferred,
		"total", total,
		"mbps", fmt.Sprintf("%.2f", float64(transferred)/elapsed.Seconds()/(1024*1024)),
	}
	logger.Info(msg, attrs...)
}
