package telemetry

import (
	"log/slog"
	"os"
)

// InitSlog installs the process-wide slog handler. verbose enables
// debug output, which also turns on raw request dumping in restyutil.
func InitSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}
