// Package probe is a thin wrapper over ffrunner's blocking metadata probe,
// adding the warning-on-unknown-duration behaviour the bare process-runner
// contract leaves to its caller.
package probe

import (
	"context"
	"log/slog"

	"github.com/five82/drapto/internal/ffrunner"
)

// Run probes inputPath and returns its MediaInfo. If duration cannot be
// derived by any of the three fallback strategies, a warning is logged and
// MediaInfo.Duration() will report 0.
func Run(ctx context.Context, inputPath string, logger *slog.Logger) (*ffrunner.MediaInfo, error) {
	info, err := ffrunner.RunProbe(ctx, inputPath)
	if err != nil {
		return nil, err
	}
	if info.Duration() == 0 && logger != nil {
		logger.Warn("could not derive duration from stream, format, or frame count", "input", inputPath)
	}
	return info, nil
}
