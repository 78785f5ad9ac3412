// Package analysis implements black-bar crop detection and bit-plane noise
// analysis, the two independent per-file probes that run between probing
// and encode planning. Both are built atop internal/scheduler's bounded,
// memory-gated sample pool and internal/ffrunner's process spawning.
package analysis

import (
	"context"

	"github.com/five82/drapto/internal/ffrunner"
)

// collectSampleLines spawns a single ffmpeg sample invocation and returns
// every non-terminal event's raw message text, in emission order. Used by
// both CropDetector and NoiseAnalyzer to scan stderr log lines for their
// respective filter's metadata output.
func collectSampleLines(ctx context.Context, args []string) ([]string, error) {
	handle, err := ffrunner.SpawnProcessing(ctx, args)
	if err != nil {
		return nil, err
	}

	// Sample probes tolerate a non-zero exit; the caller judges the sample
	// by its parsed output, so the final Done event is simply skipped.
	var lines []string
	for ev := range handle.Events {
		if ev.Kind == ffrunner.EventDone {
			continue
		}
		lines = append(lines, ev.Message)
	}

	return lines, nil
}
