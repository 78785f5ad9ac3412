package ffmpeg

import (
	"context"
	"strings"

	"github.com/five82/drapto/internal/errors"
	"github.com/five82/drapto/internal/ffrunner"
)

const stderrTailLines = 40

// EncodeEvent is one progress observation EncodeDriver.Run streams back to
// its caller, tagged with which of the two independent cadences fired: the
// display debounce (Display) and the structured-log decile/5-minute cadence
// (Log). Either, both, or neither may be true for a given observation.
type EncodeEvent struct {
	Snapshot ProgressSnapshot
	Display  bool
	Log      bool
}

// Run builds the processing invocation from params, spawns it via
// ffrunner.SpawnProcessing, and drives the event loop to completion,
// forwarding debounced progress through onEvent.
//
// Outcome: nil on success; errors.KindNoStreamsFound if the buffered stderr
// contains "No streams found"; otherwise errors.KindExternalToolExit with the
// tail of the buffered stderr.
func Run(ctx context.Context, params EncodeParams, onEvent func(EncodeEvent)) error {
	args := BuildCommand(params)

	handle, err := ffrunner.SpawnProcessing(ctx, args)
	if err != nil {
		return errors.NewExternalToolStart("ffmpeg", err)
	}

	interp := NewProgressInterpreter(params.DurationSecs)
	var tail []string
	success := false

	for ev := range handle.Events {
		switch ev.Kind {
		case ffrunner.EventProgress:
			snap, emitDisplay, emitLog := interp.Observe(ev.Progress)
			if (emitDisplay || emitLog) && onEvent != nil {
				onEvent(EncodeEvent{Snapshot: snap, Display: emitDisplay, Log: emitLog})
			}
		case ffrunner.EventLog, ffrunner.EventError:
			tail = appendTail(tail, ev.Message)
		case ffrunner.EventDone:
			success = ev.Success
		}
	}

	if success {
		return nil
	}

	buffered := strings.Join(tail, "\n")
	if strings.Contains(buffered, "No streams found") {
		return errors.NewNoStreamsFound(params.InputPath)
	}
	return errors.NewExternalToolExit("ffmpeg", -1, tailOf(tail, stderrTailLines))
}

func appendTail(tail []string, line string) []string {
	tail = append(tail, line)
	if len(tail) > stderrTailLines*4 {
		tail = tail[len(tail)-stderrTailLines*4:]
	}
	return tail
}

func tailOf(lines []string, n int) string {
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
