package ffrunner

import (
	"bufio"
	"context"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/five82/drapto/internal/util"
)

// EventKind discriminates the four variants of a processing event.
type EventKind int

const (
	EventProgress EventKind = iota
	EventLog
	EventError
	EventDone
)

// ProgressFields is the payload of an EventProgress event.
type ProgressFields struct {
	Frame       uint64
	FPS         float32
	SizeKB      uint64
	Timecode    string
	BitrateKbps string
	Speed       float32
}

// Event is one item in the lazy, finite event sequence a ProcessHandle yields.
type Event struct {
	Kind        EventKind
	Progress    ProgressFields
	Message     string // Log/Error text
	NonCritical bool   // Log events only: line matches a known-benign warning
	Success     bool   // Done events only
	ExitCode    int    // Done events only
}

// ProcessHandle exposes the streaming event sequence of a spawned processing
// invocation. Events are interleaved in child emission order; the channel
// closes when the child exits, after the final EventDone.
type ProcessHandle struct {
	Events <-chan Event
}

var progressFrameRegex = regexp.MustCompile(`frame=\s*(\d+)`)
var progressFPSRegex = regexp.MustCompile(`fps=\s*([\d.]+)`)
var progressTimeRegex = regexp.MustCompile(`time=(\S+)`)
var progressBitrateRegex = regexp.MustCompile(`bitrate=\s*(\S+)`)
var progressSpeedRegex = regexp.MustCompile(`speed=\s*([\d.]+)x?`)

// nonCriticalMessages is the fixed set of known-benign ffmpeg warning
// substrings; a Log event whose line contains one has NonCritical set.
var nonCriticalMessages = []string{
	"deprecated pixel format",
	"No accelerated colorspace conversion found",
	"Stream map",
	"Using AVStream.codec to pass codec parameters",
	"Queue input is backward",
	"Timestamps are unset in a packet",
	"first frame is no keyframe",
	"Application provided invalid, non monotonically increasing dts",
	"more samples than frame size",
	"Past duration too large",
	"changing SAR from",
	"Thread message queue blocking",
}

// SpawnProcessing launches the external video processing invocation
// (ffmpeg) and returns a handle yielding its event stream. args must
// already embed the full invocation built by the caller's command builder.
func SpawnProcessing(ctx context.Context, args []string) (*ProcessHandle, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	events := make(chan Event, 16)

	if err := cmd.Start(); err != nil {
		close(events)
		return nil, err
	}

	go func() {
		defer close(events)
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.Contains(line, "frame=") && strings.Contains(line, "time=") {
				events <- Event{Kind: EventProgress, Progress: parseProgressLine(line)}
				continue
			}
			if classifyIsError(line) {
				events <- Event{Kind: EventError, Message: line}
				continue
			}
			events <- Event{Kind: EventLog, Message: line, NonCritical: isNonCritical(line)}
		}

		err := cmd.Wait()
		events <- Event{Kind: EventDone, Success: err == nil, ExitCode: exitCodeOf(err)}
	}()

	return &ProcessHandle{Events: events}, nil
}

func classifyIsError(line string) bool {
	lower := strings.ToLower(line)
	return strings.Contains(lower, "error") || strings.Contains(lower, "invalid argument") || strings.Contains(lower, "no such file")
}

func isNonCritical(line string) bool {
	for _, known := range nonCriticalMessages {
		if strings.Contains(line, known) {
			return true
		}
	}
	return false
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}

func parseProgressLine(line string) ProgressFields {
	var fields ProgressFields

	if m := progressFrameRegex.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseUint(m[1], 10, 64); err == nil {
			fields.Frame = v
		}
	}
	if m := progressFPSRegex.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseFloat(m[1], 32); err == nil {
			fields.FPS = float32(v)
		}
	}
	if m := progressTimeRegex.FindStringSubmatch(line); m != nil {
		fields.Timecode = m[1]
	}
	if m := progressBitrateRegex.FindStringSubmatch(line); m != nil {
		fields.BitrateKbps = m[1]
	}
	if m := progressSpeedRegex.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseFloat(m[1], 32); err == nil {
			fields.Speed = float32(v)
		}
	}

	return fields
}

// TimecodeSeconds parses a ProgressFields.Timecode (HH:MM:SS.mmm, or a bare
// float fallback) into elapsed seconds.
func (p ProgressFields) TimecodeSeconds() float64 {
	if secs, ok := util.ParseFFmpegTime(p.Timecode); ok {
		return secs
	}
	if secs, err := strconv.ParseFloat(p.Timecode, 64); err == nil {
		return secs
	}
	return 0
}
