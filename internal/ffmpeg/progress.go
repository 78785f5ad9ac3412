package ffmpeg

import (
	"time"

	"github.com/five82/drapto/internal/ffrunner"
)

// ProgressSnapshot is the debounced view of encoding progress handed to the
// reporter.
type ProgressSnapshot struct {
	Percent      float64
	CurrentSecs  float64
	DurationSecs float64
	Frame        uint64
	FPS          float32
	Speed        float32
	ETA          time.Duration
	Bitrate      string
}

const (
	progressDebouncePercent = 3.0
	progressLogDecile       = 10.0
	progressLogInterval     = 5 * time.Minute
)

// ProgressInterpreter consumes ffrunner.Event streams and emits
// ProgressSnapshot values on a debounced cadence: a
// display update every 3 points of advance (or on first reaching 100), and a
// structured log line every 10% decile or every 5 minutes of wall time,
// whichever comes first.
type ProgressInterpreter struct {
	durationSecs float64
	start        time.Time

	lastEmittedPercent float64
	lastLogInstant     time.Time
	lastLogDecile      int
	frameCount         uint64
	emittedAny         bool
}

// NewProgressInterpreter creates an interpreter for an encode of the given
// known duration (seconds; 0 if unknown).
func NewProgressInterpreter(durationSecs float64) *ProgressInterpreter {
	now := time.Now()
	return &ProgressInterpreter{
		durationSecs:   durationSecs,
		start:          now,
		lastLogInstant: now,
		lastLogDecile:  -1,
	}
}

// Observe feeds one Progress event in and returns a snapshot plus whether a
// display update should be emitted, and separately whether a structured log
// line should be emitted this call.
func (p *ProgressInterpreter) Observe(fields ffrunner.ProgressFields) (snapshot ProgressSnapshot, emitDisplay bool, emitLog bool) {
	p.frameCount = fields.Frame
	current := fields.TimecodeSeconds()

	var percent float64
	if p.durationSecs > 0 {
		percent = current / p.durationSecs * 100
		if percent > 100 {
			percent = 100
		}
	}

	elapsed := time.Since(p.start)
	var eta time.Duration
	if fields.Speed > 0.01 && p.durationSecs > 0 {
		remaining := p.durationSecs - current
		eta = time.Duration(remaining/float64(fields.Speed)*float64(time.Second))
	}
	var fps float32
	if elapsed.Seconds() > 0 {
		fps = float32(float64(p.frameCount) / elapsed.Seconds())
	}

	snapshot = ProgressSnapshot{
		Percent:      percent,
		CurrentSecs:  current,
		DurationSecs: p.durationSecs,
		Frame:        p.frameCount,
		FPS:          fps,
		Speed:        fields.Speed,
		ETA:          eta,
		Bitrate:      fields.BitrateKbps,
	}

	crossedHundred := percent >= 100 && p.lastEmittedPercent < 100
	if !p.emittedAny || percent-p.lastEmittedPercent >= progressDebouncePercent || crossedHundred {
		p.lastEmittedPercent = percent
		p.emittedAny = true
		emitDisplay = true
	}

	decile := int(percent / progressLogDecile)
	if decile > p.lastLogDecile || time.Since(p.lastLogInstant) >= progressLogInterval {
		p.lastLogDecile = decile
		p.lastLogInstant = time.Now()
		emitLog = true
	}

	return snapshot, emitDisplay, emitLog
}
