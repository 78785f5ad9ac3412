package ffmpeg

import (
	"testing"

	"github.com/five82/drapto/internal/ffrunner"
)

func TestProgressInterpreterFirstObservationAlwaysEmitsDisplay(t *testing.T) {
	p := NewProgressInterpreter(100)
	_, display, _ := p.Observe(ffrunner.ProgressFields{Timecode: "00:00:01.000", Speed: 1})
	if !display {
		t.Error("expected the first observation to always emit a display update")
	}
}

func TestProgressInterpreterDebouncesSmallAdvances(t *testing.T) {
	p := NewProgressInterpreter(100)
	p.Observe(ffrunner.ProgressFields{Timecode: "00:00:10.000", Speed: 1}) // 10%
	_, display, _ := p.Observe(ffrunner.ProgressFields{Timecode: "00:00:11.000", Speed: 1}) // 11%, <3pt advance
	if display {
		t.Error("expected a <3 point advance to be debounced")
	}
}

func TestProgressInterpreterEmitsOnThreePointAdvance(t *testing.T) {
	p := NewProgressInterpreter(100)
	p.Observe(ffrunner.ProgressFields{Timecode: "00:00:10.000", Speed: 1})
	_, display, _ := p.Observe(ffrunner.ProgressFields{Timecode: "00:00:13.000", Speed: 1})
	if !display {
		t.Error("expected a >=3 point advance to emit a display update")
	}
}

func TestProgressInterpreterEmitsOnCrossingHundred(t *testing.T) {
	p := NewProgressInterpreter(100)
	p.Observe(ffrunner.ProgressFields{Timecode: "00:01:39.000", Speed: 1}) // 99%
	_, display, _ := p.Observe(ffrunner.ProgressFields{Timecode: "00:01:45.000", Speed: 1}) // clamped to 100%
	if !display {
		t.Error("expected crossing 100%% to always emit a display update")
	}
}

func TestProgressInterpreterLogsOnDecileCrossing(t *testing.T) {
	p := NewProgressInterpreter(100)
	_, _, log1 := p.Observe(ffrunner.ProgressFields{Timecode: "00:00:01.000", Speed: 1})
	if !log1 {
		t.Error("expected the first observation to cross into decile 0")
	}
	_, _, log2 := p.Observe(ffrunner.ProgressFields{Timecode: "00:00:05.000", Speed: 1})
	if log2 {
		t.Error("expected no new log line within the same decile")
	}
	_, _, log3 := p.Observe(ffrunner.ProgressFields{Timecode: "00:00:11.000", Speed: 1})
	if !log3 {
		t.Error("expected a new log line when crossing into the next decile")
	}
}

func TestProgressInterpreterETAZeroWhenSpeedTooLow(t *testing.T) {
	p := NewProgressInterpreter(100)
	snap, _, _ := p.Observe(ffrunner.ProgressFields{Timecode: "00:00:10.000", Speed: 0.005})
	if snap.ETA != 0 {
		t.Errorf("expected zero ETA when speed <= 0.01, got %v", snap.ETA)
	}
}
