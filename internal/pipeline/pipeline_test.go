package pipeline

import (
	stderrors "errors"
	"testing"

	"github.com/five82/drapto/internal/config"
	"github.com/five82/drapto/internal/errors"
	"github.com/five82/drapto/internal/ffrunner"
)

func TestCategoryLabel(t *testing.T) {
	tests := []struct {
		width uint32
		want  string
	}{
		{1280, "SD"},
		{config.HDWidthThreshold - 1, "SD"},
		{config.HDWidthThreshold, "HD"},
		{config.UHDWidthThreshold - 1, "HD"},
		{config.UHDWidthThreshold, "UHD"},
		{7680, "UHD"},
	}
	for _, tt := range tests {
		if got := categoryLabel(tt.width); got != tt.want {
			t.Errorf("categoryLabel(%d) = %q, want %q", tt.width, got, tt.want)
		}
	}
}

func TestAudioDescription(t *testing.T) {
	if got := audioDescription(nil); got != "none" {
		t.Errorf("audioDescription(nil) = %q, want %q", got, "none")
	}

	streams := []ffrunner.AudioStreamInfo{
		{Channels: 2, CodecName: "opus"},
		{Channels: 6, CodecName: "truehd"},
	}
	want := "2ch opus, 6ch truehd"
	if got := audioDescription(streams); got != want {
		t.Errorf("audioDescription(...) = %q, want %q", got, want)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StateInit, "INIT"},
		{StateProbed, "PROBED"},
		{StateAnalyzed, "ANALYZED"},
		{StatePlanned, "PLANNED"},
		{StateEncoding, "ENCODING"},
		{StateValidated, "VALIDATED"},
		{StateDone, "DONE"},
		{StateFailed, "FAILED"},
		{State(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestToReporterErrorWithCoreError(t *testing.T) {
	base := errors.NewInputInvalid("missing input file").WithSuggestion("check the path")
	got := toReporterError(base)
	if got.Title != errors.KindInputInvalid.String() {
		t.Errorf("Title = %q, want %q", got.Title, errors.KindInputInvalid.String())
	}
	if got.Message != "missing input file" {
		t.Errorf("Message = %q, want %q", got.Message, "missing input file")
	}
	if got.Suggestion != "check the path" {
		t.Errorf("Suggestion = %q, want %q", got.Suggestion, "check the path")
	}
}

func TestToReporterErrorWithPlainError(t *testing.T) {
	got := toReporterError(stderrors.New("boom"))
	if got.Title != "Error" {
		t.Errorf("Title = %q, want %q", got.Title, "Error")
	}
	if got.Message != "boom" {
		t.Errorf("Message = %q, want %q", got.Message, "boom")
	}
}
