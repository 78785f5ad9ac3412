package planner

import (
	"testing"

	"github.com/five82/drapto/internal/analysis"
	"github.com/five82/drapto/internal/config"
	"github.com/five82/drapto/internal/ffrunner"
)

func sampleMediaInfo(width uint32) *ffrunner.MediaInfo {
	return &ffrunner.MediaInfo{
		Streams: []ffrunner.Stream{
			{
				Index: 0,
				Kind:  ffrunner.StreamVideo,
				Properties: map[string]string{
					"width":    itoa(width),
					"height":   "1080",
					"duration": "120.0",
				},
			},
			{
				Index:     1,
				Kind:      ffrunner.StreamAudio,
				CodecName: "aac",
				Properties: map[string]string{
					"channels": "2",
				},
			},
		},
	}
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	digits := ""
	for v > 0 {
		digits = string(rune('0'+v%10)) + digits
		v /= 10
	}
	return digits
}

func TestPlanQualityTierByWidth(t *testing.T) {
	cfg := config.NewConfig("/in", "/out", "/log")
	cases := []struct {
		width uint32
		want  uint8
	}{
		{1280, cfg.CRFSD},
		{1920, cfg.CRFHD},
		{3840, cfg.CRFUHD},
	}
	for _, c := range cases {
		info := sampleMediaInfo(c.width)
		params := Plan(info, analysis.CropDecision{}, analysis.NoiseDecision{}, cfg, "in.mkv", "out.mkv")
		if params.Quality != c.want {
			t.Errorf("width %d: Quality = %d, want %d", c.width, params.Quality, c.want)
		}
	}
}

func TestPlanDisableCropAndDenoiseZeroOutFilters(t *testing.T) {
	cfg := config.NewConfig("/in", "/out", "/log")
	cfg.DisableCrop = true
	cfg.DisableDenoise = true
	info := sampleMediaInfo(1920)
	crop := analysis.CropDecision{Filter: "crop=1920:800:0:140"}
	noise := analysis.NoiseDecision{DenoiseFilter: "hqdn3d=1:0.8:2:2", FilmGrainLevel: 8}
	params := Plan(info, crop, noise, cfg, "in.mkv", "out.mkv")
	if params.CropFilter != "" || params.DenoiseFilter != "" || params.FilmGrain != 0 {
		t.Errorf("expected filters zeroed out, got %+v", params)
	}
}

func TestPlanAudioStreamsCarriedVerbatim(t *testing.T) {
	cfg := config.NewConfig("/in", "/out", "/log")
	info := sampleMediaInfo(1920)
	params := Plan(info, analysis.CropDecision{}, analysis.NoiseDecision{}, cfg, "in.mkv", "out.mkv")
	if len(params.AudioStreams) != 1 || params.AudioStreams[0].Channels != 2 {
		t.Errorf("expected one 2-channel audio stream, got %+v", params.AudioStreams)
	}
}

func TestResponsiveThreadCapDisabledByDefault(t *testing.T) {
	if cap := responsiveThreadCap(false); cap != nil {
		t.Errorf("expected nil cap when responsive mode is off, got %v", *cap)
	}
}
