package ffmpeg

import (
	"strings"
	"testing"
)

func TestCalculateAudioBitrate(t *testing.T) {
	cases := map[uint32]uint32{1: 64, 2: 128, 6: 256, 8: 384, 3: 144}
	for channels, want := range cases {
		if got := CalculateAudioBitrate(channels); got != want {
			t.Errorf("CalculateAudioBitrate(%d) = %d, want %d", channels, got, want)
		}
	}
}

func TestChannelLayout(t *testing.T) {
	cases := map[uint32]string{1: "mono", 2: "stereo", 6: "5.1", 8: "7.1", 3: "5.1", 10: "7.1"}
	for channels, want := range cases {
		if got := channelLayout(channels); got != want {
			t.Errorf("channelLayout(%d) = %q, want %q", channels, got, want)
		}
	}
}

func baseParams() EncodeParams {
	return EncodeParams{
		InputPath:    "in.mkv",
		OutputPath:   "out.mkv",
		Quality:      27,
		Preset:       6,
		Tune:         3,
		ACBias:       0.1,
		VideoCodec:   "libsvtav1",
		PixelFormat:  "yuv420p10le",
		AudioCodec:   "libopus",
		DurationSecs: 120,
	}
}

func TestBuildCommandOrdering(t *testing.T) {
	p := baseParams()
	p.DenoiseFilter = "hqdn3d=1:0.8:2:2"
	p.CropFilter = "crop=1920:800:0:140"
	p.AudioStreams = []AudioStreamPlan{NewAudioStreamPlan(0, 2)}
	args := BuildCommand(p)

	iIdx := indexOf(args, "-i")
	vfIdx := indexOf(args, "-vf")
	cvIdx := indexOf(args, "-c:v")
	mapAIdx := indexOf(args, "0:a:0")
	faststartIdx := indexOf(args, "-movflags")

	if iIdx < 0 || vfIdx < 0 || cvIdx < 0 || mapAIdx < 0 || faststartIdx < 0 {
		t.Fatalf("missing expected flags in %v", args)
	}
	if !(iIdx < vfIdx && vfIdx < cvIdx && cvIdx < mapAIdx && mapAIdx < faststartIdx) {
		t.Errorf("unexpected argument ordering: %v", args)
	}
	if args[len(args)-1] != p.OutputPath {
		t.Errorf("expected output path last, got %v", args)
	}

	vf := args[vfIdx+1]
	if vf != "hqdn3d=1:0.8:2:2,crop=1920:800:0:140" {
		t.Errorf("expected denoise before crop in filter chain, got %q", vf)
	}
}

func TestBuildCommandNoFiltersOmitsVF(t *testing.T) {
	p := baseParams()
	args := BuildCommand(p)
	if indexOf(args, "-vf") >= 0 {
		t.Errorf("expected no -vf flag when no filters present, got %v", args)
	}
}

func TestBuildCommandNoAudioStreamsSetsAn(t *testing.T) {
	p := baseParams()
	args := BuildCommand(p)
	if indexOf(args, "-an") < 0 {
		t.Errorf("expected -an when no audio streams, got %v", args)
	}
}

func TestBuildSvtAv1ParamsIncludesFilmGrainDenoiseZero(t *testing.T) {
	p := baseParams()
	p.FilmGrain = 8
	params := buildSvtAv1Params(p)
	if !strings.Contains(params, "film-grain=8") || !strings.Contains(params, "film-grain-denoise=0") {
		t.Errorf("expected film-grain params, got %q", params)
	}
}

func indexOf(args []string, s string) int {
	for i, a := range args {
		if a == s {
			return i
		}
	}
	return -1
}
