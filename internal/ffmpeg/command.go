package ffmpeg

import "fmt"

// AudioStreamPlan describes one output audio stream, built verbatim from
// Probe's ordered audio-stream list.
type AudioStreamPlan struct {
	SourceIndex int    // index into the input's audio streams, for `-map 0:a:<i>`
	Channels    uint32
	BitrateKbps uint32
	Layout      string // one of mono, stereo, 5.1, 7.1
}

// EncodeParams is the fully-resolved recipe ParamPlanner hands to
// EncodeDriver. Every field needed to build the ffmpeg invocation
// and to report on it afterward lives here; EncodeDriver never reaches back
// into MediaInfo/CropDecision/NoiseDecision.
type EncodeParams struct {
	InputPath  string
	OutputPath string

	Quality uint8 // CRF
	Preset  uint8
	Tune    uint8

	ACBias                float32
	EnableVarianceBoost   bool
	VarianceBoostStrength uint8
	VarianceOctile        uint8

	CropFilter    string // empty if none
	DenoiseFilter string // empty if none
	FilmGrain     uint8  // 0 disables film-grain synthesis entirely

	LogicalProcessorCap *int // nil when responsive-mode reservation does not apply

	AudioStreams []AudioStreamPlan

	DurationSecs float64

	// Display-only / validation-only target strings.
	VideoCodec   string
	PixelFormat  string
	MatrixCoeffs string
	AudioCodec   string
}

// CalculateAudioBitrate returns audio bitrate in kbps based on channel count.
func CalculateAudioBitrate(channels uint32) uint32 {
	switch channels {
	case 1:
		return 64 // Mono
	case 2:
		return 128 // Stereo
	case 6:
		return 256 // 5.1 surround
	case 8:
		return 384 // 7.1 surround
	default:
		return channels * 48 // ~48 kbps per channel for non-standard configs
	}
}

// channelLayout normalizes a channel count to one of the four layouts the
// audio format filter is allowed to target.
func channelLayout(channels uint32) string {
	switch {
	case channels <= 1:
		return "mono"
	case channels == 2:
		return "stereo"
	case channels <= 6:
		return "5.1"
	default:
		return "7.1"
	}
}

// NewAudioStreamPlan builds an AudioStreamPlan for one probed audio stream.
func NewAudioStreamPlan(sourceIndex int, channels uint32) AudioStreamPlan {
	return AudioStreamPlan{
		SourceIndex: sourceIndex,
		Channels:    channels,
		BitrateKbps: CalculateAudioBitrate(channels),
		Layout:      channelLayout(channels),
	}
}

// SvtAv1Params renders the resolved encoder parameter string, for display
// alongside the rest of the encoding configuration.
func (p EncodeParams) SvtAv1Params() string {
	return buildSvtAv1Params(p)
}

// buildSvtAv1Params assembles the encoder parameter string in the order
// the encoder documents its options.
func buildSvtAv1Params(p EncodeParams) string {
	b := NewSvtAv1ParamsBuilder().
		WithTune(p.Tune).
		WithACBias(p.ACBias).
		WithEnableVarianceBoost(p.EnableVarianceBoost)
	if p.EnableVarianceBoost {
		b = b.WithVarianceBoostStrength(p.VarianceBoostStrength).WithVarianceOctile(p.VarianceOctile)
	}
	if p.LogicalProcessorCap != nil {
		b = b.WithLogicalProcessors(*p.LogicalProcessorCap)
	}
	if p.FilmGrain > 0 {
		b = b.WithFilmGrain(p.FilmGrain)
	}
	return b.Build()
}

// BuildCommand assembles the ffmpeg argument list for one encode invocation:
// input, filter chain, video codec/quality/params, per-stream audio mapping,
// chapters/metadata, faststart, output. Ordering matters to the tool.
func BuildCommand(p EncodeParams) []string {
	args := []string{"-y", "-i", p.InputPath}

	chain := NewVideoFilterChain().AddFilter(p.DenoiseFilter).AddCrop(p.CropFilter)
	if !chain.IsEmpty() {
		args = append(args, "-vf", chain.Build())
	}

	args = append(args,
		"-c:v", p.VideoCodec,
		"-pix_fmt", p.PixelFormat,
		"-crf", fmt.Sprintf("%d", p.Quality),
		"-preset", fmt.Sprintf("%d", p.Preset),
		"-svtav1-params", buildSvtAv1Params(p),
	)

	if len(p.AudioStreams) > 0 {
		for _, s := range p.AudioStreams {
			streamRef := fmt.Sprintf("0:a:%d", s.SourceIndex)
			args = append(args,
				"-map", streamRef,
				fmt.Sprintf("-c:a:%d", s.SourceIndex), p.AudioCodec,
				fmt.Sprintf("-b:a:%d", s.SourceIndex), fmt.Sprintf("%dk", s.BitrateKbps),
				fmt.Sprintf("-filter:a:%d", s.SourceIndex), fmt.Sprintf("aformat=channel_layouts=%s", s.Layout),
			)
		}
		args = append(args, "-map", "0:v:0")
	} else {
		args = append(args, "-map", "0:v:0", "-an")
	}

	args = append(args,
		"-map_metadata", "0",
		"-map_chapters", "0",
		"-movflags", "+faststart",
		p.OutputPath,
	)

	return args
}
