// Package planner turns a probed file plus its crop/noise analysis into a
// fully-resolved encode recipe.
package planner

import (
	"runtime"

	"github.com/five82/drapto/internal/analysis"
	"github.com/five82/drapto/internal/config"
	"github.com/five82/drapto/internal/ffmpeg"
	"github.com/five82/drapto/internal/ffrunner"
)

const (
	responsiveLowCPUThreshold  = 1
	responsiveMidCPUThreshold  = 8
	responsiveMidReservedCPUs  = 2
	responsiveHighReservedCPUs = 4
)

// Plan is a deterministic function of (MediaInfo, CropDecision,
// NoiseDecision, Config) -> EncodeParams. inputPath/outputPath
// are carried separately since they are per-invocation, not derived from the
// probed media.
func Plan(info *ffrunner.MediaInfo, crop analysis.CropDecision, noise analysis.NoiseDecision, cfg *config.Config, inputPath, outputPath string) ffmpeg.EncodeParams {
	props, _ := info.VideoProperties()

	filmGrain := noise.FilmGrainLevel
	denoiseFilter := noise.DenoiseFilter
	if cfg.DisableDenoise {
		filmGrain = 0
		denoiseFilter = ""
	}

	cropFilter := crop.Filter
	if cfg.DisableCrop {
		cropFilter = ""
	}

	audioStreams := make([]ffmpeg.AudioStreamPlan, 0, len(info.AudioStreams()))
	for _, a := range info.AudioStreams() {
		audioStreams = append(audioStreams, ffmpeg.NewAudioStreamPlan(a.Index, a.Channels))
	}

	return ffmpeg.EncodeParams{
		InputPath:  inputPath,
		OutputPath: outputPath,

		Quality: cfg.CRFForWidth(props.Width),
		Preset:  cfg.SVTAV1Preset,
		Tune:    cfg.SVTAV1Tune,

		ACBias:                cfg.SVTAV1ACBias,
		EnableVarianceBoost:   cfg.SVTAV1EnableVarianceBoost,
		VarianceBoostStrength: cfg.SVTAV1VarianceBoostStrength,
		VarianceOctile:        cfg.SVTAV1VarianceOctile,

		CropFilter:    cropFilter,
		DenoiseFilter: denoiseFilter,
		FilmGrain:     filmGrain,

		LogicalProcessorCap: responsiveThreadCap(cfg.ResponsiveEncoding),

		AudioStreams: audioStreams,
		DurationSecs: info.Duration(),

		VideoCodec:   cfg.TargetVideoCodec,
		PixelFormat:  cfg.PixelFormat,
		MatrixCoeffs: props.MatrixCoeffs,
		AudioCodec:   cfg.TargetAudioCodec,
	}
}

// responsiveThreadCap computes the responsive-mode thread reservation: no cap
// on single-core hosts, reserve 2 threads up to 8 logical CPUs, reserve 4
// above that. Returns nil when responsive mode is off or no reservation
// applies.
func responsiveThreadCap(responsive bool) *int {
	if !responsive {
		return nil
	}
	cpus := runtime.NumCPU()
	if cpus <= responsiveLowCPUThreshold {
		return nil
	}
	reserved := responsiveHighReservedCPUs
	if cpus <= responsiveMidCPUThreshold {
		reserved = responsiveMidReservedCPUs
	}
	threadCap := cpus - reserved
	if threadCap < 1 {
		threadCap = 1
	}
	return &threadCap
}
