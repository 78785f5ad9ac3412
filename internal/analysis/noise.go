package analysis

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/five82/drapto/internal/errors"
	"github.com/five82/drapto/internal/ffrunner"
	"github.com/five82/drapto/internal/scheduler"
)

const (
	noiseSampleFrames = 30

	// noiseSignificantThreshold is the average-noise level above which
	// denoising is considered warranted.
	noiseSignificantThreshold = 0.6

	minFilmGrainLevel = 4
	maxFilmGrainLevel = 16
)

// noiseSamplePositions are the 5 probe positions as fractions of duration.
var noiseSamplePositions = []float64{0.2, 0.4, 0.5, 0.6, 0.8}

// noiseValueRegex extracts the luma, bit-plane-1 noise reading: the
// dominant noise indicator.
var noiseValueRegex = regexp.MustCompile(`lavfi\.bitplanenoise\.0\.1=([\d.]+)`)

// NoiseDecision is the result of noise analysis.
type NoiseDecision struct {
	AverageNoise        float64
	MaxNoise            float64
	PerPlaneNoise       []float64
	DenoiseFilter       string
	FilmGrainLevel      uint8
	HasSignificantNoise bool
}

// AnalyzeNoise samples bit-plane noise at 5 positions and derives a
// denoise filter string plus a film-grain synthesis level.
func AnalyzeNoise(ctx context.Context, sched *scheduler.Scheduler, inputPath string, props ffrunner.VideoProperties) (NoiseDecision, error) {
	category := scheduler.CategoryForWidth(props.Width)
	samples := make([]scheduler.Sample, 0, len(noiseSamplePositions))
	for _, pos := range noiseSamplePositions {
		samples = append(samples, scheduler.Sample{Position: pos, Category: category})
	}

	perSample, err := scheduler.Run(ctx, sched, samples, func(ctx context.Context, s scheduler.Sample) ([]float64, bool, error) {
		startTime := props.DurationSecs * s.Position
		values, sampleErr := sampleNoiseAtPosition(ctx, inputPath, startTime)
		if sampleErr != nil || len(values) == 0 {
			return nil, false, nil // tolerated; the aggregate-empty case is handled below
		}
		return values, true, nil
	})
	if err != nil {
		return NoiseDecision{}, err
	}

	if len(perSample) == 0 {
		return NoiseDecision{}, errors.NewExternalToolParse(
			fmt.Sprintf("noise analysis produced no bitplanenoise metadata at any of %d sampled positions", len(noiseSamplePositions)),
			nil,
		)
	}

	width := len(perSample[0])
	for _, sample := range perSample {
		if len(sample) < width {
			width = len(sample)
		}
	}

	perPlane := make([]float64, width)
	for _, sample := range perSample {
		for i := 0; i < width; i++ {
			perPlane[i] += sample[i]
		}
	}
	for i := range perPlane {
		perPlane[i] /= float64(len(perSample))
	}

	var sum, max float64
	for _, v := range perPlane {
		sum += v
		if v > max {
			max = v
		}
	}
	average := sum / float64(len(perPlane))

	hasSignificant := average > noiseSignificantThreshold
	isHDR := props.HDRInfo.IsHDR

	return NoiseDecision{
		AverageNoise:        average,
		MaxNoise:            max,
		PerPlaneNoise:       perPlane,
		DenoiseFilter:       calculateHQDN3DParams(average, isHDR),
		FilmGrainLevel:      calculateFilmGrainLevel(average, isHDR),
		HasSignificantNoise: hasSignificant,
	}, nil
}

// calculateHQDN3DParams selects the hqdn3d spatial/temporal parameter
// string from the 4 x 2 (noise-tier x HDR/SDR) table.
func calculateHQDN3DParams(averageNoise float64, isHDR bool) string {
	switch {
	case averageNoise <= noiseSignificantThreshold:
		if isHDR {
			return "0.5:0.4:1.5:1.5"
		}
		return "1:0.8:2:2"
	case averageNoise < 0.7:
		if isHDR {
			return "1:0.8:2.5:2"
		}
		return "2:1.5:3:2.5"
	case averageNoise < 0.8:
		if isHDR {
			return "2:1.5:3.5:3"
		}
		return "3:2.5:4:3.5"
	default:
		if isHDR {
			return "3:2.5:4.5:4"
		}
		return "4:3.5:5:4.5"
	}
}

// calculateFilmGrainLevel selects the film-grain synthesis level from the
// same 4 x 2 table. Range [4,16]; HDR tiers are milder than SDR.
func calculateFilmGrainLevel(averageNoise float64, isHDR bool) uint8 {
	switch {
	case averageNoise <= noiseSignificantThreshold:
		return minFilmGrainLevel
	case averageNoise < 0.7:
		if isHDR {
			return 5
		}
		return 6
	case averageNoise < 0.8:
		if isHDR {
			return 8
		}
		return 10
	default:
		if isHDR {
			return 12
		}
		return maxFilmGrainLevel
	}
}

// sampleNoiseAtPosition runs a single bitplanenoise probe and returns the
// sequence of luma bit-plane-1 readings, one per decoded frame.
func sampleNoiseAtPosition(ctx context.Context, inputPath string, startTime float64) ([]float64, error) {
	args := []string{
		"-hide_banner",
		"-ss", fmt.Sprintf("%.2f", startTime),
		"-i", inputPath,
		"-vframes", strconv.Itoa(noiseSampleFrames),
		"-vf", "bitplanenoise,metadata=mode=print",
		"-f", "null",
		"-",
	}

	lines, err := collectSampleLines(ctx, args)
	if err != nil {
		return nil, err
	}

	var values []float64
	for _, line := range lines {
		if m := noiseValueRegex.FindStringSubmatch(line); m != nil {
			if v, parseErr := strconv.ParseFloat(m[1], 64); parseErr == nil {
				values = append(values, v)
			}
		}
	}
	return values, nil
}
