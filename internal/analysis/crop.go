package analysis

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/five82/drapto/internal/ffrunner"
	"github.com/five82/drapto/internal/scheduler"
)

const (
	// cropSampleStartStep/cropSampleEndStep/cropSampleDivisor together
	// express the 141 evenly-spaced probe positions covering 15%-85% of
	// duration in 0.5% steps.
	cropSampleStartStep = 30
	cropSampleEndStep   = 170
	cropSampleDivisor   = 200.0

	cropThresholdSDR = 16
	cropThresholdHDR = 100

	cropDominantRatio = 0.8

	cropSampleFrames = 10
	cropRound        = 2
	cropReset        = 1
)

var cropRegex = regexp.MustCompile(`crop=(\d+:\d+:\d+:\d+)`)

// CropCandidate is one distinct rectangle observed across the sample set,
// kept for logging/diagnostics when content turns out to be mixed-aspect.
type CropCandidate struct {
	Crop    string
	Count   int
	Percent float64
}

// CropDecision is the result of crop detection.
type CropDecision struct {
	Filter            string // "" means no crop; otherwise "crop=w:h:x:y"
	IsHDR             bool
	HasMultipleRatios bool
	Candidates        []CropCandidate
	TotalSamples      int
}

// DetectCrop samples cropdetect output at 141 positions and votes on a
// dominant crop rectangle. With disableCrop set, no sampling
// occurs at all.
func DetectCrop(ctx context.Context, sched *scheduler.Scheduler, inputPath string, props ffrunner.VideoProperties, disableCrop bool) (CropDecision, error) {
	if disableCrop {
		return CropDecision{IsHDR: props.HDRInfo.IsHDR}, nil
	}

	threshold := cropThresholdSDR
	if props.HDRInfo.IsHDR {
		threshold = cropThresholdHDR
	}

	category := scheduler.CategoryForWidth(props.Width)
	var samples []scheduler.Sample
	for i := cropSampleStartStep; i <= cropSampleEndStep; i++ {
		samples = append(samples, scheduler.Sample{
			Position: float64(i) / cropSampleDivisor,
			Category: category,
		})
	}

	crops, err := scheduler.Run(ctx, sched, samples, func(ctx context.Context, s scheduler.Sample) (string, bool, error) {
		startTime := props.DurationSecs * s.Position
		crop, sampleErr := sampleCropAtPosition(ctx, inputPath, startTime, threshold)
		if sampleErr != nil || crop == "" {
			return "", false, nil // a failed or crop-free sample simply contributes no vote
		}
		return crop, true, nil
	})
	if err != nil {
		return CropDecision{}, err
	}

	return aggregateCrop(crops, props.Width, props.Height, props.HDRInfo.IsHDR), nil
}

// aggregateCrop implements the crop voting policy over the raw per-sample
// candidate rectangles. Pure and side-effect free
// so it can be exercised directly by tests without spawning ffmpeg.
func aggregateCrop(crops []string, width, height uint32, isHDR bool) CropDecision {
	totalSamples := len(crops)
	if totalSamples == 0 {
		return CropDecision{IsHDR: isHDR}
	}

	counts := make(map[string]int, 4)
	for _, c := range crops {
		counts[c]++
	}

	type tally struct {
		crop  string
		count int
	}
	sorted := make([]tally, 0, len(counts))
	for crop, count := range counts {
		sorted = append(sorted, tally{crop, count})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].count > sorted[j].count })

	candidates := make([]CropCandidate, 0, len(sorted))
	for _, t := range sorted {
		candidates = append(candidates, CropCandidate{
			Crop:    t.crop,
			Count:   t.count,
			Percent: float64(t.count) / float64(totalSamples) * 100,
		})
	}

	decide := func(crop string) CropDecision {
		if !isEffectiveCrop(crop, width, height) {
			return CropDecision{IsHDR: isHDR, Candidates: candidates, TotalSamples: totalSamples}
		}
		return CropDecision{
			Filter:       "crop=" + crop,
			IsHDR:        isHDR,
			Candidates:   candidates,
			TotalSamples: totalSamples,
		}
	}

	// Step 2: all samples agree (or only one distinct rectangle was seen).
	if len(sorted) == 1 {
		return decide(sorted[0].crop)
	}

	// Step 3: a dominant rectangle covers more than 80% of non-empty samples.
	ratio := float64(sorted[0].count) / float64(totalSamples)
	if ratio > cropDominantRatio {
		return decide(sorted[0].crop)
	}

	// Step 4: mixed aspect ratios, no crop applied.
	return CropDecision{
		IsHDR:             isHDR,
		HasMultipleRatios: true,
		Candidates:        candidates,
		TotalSamples:      totalSamples,
	}
}

// sampleCropAtPosition runs a single cropdetect probe and returns the most
// frequent candidate rectangle observed in its output, or "".
func sampleCropAtPosition(ctx context.Context, inputPath string, startTime float64, threshold int) (string, error) {
	args := []string{
		"-hide_banner",
		"-ss", fmt.Sprintf("%.2f", startTime),
		"-i", inputPath,
		"-vframes", strconv.Itoa(cropSampleFrames),
		"-vf", fmt.Sprintf("cropdetect=limit=%d:round=%d:reset=%d", threshold, cropRound, cropReset),
		"-f", "null",
		"-",
	}

	lines, err := collectSampleLines(ctx, args)
	if err != nil {
		return "", err
	}

	counts := make(map[string]int)
	for _, line := range lines {
		if m := cropRegex.FindStringSubmatch(line); m != nil && isValidCropFormat(m[1]) {
			counts[m[1]]++
		}
	}

	var best string
	bestCount := 0
	for crop, count := range counts {
		if count > bestCount {
			best, bestCount = crop, count
		}
	}
	return best, nil
}

// isValidCropFormat validates that a crop string is in format w:h:x:y with
// four non-negative integers.
func isValidCropFormat(crop string) bool {
	parts := strings.Split(crop, ":")
	if len(parts) != 4 {
		return false
	}
	for _, part := range parts {
		if _, err := strconv.ParseUint(part, 10, 32); err != nil {
			return false
		}
	}
	return true
}

// isEffectiveCrop reports whether a crop rectangle actually removes pixels.
func isEffectiveCrop(crop string, sourceWidth, sourceHeight uint32) bool {
	parts := strings.Split(crop, ":")
	if len(parts) < 2 {
		return true
	}
	width, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return true
	}
	height, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return true
	}
	return uint32(width) != sourceWidth || uint32(height) != sourceHeight
}

// OutputDimensions calculates final output dimensions after a crop filter
// is applied (or the source dimensions, if filter is "").
func OutputDimensions(originalWidth, originalHeight uint32, cropFilter string) (uint32, uint32) {
	if cropFilter == "" {
		return originalWidth, originalHeight
	}
	params := strings.TrimPrefix(cropFilter, "crop=")
	parts := strings.Split(params, ":")
	if len(parts) >= 2 {
		if width, err := strconv.ParseUint(parts[0], 10, 32); err == nil {
			if height, err := strconv.ParseUint(parts[1], 10, 32); err == nil {
				return uint32(width), uint32(height)
			}
		}
	}
	return originalWidth, originalHeight
}
