package validation

import (
	"fmt"
	"math"
	"strings"
)

const (
	// durationToleranceSecs is the maximum allowed difference in duration between input and output.
	durationToleranceSecs = 1.0
	// maxSyncDriftMs is the maximum allowed audio/video sync drift delta in milliseconds.
	maxSyncDriftMs = 100.0
	// requiredBitDepth is the exact bit depth required for AV1 output validation.
	requiredBitDepth = 10
)

// Options carries the input-side facts (captured once by the probe step)
// that each check needs to compare against the re-probed output.
type Options struct {
	ExpectedDimensions    *[2]uint32
	ExpectedDuration      *float64 // input video duration, seconds
	ExpectedHDR           *bool
	ExpectedAudioTracks   *int
	ExpectedAudioCodec    string // target audio codec, e.g. "opus"
	ExpectedAudioChannels []uint32
	InputAudioDuration    *float64 // input audio-stream duration, seconds
}

// ValidateOutputVideo performs comprehensive validation of an encoded video.
// It delegates to ValidateWithAnalyzer using the DefaultAnalyzer.
func ValidateOutputVideo(inputPath, outputPath string, opts Options) (*Result, error) {
	return ValidateWithAnalyzer(NewDefaultAnalyzer(), outputPath, opts)
}

// validateDimensions checks that dimensions match expected values.
func validateDimensions(actualW, actualH, expectedW, expectedH uint32) (bool, string) {
	if actualW == expectedW && actualH == expectedH {
		return true, fmt.Sprintf("Dimensions match: %dx%d", actualW, actualH)
	}
	return false, fmt.Sprintf("Dimension mismatch: got %dx%d, expected %dx%d",
		actualW, actualH, expectedW, expectedH)
}

// validateDuration checks that duration is within acceptable tolerance.
func validateDuration(actual, expected float64) (bool, string) {
	diff := math.Abs(actual - expected)

	if diff <= durationToleranceSecs {
		return true, fmt.Sprintf("Duration matches input (%.1fs)", actual)
	}
	return false, fmt.Sprintf("Duration mismatch: got %.1fs, expected %.1fs (diff: %.1fs)",
		actual, expected, diff)
}

// validateSync compares A/V drift between input and output: drift(x) =
// |video_duration(x) - audio_duration(x)|, measured independently; the
// check passes when the two drifts differ by no more than 100ms. This is a
// delta-of-deltas, not a direct duration comparison — a file whose audio and
// video both grew by the same amount would still pass.
func validateSync(outputVideoDur, outputAudioDur, inputVideoDur, inputAudioDur float64) (bool, *float64, string) {
	outputDrift := math.Abs(outputVideoDur - outputAudioDur)
	inputDrift := math.Abs(inputVideoDur - inputAudioDur)
	deltaMs := math.Abs(outputDrift-inputDrift) * 1000
	preserved := deltaMs <= maxSyncDriftMs

	message := fmt.Sprintf("Audio/video sync preserved (drift delta: %.1fms)", deltaMs)
	if !preserved {
		message = fmt.Sprintf("Audio/video sync drift changed too much: %.1fms (max: %.1fms)", deltaMs, maxSyncDriftMs)
	}

	return preserved, &deltaMs, message
}

// ValidateWithAnalyzer performs validation using a MediaAnalyzer interface.
// This allows for testing without external tool dependencies.
func ValidateWithAnalyzer(analyzer MediaAnalyzer, outputPath string, opts Options) (*Result, error) {
	result := &Result{
		IsCropCorrect:            true,
		IsDurationCorrect:        true,
		IsHDRCorrect:             true,
		IsAudioCodecCorrect:      true,
		IsAudioTrackCountCorrect: true,
		IsSyncPreserved:          true,
	}

	// Get output video properties
	outputProps, err := analyzer.GetVideoProperties(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get output video properties: %w", err)
	}

	// Validate video codec (should be AV1)
	codecName, err := analyzer.GetVideoCodec(outputPath)
	if err != nil {
		result.IsAV1 = false
		result.CodecName = ""
	} else {
		isAV1 := strings.Contains(strings.ToLower(codecName), "av1") ||
			strings.Contains(strings.ToLower(codecName), "av01")
		result.IsAV1 = isAV1
		result.CodecName = codecName
	}

	// Validate bit depth
	if outputProps.BitDepth != nil {
		result.Is10Bit = *outputProps.BitDepth == requiredBitDepth
		result.BitDepth = outputProps.BitDepth
	} else {
		hdrInfo, err := analyzer.GetHDRInfo(outputPath)
		if err == nil && hdrInfo.BitDepth != nil {
			result.Is10Bit = *hdrInfo.BitDepth == requiredBitDepth
			result.BitDepth = hdrInfo.BitDepth
		} else {
			defaultDepth := uint8(10)
			result.Is10Bit = true
			result.BitDepth = &defaultDepth
		}
	}

	// Validate dimensions if expected
	if opts.ExpectedDimensions != nil {
		result.ActualDimensions = &[2]uint32{outputProps.Width, outputProps.Height}
		result.ExpectedDimensions = opts.ExpectedDimensions
		result.IsCropCorrect, result.CropMessage = validateDimensions(
			outputProps.Width, outputProps.Height,
			opts.ExpectedDimensions[0], opts.ExpectedDimensions[1],
		)
	} else {
		result.CropMessage = "No dimension validation required"
	}

	// Validate duration if expected
	if opts.ExpectedDuration != nil {
		actualDur := outputProps.DurationSecs
		result.ActualDuration = &actualDur
		result.ExpectedDuration = opts.ExpectedDuration
		result.IsDurationCorrect, result.DurationMessage = validateDuration(actualDur, *opts.ExpectedDuration)
	} else {
		result.DurationMessage = "Duration validation skipped"
	}

	// Validate HDR status if expected
	if opts.ExpectedHDR != nil {
		if !analyzer.IsHDRDetectionAvailable() {
			result.IsHDRCorrect = true
			result.HDRMessage = "HDR detection not available - validation skipped"
		} else {
			hdrInfo, err := analyzer.GetHDRInfo(outputPath)
			if err != nil {
				result.IsHDRCorrect = false
				result.HDRMessage = "Failed to detect HDR status"
			} else {
				result.ActualHDR = &hdrInfo.IsHDR
				result.ExpectedHDR = opts.ExpectedHDR
				if *opts.ExpectedHDR == hdrInfo.IsHDR {
					status := "SDR"
					if hdrInfo.IsHDR {
						status = "HDR"
					}
					result.IsHDRCorrect = true
					result.HDRMessage = status + " preserved"
				} else {
					expectedStr := "SDR"
					if *opts.ExpectedHDR {
						expectedStr = "HDR"
					}
					actualStr := "SDR"
					if hdrInfo.IsHDR {
						actualStr = "HDR"
					}
					result.IsHDRCorrect = false
					result.HDRMessage = "Expected " + expectedStr + ", found " + actualStr
				}
			}
		}
	} else {
		if analyzer.IsHDRDetectionAvailable() {
			hdrInfo, err := analyzer.GetHDRInfo(outputPath)
			if err == nil {
				result.ActualHDR = &hdrInfo.IsHDR
				status := "SDR"
				if hdrInfo.IsHDR {
					status = "HDR"
				}
				result.HDRMessage = "Output is " + status
			}
		}
		result.IsHDRCorrect = true
	}

	// Validate audio codec and track count
	audioStreams, err := analyzer.GetAudioStreams(outputPath)
	if err != nil {
		result.AudioCodecMessage = "Failed to get audio info"
		result.AudioTrackMessage = "Failed to get audio info"
	} else {
		result.IsAudioCodecCorrect, result.AudioCodecs, result.AudioCodecMessage = validateAudioCodec(
			audioStreams, opts.ExpectedAudioCodec,
		)
		result.IsAudioTrackCountCorrect, result.AudioTrackMessage = validateAudioTrackCount(
			len(audioStreams), opts.ExpectedAudioTracks,
		)
	}

	// Validate A/V sync
	if opts.ExpectedDuration != nil && opts.InputAudioDuration != nil {
		outputAudioDur, err := analyzer.GetAudioDurationSecs(outputPath)
		if err != nil {
			result.IsSyncPreserved = false
			result.SyncMessage = "Failed to get output audio duration"
		} else {
			result.IsSyncPreserved, result.SyncDriftMs, result.SyncMessage = validateSync(
				outputProps.DurationSecs, outputAudioDur,
				*opts.ExpectedDuration, *opts.InputAudioDuration,
			)
		}
	} else {
		result.SyncMessage = "Sync validation skipped"
	}

	return result, nil
}

// validateAudioCodec checks that every audio stream uses the target codec.
func validateAudioCodec(streams []AnalyzerAudioStream, expectedCodec string) (bool, []string, string) {
	target := strings.ToLower(expectedCodec)
	if target == "" {
		target = "opus"
	}

	matches := true
	codecs := make([]string, len(streams))
	for i, stream := range streams {
		codec := strings.ToLower(stream.Codec)
		codecs[i] = codec
		if codec != target {
			matches = false
		}
	}

	var message string
	switch {
	case len(streams) == 0:
		message = "No audio tracks"
	case len(streams) == 1:
		if matches {
			message = fmt.Sprintf("Audio track is %s", target)
		} else {
			message = fmt.Sprintf("Audio track is %s (expected %s)", codecs[0], target)
		}
	case matches:
		message = fmt.Sprintf("%d audio tracks, all %s", len(streams), target)
	default:
		message = fmt.Sprintf("%d audio tracks: %s", len(streams), strings.Join(codecs, ", "))
	}

	return matches, codecs, message
}

// validateAudioTrackCount checks that the output carries the same number of
// audio streams as the input.
func validateAudioTrackCount(actual int, expected *int) (bool, string) {
	if expected == nil {
		return true, fmt.Sprintf("%d audio track(s)", actual)
	}
	if actual == *expected {
		return true, fmt.Sprintf("%d audio track(s), matches input", actual)
	}
	return false, fmt.Sprintf("Audio track count mismatch: got %d, expected %d", actual, *expected)
}
