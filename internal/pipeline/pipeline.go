// Package pipeline implements the per-file orchestrator state machine
// tying together Probe, CropDetector, NoiseAnalyzer, ParamPlanner,
// EncodeDriver, and Validator behind a single entry point.
package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/five82/drapto/internal/analysis"
	"github.com/five82/drapto/internal/config"
	"github.com/five82/drapto/internal/errors"
	"github.com/five82/drapto/internal/ffmpeg"
	"github.com/five82/drapto/internal/ffrunner"
	"github.com/five82/drapto/internal/logging"
	"github.com/five82/drapto/internal/planner"
	"github.com/five82/drapto/internal/probe"
	"github.com/five82/drapto/internal/reporter"
	"github.com/five82/drapto/internal/scheduler"
	"github.com/five82/drapto/internal/tempdir"
	"github.com/five82/drapto/internal/util"
	"github.com/five82/drapto/internal/validation"
)

// State is one stage of the per-file pipeline state machine:
//
//	INIT -> PROBED -> ANALYZED -> PLANNED -> ENCODING -> VALIDATED -> DONE
//	                                   |
//	                                   `-> FAILED (terminal, any stage)
type State int

const (
	StateInit State = iota
	StateProbed
	StateAnalyzed
	StatePlanned
	StateEncoding
	StateValidated
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateProbed:
		return "PROBED"
	case StateAnalyzed:
		return "ANALYZED"
	case StatePlanned:
		return "PLANNED"
	case StateEncoding:
		return "ENCODING"
	case StateValidated:
		return "VALIDATED"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// FileResult is the per-file outcome of ProcessFile.
type FileResult struct {
	Filename         string
	InputFile        string
	OutputFile       string
	InputSize        uint64
	OutputSize       uint64
	ValidationPassed bool
	EncodingSpeed    float32
	Duration         time.Duration
	State            State
	Err              error
}

// ProcessFile drives one input file through every stage of the per-file
// state machine, reporting lifecycle events to rep. A per-file failure is
// returned as an error but never aborts a surrounding batch; TempManager's
// scratch directory is removed on every exit path via defer.
func ProcessFile(ctx context.Context, cfg *config.Config, inputPath, outputPath string, rep reporter.Reporter) (*FileResult, error) {
	start := time.Now()
	result := &FileResult{
		Filename:   util.GetFilename(inputPath),
		InputFile:  inputPath,
		OutputFile: outputPath,
		State:      StateInit,
	}

	fail := func(err error) (*FileResult, error) {
		result.State = StateFailed
		result.Err = err
		result.Duration = time.Since(start)
		rep.Error(toReporterError(err))
		return result, err
	}

	inputSize, err := util.GetFileSize(inputPath)
	if err != nil {
		return fail(errors.NewInputInvalid("cannot stat input file").WithContext(err.Error()))
	}
	result.InputSize = inputSize

	tmp, warning, err := tempdir.New(cfg.GetTempDir(), util.GetFileStem(inputPath))
	if err != nil {
		return fail(err)
	}
	defer func() { _ = tmp.Close() }()
	if warning != "" {
		rep.Warning(warning)
	}

	// INIT -> PROBED
	info, err := probe.Run(ctx, inputPath, logging.Global().Logger)
	if err != nil {
		return fail(err)
	}
	result.State = StateProbed

	props, ok := info.VideoProperties()
	if !ok {
		return fail(errors.NewNoStreamsFound(inputPath))
	}

	audioDesc := audioDescription(info.AudioStreams())
	dynamicRange := "SDR"
	if props.HDRInfo.IsHDR {
		dynamicRange = "HDR"
	}

	sys := util.GetSystemInfo()
	rep.Hardware(reporter.HardwareSummary{
		Hostname: sys.Hostname,
		CPUCores: sys.NumCPU,
		OS:       sys.OS,
		Arch:     sys.Arch,
	})
	rep.Initialization(reporter.InitializationSummary{
		InputFile:        inputPath,
		OutputFile:       outputPath,
		Duration:         util.FormatDuration(info.Duration()),
		Resolution:       fmt.Sprintf("%dx%d", props.Width, props.Height),
		Category:         categoryLabel(props.Width),
		DynamicRange:     dynamicRange,
		AudioDescription: audioDesc,
	})

	// PROBED -> ANALYZED: crop detection and noise analysis are independent;
	// both must complete before planning.
	rep.StageProgress(reporter.StageProgress{Stage: "analysis", Message: "detecting crop and analyzing noise"})

	sched := scheduler.New(cfg.MaxAnalysisConcurrency, cfg.MemoryPerJobMB)

	var crop analysis.CropDecision
	var noise analysis.NoiseDecision
	var cropErr, noiseErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		crop, cropErr = analysis.DetectCrop(ctx, sched, inputPath, props, cfg.DisableCrop)
	}()
	go func() {
		defer wg.Done()
		noise, noiseErr = analysis.AnalyzeNoise(ctx, sched, inputPath, props)
	}()
	wg.Wait()

	if cropErr != nil {
		return fail(cropErr)
	}
	if noiseErr != nil {
		return fail(noiseErr)
	}
	result.State = StateAnalyzed

	reportCropResult(rep, crop, cfg.DisableCrop)
	if crop.HasMultipleRatios {
		rep.Warning(fmt.Sprintf("mixed aspect ratios across %d crop samples; no crop filter applied", crop.TotalSamples))
	}

	// ANALYZED -> PLANNED (synchronous)
	params := planner.Plan(info, crop, noise, cfg, inputPath, outputPath)
	result.State = StatePlanned

	rep.EncodingConfig(reporter.EncodingConfigSummary{
		Encoder:            params.VideoCodec,
		Preset:             fmt.Sprintf("%d", params.Preset),
		Tune:               fmt.Sprintf("%d", params.Tune),
		Quality:            fmt.Sprintf("%d", params.Quality),
		PixelFormat:        params.PixelFormat,
		MatrixCoefficients: params.MatrixCoeffs,
		AudioCodec:         params.AudioCodec,
		AudioDescription:   audioDesc,
		SVTAV1Params:       params.SvtAv1Params(),
	})

	// PLANNED -> ENCODING
	totalFrames := uint64(0)
	if fps := info.FrameRate(); fps > 0 {
		totalFrames = uint64(params.DurationSecs * fps)
	}
	rep.EncodingStarted(totalFrames)
	result.State = StateEncoding

	encodeCtx := ctx
	if cfg.EncodeTimeoutSecs > 0 {
		var cancelEncode context.CancelFunc
		encodeCtx, cancelEncode = context.WithTimeout(ctx, time.Duration(cfg.EncodeTimeoutSecs)*time.Second)
		defer cancelEncode()
	}

	encodeStart := time.Now()
	err = ffmpeg.Run(encodeCtx, params, func(ev ffmpeg.EncodeEvent) {
		if ev.Display {
			rep.EncodingProgress(reporter.ProgressSnapshot{
				CurrentFrame: ev.Snapshot.Frame,
				TotalFrames:  totalFrames,
				Percent:      float32(ev.Snapshot.Percent),
				Speed:        ev.Snapshot.Speed,
				FPS:          ev.Snapshot.FPS,
				ETA:          ev.Snapshot.ETA,
				Bitrate:      ev.Snapshot.Bitrate,
			})
		}
		if ev.Log {
			rep.StageProgress(reporter.StageProgress{
				Stage:   "encoding",
				Percent: float32(ev.Snapshot.Percent),
				Message: fmt.Sprintf("frame %d, %.1f fps, speed %.2fx", ev.Snapshot.Frame, ev.Snapshot.FPS, ev.Snapshot.Speed),
				ETA:     &ev.Snapshot.ETA,
			})
		}
	})
	if err != nil {
		if cfg.EncodeTimeoutSecs > 0 && stderrors.Is(encodeCtx.Err(), context.DeadlineExceeded) {
			err = errors.NewTimeout(fmt.Sprintf("encode exceeded the configured %ds wall-clock cap", cfg.EncodeTimeoutSecs)).WithContext(inputPath)
		}
		return fail(err)
	}
	encodeDuration := time.Since(encodeStart)

	if outputSize, sizeErr := util.GetFileSize(outputPath); sizeErr == nil {
		result.OutputSize = outputSize
	}

	// ENCODING -> VALIDATED (validation failures are reported, never rolled
	// back)
	vresult, verr := validation.ValidateOutputVideo(inputPath, outputPath, buildValidationOptions(info, props, crop, params))
	if verr != nil {
		rep.Warning("post-encode validation could not run: " + verr.Error())
	} else {
		steps := make([]reporter.ValidationStep, 0, len(vresult.GetValidationSteps()))
		for _, s := range vresult.GetValidationSteps() {
			steps = append(steps, reporter.ValidationStep{Name: s.Name, Passed: s.Passed, Details: s.Details})
		}
		rep.ValidationComplete(reporter.ValidationSummary{Passed: vresult.IsValid(), Steps: steps})
		result.ValidationPassed = vresult.IsValid()
	}
	result.State = StateValidated

	speed := float32(0)
	if encodeDuration.Seconds() > 0 {
		speed = float32(params.DurationSecs / encodeDuration.Seconds())
	}
	result.EncodingSpeed = speed
	result.Duration = time.Since(start)

	rep.EncodingComplete(reporter.EncodingOutcome{
		InputFile:    inputPath,
		OutputFile:   filepath.Base(outputPath),
		OriginalSize: result.InputSize,
		EncodedSize:  result.OutputSize,
		VideoStream:  fmt.Sprintf("%s 10-bit", params.VideoCodec),
		AudioStream:  audioDesc,
		TotalTime:    result.Duration,
		AverageSpeed: speed,
		OutputPath:   outputPath,
	})

	// VALIDATED -> DONE unconditionally
	result.State = StateDone
	return result, nil
}

// BatchSummary is the aggregate outcome of ProcessBatch.
type BatchSummary struct {
	Results               []*FileResult
	SuccessfulCount       int
	TotalFiles            int
	TotalInputSize        uint64
	TotalOutputSize       uint64
	ValidationPassedCount int
	ValidationFailedCount int
	TotalDuration         time.Duration
}

// AnyFailed reports whether at least one file in the batch failed, for the
// CLI's exit-code decision: exit 1 on a failed single-file run, but 0 for
// directory batches regardless.
func (b *BatchSummary) AnyFailed() bool {
	for _, r := range b.Results {
		if r != nil && r.Err != nil {
			return true
		}
	}
	return false
}

// ProcessBatch runs ProcessFile over every input, continuing past per-file
// failures; batch processing never stops because one file failed.
// targetFilename overrides the resolved output filename for a single input,
// matching the CLI's `-o output.mkv` shorthand.
func ProcessBatch(ctx context.Context, cfg *config.Config, inputs []string, outputDir, targetFilename string, rep reporter.Reporter) (*BatchSummary, error) {
	_ = tempdir.Sweep(cfg.GetTempDir())

	isBatch := len(inputs) > 1
	if isBatch {
		fileNames := make([]string, len(inputs))
		for i, in := range inputs {
			fileNames[i] = util.GetFilename(in)
		}
		rep.BatchStarted(reporter.BatchStartInfo{TotalFiles: len(inputs), FileList: fileNames, OutputDir: outputDir})
	}

	summary := &BatchSummary{TotalFiles: len(inputs)}
	start := time.Now()

	for i, input := range inputs {
		select {
		case <-ctx.Done():
			return summary, errors.NewCancelledByUser()
		default:
		}

		if isBatch {
			rep.FileProgress(reporter.FileProgressContext{CurrentFile: i + 1, TotalFiles: len(inputs)})
		}

		outputPath := util.ResolveOutputPath(input, outputDir, targetFilename)
		result, err := ProcessFile(ctx, cfg, input, outputPath, rep)
		summary.Results = append(summary.Results, result)
		if err != nil {
			continue
		}

		summary.SuccessfulCount++
		summary.TotalInputSize += result.InputSize
		summary.TotalOutputSize += result.OutputSize
		if result.ValidationPassed {
			summary.ValidationPassedCount++
		} else {
			summary.ValidationFailedCount++
		}
	}

	summary.TotalDuration = time.Since(start)

	if isBatch {
		rep.BatchComplete(reporter.BatchSummary{
			SuccessfulCount:       summary.SuccessfulCount,
			TotalFiles:            summary.TotalFiles,
			TotalOriginalSize:     summary.TotalInputSize,
			TotalEncodedSize:      summary.TotalOutputSize,
			TotalDuration:         summary.TotalDuration,
			AverageSpeed:          averageSpeed(summary.Results),
			FileResults:           fileResultsOf(summary.Results),
			ValidationPassedCount: summary.ValidationPassedCount,
			ValidationFailedCount: summary.ValidationFailedCount,
		})
	}

	return summary, nil
}

func averageSpeed(results []*FileResult) float32 {
	var sum float32
	var n int
	for _, r := range results {
		if r != nil && r.Err == nil {
			sum += r.EncodingSpeed
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float32(n)
}

func fileResultsOf(results []*FileResult) []reporter.FileResult {
	out := make([]reporter.FileResult, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		out = append(out, reporter.FileResult{
			Filename:  r.Filename,
			Reduction: util.CalculateSizeReduction(r.InputSize, r.OutputSize),
		})
	}
	return out
}

// categoryLabel classifies a video width into the SD/HD/UHD quality tier
// label, matching config.Config.CRFForWidth's thresholds.
func categoryLabel(width uint32) string {
	switch {
	case width >= config.UHDWidthThreshold:
		return "UHD"
	case width >= config.HDWidthThreshold:
		return "HD"
	default:
		return "SD"
	}
}

// audioDescription builds a short human-readable summary of the input's
// audio streams, e.g. "2ch opus, 6ch truehd" (used by Initialization and
// EncodingConfig reporter events).
func audioDescription(streams []ffrunner.AudioStreamInfo) string {
	if len(streams) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(streams))
	for _, s := range streams {
		parts = append(parts, fmt.Sprintf("%dch %s", s.Channels, s.CodecName))
	}
	return strings.Join(parts, ", ")
}

// reportCropResult renders CropDecision as a CropSummary event.
func reportCropResult(rep reporter.Reporter, crop analysis.CropDecision, disabled bool) {
	if disabled {
		rep.CropResult(reporter.CropSummary{Message: "auto-crop disabled by configuration", Disabled: true})
		return
	}
	if crop.Filter == "" {
		rep.CropResult(reporter.CropSummary{Message: fmt.Sprintf("no crop needed (%d samples)", crop.TotalSamples)})
		return
	}
	rep.CropResult(reporter.CropSummary{
		Message:  fmt.Sprintf("crop detected (%d samples)", crop.TotalSamples),
		Crop:     crop.Filter,
		Required: true,
	})
}

// buildValidationOptions derives the input-side facts each of Validator's 8
// checks needs from the probed input, its crop decision, and
// the resolved encode parameters.
func buildValidationOptions(info *ffrunner.MediaInfo, props ffrunner.VideoProperties, crop analysis.CropDecision, params ffmpeg.EncodeParams) validation.Options {
	width, height := analysis.OutputDimensions(props.Width, props.Height, crop.Filter)
	dims := [2]uint32{width, height}
	duration := info.Duration()
	isHDR := props.HDRInfo.IsHDR
	audioTracks := len(info.AudioStreams())
	audioDur := info.AudioDurationSecs()

	channels := make([]uint32, 0, len(params.AudioStreams))
	for _, a := range params.AudioStreams {
		channels = append(channels, a.Channels)
	}

	return validation.Options{
		ExpectedDimensions:    &dims,
		ExpectedDuration:      &duration,
		ExpectedHDR:           &isHDR,
		ExpectedAudioTracks:   &audioTracks,
		ExpectedAudioCodec:    strings.TrimPrefix(strings.ToLower(params.AudioCodec), "lib"),
		ExpectedAudioChannels: channels,
		InputAudioDuration:    &audioDur,
	}
}

// toReporterError converts a pipeline error into the Reporter's error
// shape, pulling Context/Suggestion off a CoreError when available so the
// rendered block keeps its title, context, and remediation hint.
func toReporterError(err error) reporter.ReporterError {
	var coreErr *errors.CoreError
	if stderrors.As(err, &coreErr) {
		return reporter.ReporterError{
			Title:      coreErr.Kind.String(),
			Message:    coreErr.Message,
			Context:    coreErr.Context,
			Suggestion: coreErr.Suggestion,
		}
	}
	return reporter.ReporterError{Title: "Error", Message: err.Error()}
}
