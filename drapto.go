// Package drapto provides a Go library for AV1 video encoding with SVT-AV1.
//
// Drapto is an opinionated FFmpeg wrapper that handles the complexity of
// AV1 encoding with sensible defaults, automatic crop detection, noise-aware
// film grain synthesis, and post-encode validation.
//
// Basic usage:
//
//	encoder, err := drapto.New(
//	    drapto.WithQualityHD(26),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := encoder.Encode(ctx, "input.mkv", "output/", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Encoded: %s, reduction: %.1f%%\n",
//	    result.OutputFile, result.SizeReductionPercent)
package drapto

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/five82/drapto/internal/config"
	"github.com/five82/drapto/internal/discovery"
	"github.com/five82/drapto/internal/pipeline"
	"github.com/five82/drapto/internal/reporter"
	"github.com/five82/drapto/internal/util"
)

// Encoder is the main entry point for video encoding.
type Encoder struct {
	config *config.Config
}

// Result contains the result of a single file encode.
type Result struct {
	OutputFile           string
	OriginalSize         uint64
	EncodedSize          uint64
	SizeReductionPercent float64
	ValidationPassed     bool
	EncodingSpeed        float32
}

// BatchResult contains the result of a batch encode.
type BatchResult struct {
	Results               []Result
	SuccessfulCount       int
	TotalFiles            int
	TotalSizeReduction    float64
	ValidationPassedCount int
}

// Option configures the encoder.
type Option func(*config.Config)

// New creates a new Encoder with the given options.
func New(opts ...Option) (*Encoder, error) {
	cfg := config.NewConfig(".", ".", ".")

	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Encoder{config: cfg}, nil
}

// WithQualitySD sets the CRF quality for SD videos (<1920 width).
func WithQualitySD(crf uint8) Option {
	return func(c *config.Config) { c.CRFSD = crf }
}

// WithQualityHD sets the CRF quality for HD videos (>=1920, <3840 width).
func WithQualityHD(crf uint8) Option {
	return func(c *config.Config) { c.CRFHD = crf }
}

// WithQualityUHD sets the CRF quality for UHD videos (>=3840 width).
func WithQualityUHD(crf uint8) Option {
	return func(c *config.Config) { c.CRFUHD = crf }
}

// WithDisableAutocrop disables automatic black bar detection.
func WithDisableAutocrop() Option {
	return func(c *config.Config) { c.DisableCrop = true }
}

// WithDisableDenoise disables NoiseAnalyzer's recommended denoise filter and
// film-grain synthesis.
func WithDisableDenoise() Option {
	return func(c *config.Config) { c.DisableDenoise = true }
}

// WithResponsive enables responsive encoding (reserves CPU threads for host
// responsiveness).
func WithResponsive() Option {
	return func(c *config.Config) { c.ResponsiveEncoding = true }
}

// WithTempDir overrides the scratch-directory base TempManager uses.
func WithTempDir(dir string) Option {
	return func(c *config.Config) { c.TempDir = dir }
}

// WithMaxAnalysisConcurrency bounds SampleScheduler's worker pool.
func WithMaxAnalysisConcurrency(n int) Option {
	return func(c *config.Config) { c.MaxAnalysisConcurrency = n }
}

// Encode encodes a single video file, reporting progress to rep (nil is
// equivalent to reporter.NullReporter{}).
func (e *Encoder) Encode(ctx context.Context, input, outputDir string, rep reporter.Reporter) (*Result, error) {
	cfg := *e.config
	cfg.OutputDir = outputDir

	if err := util.EnsureDirectory(outputDir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if rep == nil {
		rep = reporter.NullReporter{}
	}

	outputPath := util.ResolveOutputPath(input, outputDir, "")
	fileResult, err := pipeline.ProcessFile(ctx, &cfg, input, outputPath, rep)
	if err != nil {
		return nil, err
	}

	return &Result{
		OutputFile:           outputPath,
		OriginalSize:         fileResult.InputSize,
		EncodedSize:          fileResult.OutputSize,
		SizeReductionPercent: util.CalculateSizeReduction(fileResult.InputSize, fileResult.OutputSize),
		ValidationPassed:     fileResult.ValidationPassed,
		EncodingSpeed:        fileResult.EncodingSpeed,
	}, nil
}

// EncodeBatch encodes multiple video files, reporting progress to rep (nil
// is equivalent to reporter.NullReporter{}).
func (e *Encoder) EncodeBatch(ctx context.Context, inputs []string, outputDir string, rep reporter.Reporter) (*BatchResult, error) {
	cfg := *e.config
	cfg.OutputDir = outputDir

	if err := util.EnsureDirectory(outputDir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if rep == nil {
		rep = reporter.NullReporter{}
	}

	summary, err := pipeline.ProcessBatch(ctx, &cfg, inputs, outputDir, "", rep)
	if err != nil {
		return nil, err
	}

	batch := &BatchResult{TotalFiles: summary.TotalFiles}
	for _, r := range summary.Results {
		if r == nil {
			continue
		}
		batch.Results = append(batch.Results, Result{
			OutputFile:           r.OutputFile,
			OriginalSize:         r.InputSize,
			EncodedSize:          r.OutputSize,
			SizeReductionPercent: util.CalculateSizeReduction(r.InputSize, r.OutputSize),
			ValidationPassed:     r.ValidationPassed,
			EncodingSpeed:        r.EncodingSpeed,
		})
	}
	batch.SuccessfulCount = summary.SuccessfulCount
	batch.ValidationPassedCount = summary.ValidationPassedCount
	batch.TotalSizeReduction = util.CalculateSizeReduction(summary.TotalInputSize, summary.TotalOutputSize)

	return batch, nil
}

// FindVideos finds video files in a directory.
func FindVideos(dir string) ([]string, error) {
	return discovery.FindVideoFiles(dir)
}

// ParseCRF parses a CLI-style CRF specification: either a single value
// applied to all three quality tiers ("27") or a comma-separated SD,HD,UHD
// triple ("25,27,29"). Each value must be an integer in [0,63].
func ParseCRF(s string) (sd, hd, uhd uint8, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, 0, fmt.Errorf("CRF value must not be empty")
	}

	parts := strings.Split(s, ",")
	switch len(parts) {
	case 1:
		v, err := parseCRFComponent(parts[0])
		if err != nil {
			return 0, 0, 0, err
		}
		return v, v, v, nil
	case 3:
		sdVal, err := parseCRFComponent(parts[0])
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid SD CRF: %w", err)
		}
		hdVal, err := parseCRFComponent(parts[1])
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid HD CRF: %w", err)
		}
		uhdVal, err := parseCRFComponent(parts[2])
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid UHD CRF: %w", err)
		}
		return sdVal, hdVal, uhdVal, nil
	default:
		return 0, 0, 0, fmt.Errorf("CRF must be a single value or SD,HD,UHD triple, got %d values", len(parts))
	}
}

func parseCRFComponent(s string) (uint8, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if v < 0 || v > 63 {
		return 0, fmt.Errorf("CRF must be 0-63, got %d", v)
	}
	return uint8(v), nil
}
