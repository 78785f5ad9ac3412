// Package main provides the CLI entry point for Drapto.
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/five82/drapto"
	"github.com/five82/drapto/internal/config"
	"github.com/five82/drapto/internal/discovery"
	"github.com/five82/drapto/internal/errors"
	"github.com/five82/drapto/internal/logging"
	"github.com/five82/drapto/internal/pipeline"
	"github.com/five82/drapto/internal/reporter"
	"github.com/five82/drapto/internal/util"
)

const appVersion = "0.2.0"

// errEncodingFailed signals a per-file failure that the reporter has already
// rendered; main exits 1 without printing it a second time.
var errEncodingFailed = stderrors.New("encoding failed")

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if !stderrors.Is(err, context.Canceled) && !stderrors.Is(err, errEncodingFailed) && !errors.IsCancelled(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "drapto",
		Short:         "Opinionated AV1 transcoding with SVT-AV1",
		Version:       appVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newEncodeCommand())
	return root
}

// encodeFlags holds the parsed flags for the encode command.
type encodeFlags struct {
	input          string
	output         string
	configPath     string
	logDir         string
	verbose        bool
	crf            string
	crfSD          uint8
	crfHD          uint8
	crfUHD         uint8
	preset         uint8
	disableCrop    bool
	disableDenoise bool
	responsive     bool
	noLog          bool
	progressJSON   bool
}

func newEncodeCommand() *cobra.Command {
	var f encodeFlags

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode one video file or every video file in a directory to AV1",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(cmd, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.input, "input", "i", "", "Input video file or directory (required)")
	flags.StringVarP(&f.output, "output", "o", "", "Output directory, or .mkv filename for a single-file input (required)")
	flags.StringVarP(&f.configPath, "config", "c", "", "Path to a drapto.toml config file")
	flags.StringVar(&f.logDir, "log-dir", "", "Log directory (defaults to ~/.local/state/drapto/logs)")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "Enable verbose (debug) logging")
	flags.StringVar(&f.crf, "crf", "", "CRF quality (0-63). Single value or SD,HD,UHD triple")
	flags.Uint8Var(&f.crfSD, "crf-sd", 0, "CRF quality for SD content (<1920 width)")
	flags.Uint8Var(&f.crfHD, "crf-hd", 0, "CRF quality for HD content (>=1920 width)")
	flags.Uint8Var(&f.crfUHD, "crf-uhd", 0, "CRF quality for UHD content (>=3840 width)")
	flags.Uint8Var(&f.preset, "preset", 0, "SVT-AV1 encoder preset (0-13, lower is slower/better)")
	flags.BoolVar(&f.disableCrop, "disable-crop", false, "Disable automatic black-bar crop detection")
	flags.BoolVar(&f.disableDenoise, "disable-denoise", false, "Disable noise-adaptive denoise and film grain synthesis")
	flags.BoolVar(&f.responsive, "responsive", false, "Reserve CPU threads for host responsiveness")
	flags.BoolVar(&f.noLog, "no-log", false, "Disable the file log sink")
	flags.BoolVar(&f.progressJSON, "progress-json", false, "Emit line-delimited JSON progress events on stdout instead of terminal output")

	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runEncode(cmd *cobra.Command, f encodeFlags) error {
	ctx := cmd.Context()

	inputPath, err := filepath.Abs(f.input)
	if err != nil {
		return fmt.Errorf("invalid input path: %w", err)
	}
	inputInfo, err := os.Stat(inputPath)
	if err != nil {
		return fmt.Errorf("input path does not exist: %s", inputPath)
	}

	outInfo, err := util.ResolveOutputArg(inputPath, f.output)
	if err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	outputDir, err := filepath.Abs(outInfo.OutputDir)
	if err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	if err := util.EnsureDirectory(outputDir); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	logDir := f.logDir
	if logDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		logDir = filepath.Join(homeDir, ".local", "state", "drapto", "logs")
	}

	cfg := config.NewConfig(inputPath, outputDir, logDir)
	if err := cfg.Load(f.configPath); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if f.crf != "" {
		sd, hd, uhd, err := drapto.ParseCRF(f.crf)
		if err != nil {
			return fmt.Errorf("invalid --crf value: %w", err)
		}
		cfg.CRFSD, cfg.CRFHD, cfg.CRFUHD = sd, hd, uhd
	}
	flags := cmd.Flags()
	if flags.Changed("crf-sd") {
		cfg.CRFSD = f.crfSD
	}
	if flags.Changed("crf-hd") {
		cfg.CRFHD = f.crfHD
	}
	if flags.Changed("crf-uhd") {
		cfg.CRFUHD = f.crfUHD
	}
	if flags.Changed("preset") {
		cfg.SVTAV1Preset = f.preset
	}
	if f.disableCrop {
		cfg.DisableCrop = true
	}
	if f.disableDenoise {
		cfg.DisableDenoise = true
	}
	if f.responsive {
		cfg.ResponsiveEncoding = true
	}
	cfg.LogDir = logDir
	cfg.NoLog = f.noLog
	cfg.Verbose = f.verbose
	cfg.ProgressJSON = f.progressJSON

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.Setup(cfg.LogDir, cfg.Verbose, cfg.NoLog)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if logger != nil {
		defer func() { _ = logger.Close() }()
		logging.SetGlobal(logger)
	}

	var filesToProcess []string
	if inputInfo.IsDir() {
		var discLogger discovery.Logger
		if logger != nil {
			discLogger = logger.Logger
		}
		found, err := discovery.FindVideoFilesWithLogging(inputPath, discLogger)
		if err != nil {
			return fmt.Errorf("failed to discover video files: %w", err)
		}
		filesToProcess = found.Files
	} else {
		filesToProcess = []string{inputPath}
		if logger != nil {
			logger.Info("processing single file", "path", inputPath)
		}
	}

	if logger != nil {
		logger.Info("encode configuration",
			"output_dir", outputDir,
			"crf_sd", cfg.CRFSD, "crf_hd", cfg.CRFHD, "crf_uhd", cfg.CRFUHD,
			"svt_av1_preset", cfg.SVTAV1Preset,
			"disable_crop", cfg.DisableCrop,
			"disable_denoise", cfg.DisableDenoise,
			"responsive", cfg.ResponsiveEncoding,
		)
	}

	rep := buildReporter(cfg)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-runCtx.Done():
		}
	}()

	summary, err := pipeline.ProcessBatch(runCtx, cfg, filesToProcess, outputDir, outInfo.FilenameOverride, rep)
	if err != nil {
		return err
	}

	// A failed file inside a directory batch has already been reported and
	// does not affect the exit code; a failed single-file run exits 1.
	if !inputInfo.IsDir() && summary.AnyFailed() {
		return errEncodingFailed
	}

	rep.OperationComplete(fmt.Sprintf("%d of %d file(s) encoded", summary.SuccessfulCount, summary.TotalFiles))
	return nil
}

// buildReporter picks the presentation back-end: the human terminal renderer
// by default, or pure line-delimited JSON on stdout when --progress-json is
// set. The two are never interleaved.
func buildReporter(cfg *config.Config) reporter.Reporter {
	if cfg.ProgressJSON {
		return reporter.NewJSONReporter()
	}
	return reporter.NewTerminalReporter()
}
