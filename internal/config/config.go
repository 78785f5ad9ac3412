// Package config provides configuration types and defaults for drapto.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Default constants
const (
	// DefaultCRFSD is the default CRF quality setting for SD content (<1920 width).
	DefaultCRFSD uint8 = 25

	// DefaultCRFHD is the default CRF quality setting for HD content (>=1920, <3840 width).
	DefaultCRFHD uint8 = 27

	// DefaultCRFUHD is the default CRF quality setting for UHD content (>=3840 width).
	DefaultCRFUHD uint8 = 27

	// HDWidthThreshold is the minimum width for HD resolution.
	HDWidthThreshold uint32 = 1920

	// UHDWidthThreshold is the minimum width for UHD resolution.
	UHDWidthThreshold uint32 = 3840

	// DefaultSVTAV1Preset is the SVT-AV1 preset (0-13, lower is slower/better).
	DefaultSVTAV1Preset uint8 = 6

	// DefaultSVTAV1Tune is the SVT-AV1 tune parameter.
	DefaultSVTAV1Tune uint8 = 3

	// DefaultSVTAV1ACBias is the SVT-AV1 ac-bias parameter.
	DefaultSVTAV1ACBias float32 = 0.1

	// DefaultSVTAV1EnableVarianceBoost is whether variance boost is enabled.
	DefaultSVTAV1EnableVarianceBoost bool = false

	// DefaultSVTAV1VarianceBoostStrength is the variance boost strength.
	DefaultSVTAV1VarianceBoostStrength uint8 = 0

	// DefaultSVTAV1VarianceOctile is the variance octile parameter.
	DefaultSVTAV1VarianceOctile uint8 = 0

	// DefaultMaxAnalysisConcurrency bounds SampleScheduler's worker pool
	// alongside the logical CPU count.
	DefaultMaxAnalysisConcurrency int = 8

	// DefaultMemoryPerJobMB is the assumed per-sample memory cost used by
	// SampleScheduler's admission-control budget; floored to
	// 256 by the scheduler regardless of this value.
	DefaultMemoryPerJobMB uint64 = 512

	// DefaultTargetVideoCodec is the encoder's video codec.
	DefaultTargetVideoCodec = "libsvtav1"

	// DefaultPixelFormat is the 10-bit 4:2:0 pixel format required by
	// validation's bit-depth check.
	DefaultPixelFormat = "yuv420p10le"

	// DefaultTargetAudioCodec is the encoder's audio codec.
	DefaultTargetAudioCodec = "libopus"
)

// Config holds all configuration for video processing.
type Config struct {
	// Input/output paths
	InputDir  string `toml:"-"`
	OutputDir string `toml:"-"`
	LogDir    string `toml:"log_dir"`
	TempDir   string `toml:"temp_dir"` // Optional, defaults to the system temp root

	// SVT-AV1 parameters
	SVTAV1Preset                uint8   `toml:"svt_av1_preset"`
	SVTAV1Tune                  uint8   `toml:"svt_av1_tune"`
	SVTAV1ACBias                float32 `toml:"svt_av1_ac_bias"`
	SVTAV1EnableVarianceBoost   bool    `toml:"svt_av1_enable_variance_boost"`
	SVTAV1VarianceBoostStrength uint8   `toml:"svt_av1_variance_boost_strength"`
	SVTAV1VarianceOctile        uint8   `toml:"svt_av1_variance_octile"`

	// Quality settings (CRF value 0-63) by resolution
	CRFSD  uint8 `toml:"crf_sd"`  // CRF for SD content (<1920 width)
	CRFHD  uint8 `toml:"crf_hd"`  // CRF for HD content (>=1920, <3840 width)
	CRFUHD uint8 `toml:"crf_uhd"` // CRF for UHD content (>=3840 width)

	// Target codec/format strings, used to build the encoder invocation and
	// to check post-encode codec expectations.
	TargetVideoCodec string `toml:"target_video_codec"`
	PixelFormat      string `toml:"pixel_format"`
	TargetAudioCodec string `toml:"target_audio_codec"`

	// Processing options
	DisableCrop        bool `toml:"disable_autocrop"`    // Skip crop-detection sampling entirely
	DisableDenoise     bool `toml:"disable_denoise"`     // Skip the noise-adaptive denoise filter
	ResponsiveEncoding bool `toml:"responsive_encoding"` // Reserve CPU threads for host responsiveness

	// EncodeTimeoutSecs caps the encode stage's wall-clock time in seconds.
	// 0 means unlimited.
	EncodeTimeoutSecs uint64 `toml:"encode_timeout_secs"`

	// SampleScheduler tuning
	MaxAnalysisConcurrency int    `toml:"max_analysis_concurrency"`
	MemoryPerJobMB         uint64 `toml:"memory_per_job_mb"`

	// CLI/reporting options
	ProgressJSON bool `toml:"-"` // Emit line-delimited JSON instead of the terminal reporter
	NoLog        bool `toml:"-"` // Disable the file log sink
	Verbose      bool `toml:"-"` // Raise the log level to Debug
}

// NewConfig creates a new Config with default values.
func NewConfig(inputDir, outputDir, logDir string) *Config {
	return &Config{
		InputDir:                    inputDir,
		OutputDir:                   outputDir,
		LogDir:                      logDir,
		SVTAV1Preset:                DefaultSVTAV1Preset,
		SVTAV1Tune:                  DefaultSVTAV1Tune,
		SVTAV1ACBias:                DefaultSVTAV1ACBias,
		SVTAV1EnableVarianceBoost:   DefaultSVTAV1EnableVarianceBoost,
		SVTAV1VarianceBoostStrength: DefaultSVTAV1VarianceBoostStrength,
		SVTAV1VarianceOctile:        DefaultSVTAV1VarianceOctile,
		CRFSD:                       DefaultCRFSD,
		CRFHD:                       DefaultCRFHD,
		CRFUHD:                      DefaultCRFUHD,
		TargetVideoCodec:            DefaultTargetVideoCodec,
		PixelFormat:                 DefaultPixelFormat,
		TargetAudioCodec:            DefaultTargetAudioCodec,
		ResponsiveEncoding:          false,
		MaxAnalysisConcurrency:      DefaultMaxAnalysisConcurrency,
		MemoryPerJobMB:              DefaultMemoryPerJobMB,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.SVTAV1Preset > 13 {
		return fmt.Errorf("svt_av1_preset must be 0-13, got %d: %w", c.SVTAV1Preset, ErrInvalidSVTPreset)
	}
	if c.CRFSD > 63 {
		return fmt.Errorf("crf-sd must be 0-63, got %d: %w", c.CRFSD, ErrInvalidCRF)
	}
	if c.CRFHD > 63 {
		return fmt.Errorf("crf-hd must be 0-63, got %d: %w", c.CRFHD, ErrInvalidCRF)
	}
	if c.CRFUHD > 63 {
		return fmt.Errorf("crf-uhd must be 0-63, got %d: %w", c.CRFUHD, ErrInvalidCRF)
	}
	if c.MaxAnalysisConcurrency < 1 {
		return fmt.Errorf("max_analysis_concurrency must be at least 1, got %d: %w", c.MaxAnalysisConcurrency, ErrInvalidConcurrency)
	}
	return nil
}

// GetTempDir returns the configured temp base, or "" to mean the system
// default (os.TempDir()).
func (c *Config) GetTempDir() string {
	return c.TempDir
}

// Load reads an optional TOML config file and applies it on top of c's
// current values. A missing path is not an error: c is left untouched
// aside from path normalization. Only fields present in the file override
// c; zero-value TOML fields never clobber flag-set values because decoding
// merges into the existing struct rather than replacing it.
func (c *Config) Load(path string) error {
	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return err
	}
	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return fmt.Errorf("open config %s: %w", resolved, err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(c); err != nil {
			return fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}
	return c.normalize()
}

// resolveConfigPath follows lookup precedence: an explicit --config path (must
// exist), else ./drapto.toml in the working directory, else
// ~/.config/drapto/config.toml, else no file at all (defaults only).
func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			return "", false, fmt.Errorf("config file %s: %w", expanded, err)
		}
		return expanded, true, nil
	}

	if projectPath, err := filepath.Abs("drapto.toml"); err == nil {
		if info, statErr := os.Stat(projectPath); statErr == nil && !info.IsDir() {
			return projectPath, true, nil
		}
	}

	userPath, err := expandPath("~/.config/drapto/config.toml")
	if err != nil {
		return "", false, nil
	}
	if info, err := os.Stat(userPath); err == nil && !info.IsDir() {
		return userPath, true, nil
	}

	return "", false, nil
}

// normalize expands "~" in path-valued fields and clamps the handful of
// settings that must never land at zero through a file that only overrides
// part of the struct.
func (c *Config) normalize() error {
	var err error
	if c.LogDir, err = expandPath(c.LogDir); err != nil {
		return fmt.Errorf("log_dir: %w", err)
	}
	if c.TempDir, err = expandPath(c.TempDir); err != nil {
		return fmt.Errorf("temp_dir: %w", err)
	}
	if c.MaxAnalysisConcurrency <= 0 {
		c.MaxAnalysisConcurrency = DefaultMaxAnalysisConcurrency
	}
	if c.MemoryPerJobMB == 0 {
		c.MemoryPerJobMB = DefaultMemoryPerJobMB
	}
	c.TargetVideoCodec = strings.TrimSpace(c.TargetVideoCodec)
	if c.TargetVideoCodec == "" {
		c.TargetVideoCodec = DefaultTargetVideoCodec
	}
	c.PixelFormat = strings.TrimSpace(c.PixelFormat)
	if c.PixelFormat == "" {
		c.PixelFormat = DefaultPixelFormat
	}
	c.TargetAudioCodec = strings.TrimSpace(c.TargetAudioCodec)
	if c.TargetAudioCodec == "" {
		c.TargetAudioCodec = DefaultTargetAudioCodec
	}
	return nil
}

// expandPath resolves a leading "~" to the user's home directory and
// returns a cleaned absolute path. An empty input is passed through
// unchanged so optional fields like TempDir can mean "use the default".
func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// CRFForWidth returns the appropriate CRF value for the quality tier the
// video width falls in.
func (c *Config) CRFForWidth(width uint32) uint8 {
	if width >= UHDWidthThreshold {
		return c.CRFUHD
	}
	if width >= HDWidthThreshold {
		return c.CRFHD
	}
	return c.CRFSD
}
