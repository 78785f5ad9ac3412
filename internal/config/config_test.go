package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/input", "/output", "/log")

	if cfg.InputDir != "/input" {
		t.Errorf("expected InputDir=/input, got %s", cfg.InputDir)
	}
	if cfg.OutputDir != "/output" {
		t.Errorf("expected OutputDir=/output, got %s", cfg.OutputDir)
	}
	if cfg.LogDir != "/log" {
		t.Errorf("expected LogDir=/log, got %s", cfg.LogDir)
	}

	if cfg.SVTAV1Preset != DefaultSVTAV1Preset {
		t.Errorf("expected SVTAV1Preset=%d, got %d", DefaultSVTAV1Preset, cfg.SVTAV1Preset)
	}
	if cfg.SVTAV1Tune != DefaultSVTAV1Tune {
		t.Errorf("expected SVTAV1Tune=%d, got %d", DefaultSVTAV1Tune, cfg.SVTAV1Tune)
	}
	if cfg.CRFSD != DefaultCRFSD || cfg.CRFHD != DefaultCRFHD || cfg.CRFUHD != DefaultCRFUHD {
		t.Errorf("unexpected CRF defaults: sd=%d hd=%d uhd=%d", cfg.CRFSD, cfg.CRFHD, cfg.CRFUHD)
	}
	if cfg.TargetVideoCodec != "libsvtav1" || cfg.PixelFormat != "yuv420p10le" || cfg.TargetAudioCodec != "libopus" {
		t.Errorf("unexpected codec defaults: %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name         string
		modify       func(*Config)
		wantErr      bool
		wantSentinel error
	}{
		{
			name:    "default config is valid",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:         "preset 14 is invalid",
			modify:       func(c *Config) { c.SVTAV1Preset = 14 },
			wantErr:      true,
			wantSentinel: ErrInvalidSVTPreset,
		},
		{
			name:    "preset 13 is valid",
			modify:  func(c *Config) { c.SVTAV1Preset = 13 },
			wantErr: false,
		},
		{
			name:         "crf_sd 64 is invalid",
			modify:       func(c *Config) { c.CRFSD = 64 },
			wantErr:      true,
			wantSentinel: ErrInvalidCRF,
		},
		{
			name:         "crf_hd 64 is invalid",
			modify:       func(c *Config) { c.CRFHD = 64 },
			wantErr:      true,
			wantSentinel: ErrInvalidCRF,
		},
		{
			name:         "crf_uhd 64 is invalid",
			modify:       func(c *Config) { c.CRFUHD = 64 },
			wantErr:      true,
			wantSentinel: ErrInvalidCRF,
		},
		{
			name:         "zero max analysis concurrency is invalid",
			modify:       func(c *Config) { c.MaxAnalysisConcurrency = 0 },
			wantErr:      true,
			wantSentinel: ErrInvalidConcurrency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("/input", "/output", "/log")
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantSentinel != nil && !errors.Is(err, tt.wantSentinel) {
				t.Errorf("Validate() error = %v, want sentinel %v", err, tt.wantSentinel)
			}
		})
	}
}

func TestCRFForWidth(t *testing.T) {
	cfg := NewConfig("/input", "/output", "/log")

	tests := []struct {
		width    uint32
		expected uint8
	}{
		{1280, cfg.CRFSD}, // SD
		{1919, cfg.CRFSD}, // SD (below HD threshold)
		{1920, cfg.CRFHD}, // HD
		{2560, cfg.CRFHD}, // HD
		{3839, cfg.CRFHD}, // HD (below UHD threshold)
		{3840, cfg.CRFUHD}, // UHD
		{7680, cfg.CRFUHD}, // UHD (8K)
	}

	for _, tt := range tests {
		got := cfg.CRFForWidth(tt.width)
		if got != tt.expected {
			t.Errorf("CRFForWidth(%d) = %d, want %d", tt.width, got, tt.expected)
		}
	}
}

func TestConfigLoadMissingPathKeepsDefaults(t *testing.T) {
	cfg := NewConfig("/input", "/output", "/log")
	if err := cfg.Load(""); err != nil {
		t.Fatalf("Load(\"\") with no config files present: %v", err)
	}
	if cfg.CRFSD != DefaultCRFSD {
		t.Errorf("expected defaults to survive a missing config file, got CRFSD=%d", cfg.CRFSD)
	}
}

func TestConfigLoadExplicitPathNotFound(t *testing.T) {
	cfg := NewConfig("/input", "/output", "/log")
	if err := cfg.Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected an error for a missing explicit --config path")
	}
}

func TestConfigLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "drapto.toml")
	contents := "crf_hd = 30\nsvt_av1_preset = 8\ndisable_autocrop = true\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config fixture: %v", err)
	}

	cfg := NewConfig("/input", "/output", "/log")
	if err := cfg.Load(path); err != nil {
		t.Fatalf("Load(%q): %v", path, err)
	}

	if cfg.CRFHD != 30 {
		t.Errorf("expected crf_hd=30 from file, got %d", cfg.CRFHD)
	}
	if cfg.SVTAV1Preset != 8 {
		t.Errorf("expected svt_av1_preset=8 from file, got %d", cfg.SVTAV1Preset)
	}
	if !cfg.DisableCrop {
		t.Error("expected disable_autocrop=true from file")
	}
	// Fields the file didn't mention keep NewConfig's defaults.
	if cfg.CRFSD != DefaultCRFSD {
		t.Errorf("expected crf_sd to keep its default, got %d", cfg.CRFSD)
	}
}
