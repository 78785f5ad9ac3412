// Package config provides configuration types and defaults for drapto.
package config

import "errors"

// Sentinel errors for configuration validation.
var (
	// ErrInvalidCRF indicates a CRF value outside the valid 0-63 range.
	ErrInvalidCRF = errors.New("CRF value out of range")

	// ErrInvalidSVTPreset indicates an SVT-AV1 preset outside the valid 0-13 range.
	ErrInvalidSVTPreset = errors.New("SVT-AV1 preset out of range")

	// ErrInvalidConcurrency indicates max_analysis_concurrency was set below 1.
	ErrInvalidConcurrency = errors.New("max analysis concurrency out of range")
)
