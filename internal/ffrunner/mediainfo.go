// Package ffrunner spawns the external video toolchain (ffprobe / ffmpeg)
// and exposes its output in two shapes: a blocking, parsed probe and a
// streaming, event-based processing run.
package ffrunner

// StreamKind identifies the kind of a stream in a probed document.
type StreamKind string

const (
	StreamVideo    StreamKind = "video"
	StreamAudio    StreamKind = "audio"
	StreamSubtitle StreamKind = "subtitle"
	StreamData     StreamKind = "data"
)

// Stream is one entry in MediaInfo's stream list.
type Stream struct {
	Index      int
	Kind       StreamKind
	CodecName  string
	Profile    string
	Properties map[string]string
}

// HDRInfo captures the color metadata that determines dynamic range.
type HDRInfo struct {
	IsHDR                   bool
	ColorPrimaries          string
	TransferCharacteristics string
	MatrixCoefficients      string
	BitDepth                *uint8
}

// VideoProperties is the derived view of the primary video stream.
type VideoProperties struct {
	Width        uint32
	Height       uint32
	DurationSecs float64
	ColorSpace   string
	MatrixCoeffs string
	HDRInfo      HDRInfo
}

// AudioStreamInfo describes one audio stream in source order.
type AudioStreamInfo struct {
	Index     int
	Channels  uint32
	CodecName string
	Profile   string
}

// MediaInfo is a read-only snapshot of a probed media file.
// It is built once by RunProbe and is immutable for the remainder of a run.
type MediaInfo struct {
	Streams        []Stream
	FormatDuration float64 // format-level duration, seconds; 0 if absent
}

// VideoProperties returns the derived properties of the first video stream.
// HDR is inferred per the shared rule in DetectHDR.
func (m *MediaInfo) VideoProperties() (VideoProperties, bool) {
	for _, s := range m.Streams {
		if s.Kind != StreamVideo {
			continue
		}
		width := parseUintProp(s.Properties, "width")
		height := parseUintProp(s.Properties, "height")
		primaries := s.Properties["color_primaries"]
		transfer := s.Properties["color_transfer"]
		matrix := s.Properties["color_space"]
		var bitDepth *uint8
		if bd, ok := parseUint8Prop(s.Properties, "bits_per_raw_sample"); ok {
			bitDepth = &bd
		}
		return VideoProperties{
			Width:        uint32(width),
			Height:       uint32(height),
			DurationSecs: m.Duration(),
			ColorSpace:   matrix,
			MatrixCoeffs: matrix,
			HDRInfo: HDRInfo{
				IsHDR:                   DetectHDR(primaries, transfer, matrix),
				ColorPrimaries:          primaries,
				TransferCharacteristics: transfer,
				MatrixCoefficients:      matrix,
				BitDepth:                bitDepth,
			},
		}, true
	}
	return VideoProperties{}, false
}

// AudioStreams returns the audio streams in source order.
func (m *MediaInfo) AudioStreams() []AudioStreamInfo {
	var out []AudioStreamInfo
	idx := 0
	for _, s := range m.Streams {
		if s.Kind != StreamAudio {
			continue
		}
		channels := parseUintProp(s.Properties, "channels")
		if channels == 0 {
			continue
		}
		out = append(out, AudioStreamInfo{
			Index:     idx,
			Channels:  uint32(channels),
			CodecName: s.CodecName,
			Profile:   s.Profile,
		})
		idx++
	}
	return out
}

// Duration derives the media's duration in seconds, trying, in priority
// order: the primary video stream's own duration, the container format
// duration, and finally frame-count/frame-rate derivation. Returns 0 (the
// caller is expected to warn) if all three are unavailable.
func (m *MediaInfo) Duration() float64 {
	for _, s := range m.Streams {
		if s.Kind != StreamVideo {
			continue
		}
		if d := parseFloatProp(s.Properties, "duration"); d > 0 {
			return d
		}
		break
	}
	if m.FormatDuration > 0 {
		return m.FormatDuration
	}
	for _, s := range m.Streams {
		if s.Kind != StreamVideo {
			continue
		}
		frames := parseFloatProp(s.Properties, "nb_frames")
		rate := parseFrameRate(s.Properties["r_frame_rate"])
		if frames > 0 && rate > 0 {
			return frames / rate
		}
		break
	}
	return 0
}

// AudioDurationSecs derives the duration of the first audio stream, falling
// back to the container format duration when the stream carries none. Used
// by Validator's A/V sync check, which needs video and audio
// durations measured independently rather than a single overall duration.
func (m *MediaInfo) AudioDurationSecs() float64 {
	for _, s := range m.Streams {
		if s.Kind != StreamAudio {
			continue
		}
		if d := parseFloatProp(s.Properties, "duration"); d > 0 {
			return d
		}
		break
	}
	return m.FormatDuration
}

// FrameRate returns the primary video stream's frame rate in frames per
// second, derived from r_frame_rate, or 0 if it cannot be parsed. Used by
// the orchestrator to estimate the total frame count of an encode.
func (m *MediaInfo) FrameRate() float64 {
	for _, s := range m.Streams {
		if s.Kind != StreamVideo {
			continue
		}
		return parseFrameRate(s.Properties["r_frame_rate"])
	}
	return 0
}

// VideoCodecName returns the codec name of the first video stream.
func (m *MediaInfo) VideoCodecName() (string, bool) {
	for _, s := range m.Streams {
		if s.Kind == StreamVideo {
			return s.CodecName, true
		}
	}
	return "", false
}

// DetectHDR implements the shared HDR classification rule:
// HDR is true iff any of color_primaries/transfer_characteristics/
// matrix_coefficients match known HDR tags. Used identically by Probe and
// by Validator's output re-classification.
func DetectHDR(primaries, transfer, matrix string) bool {
	if containsCI(primaries, "bt2020") || containsCI(primaries, "bt.2020") || containsCI(primaries, "bt2100") || containsCI(primaries, "bt.2100") {
		return true
	}
	if containsCI(transfer, "pq") || containsCI(transfer, "smpte2084") || containsCI(transfer, "smpte 2084") || containsCI(transfer, "hlg") || containsCI(transfer, "arib-std-b67") {
		return true
	}
	if containsCI(matrix, "bt2020") || containsCI(matrix, "bt.2020") {
		return true
	}
	return false
}
