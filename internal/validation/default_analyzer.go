package validation

import (
	"context"

	"github.com/five82/drapto/internal/ffrunner"
)

// DefaultAnalyzer implements MediaAnalyzer by re-probing files with ffprobe
// via internal/ffrunner, the same probe path the pipeline uses for inputs.
type DefaultAnalyzer struct{}

// NewDefaultAnalyzer creates a new DefaultAnalyzer instance.
func NewDefaultAnalyzer() *DefaultAnalyzer {
	return &DefaultAnalyzer{}
}

func (a *DefaultAnalyzer) probe(path string) (*ffrunner.MediaInfo, error) {
	return ffrunner.RunProbe(context.Background(), path)
}

// GetVideoProperties returns video stream properties using ffprobe.
func (a *DefaultAnalyzer) GetVideoProperties(path string) (*AnalyzerVideoProperties, error) {
	info, err := a.probe(path)
	if err != nil {
		return nil, err
	}
	props, _ := info.VideoProperties()
	return &AnalyzerVideoProperties{
		Width:        props.Width,
		Height:       props.Height,
		DurationSecs: props.DurationSecs,
		BitDepth:     props.HDRInfo.BitDepth,
	}, nil
}

// GetAudioStreams returns audio stream information using ffprobe.
func (a *DefaultAnalyzer) GetAudioStreams(path string) ([]AnalyzerAudioStream, error) {
	info, err := a.probe(path)
	if err != nil {
		return nil, err
	}
	streams := info.AudioStreams()
	result := make([]AnalyzerAudioStream, len(streams))
	for i, s := range streams {
		result[i] = AnalyzerAudioStream{
			Codec:    s.CodecName,
			Channels: int(s.Channels),
		}
	}
	return result, nil
}

// GetVideoCodec returns the video codec name using ffprobe.
func (a *DefaultAnalyzer) GetVideoCodec(path string) (string, error) {
	info, err := a.probe(path)
	if err != nil {
		return "", err
	}
	name, _ := info.VideoCodecName()
	return name, nil
}

// GetHDRInfo returns HDR detection information re-derived from the output's
// own color metadata, using the same classification rule the input probe uses.
func (a *DefaultAnalyzer) GetHDRInfo(path string) (*AnalyzerHDRInfo, error) {
	info, err := a.probe(path)
	if err != nil {
		return nil, err
	}
	props, _ := info.VideoProperties()
	return &AnalyzerHDRInfo{
		IsHDR:    props.HDRInfo.IsHDR,
		BitDepth: props.HDRInfo.BitDepth,
	}, nil
}

// GetAudioDurationSecs returns the first audio stream's duration.
func (a *DefaultAnalyzer) GetAudioDurationSecs(path string) (float64, error) {
	info, err := a.probe(path)
	if err != nil {
		return 0, err
	}
	return info.AudioDurationSecs(), nil
}

// IsHDRDetectionAvailable is always true: HDR classification is derived from
// the same ffprobe document as every other check, not a separate tool.
func (a *DefaultAnalyzer) IsHDRDetectionAvailable() bool {
	return true
}
