package ffrunner

import (
	"context"
	"encoding/json"
	"os/exec"
	"strconv"
	"strings"

	"github.com/five82/drapto/internal/errors"
)

// probeDocument mirrors ffprobe's `-show_format -show_streams` JSON shape.
type probeDocument struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

type probeStream struct {
	Index            int    `json:"index"`
	CodecType        string `json:"codec_type"`
	CodecName        string `json:"codec_name"`
	Profile          string `json:"profile"`
	Width            int64  `json:"width"`
	Height           int64  `json:"height"`
	Channels         int    `json:"channels"`
	Duration         string `json:"duration"`
	NbFrames         string `json:"nb_frames"`
	RFrameRate       string `json:"r_frame_rate"`
	ColorPrimaries   string `json:"color_primaries"`
	ColorTransfer    string `json:"color_transfer"`
	ColorSpace       string `json:"color_space"`
	BitsPerRawSample string `json:"bits_per_raw_sample"`
}

// RunProbe invokes the metadata probe tool (ffprobe) on inputPath and
// parses its structured document into a MediaInfo.
func RunProbe(ctx context.Context, inputPath string) (*MediaInfo, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	)

	output, err := cmd.Output()
	if err != nil {
		stderr := ""
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr = string(exitErr.Stderr)
		}
		return nil, errors.WrapExecError("ffprobe", err, stderr)
	}

	var doc probeDocument
	if err := json.Unmarshal(output, &doc); err != nil {
		return nil, errors.NewExternalToolParse("malformed ffprobe document for "+inputPath, err)
	}

	if len(doc.Streams) == 0 {
		return nil, errors.NewNoStreamsFound(inputPath)
	}

	info := &MediaInfo{}
	if doc.Format.Duration != "" {
		if d, err := strconv.ParseFloat(doc.Format.Duration, 64); err == nil {
			info.FormatDuration = d
		}
	}

	for _, s := range doc.Streams {
		props := map[string]string{
			"width":               strconv.FormatInt(s.Width, 10),
			"height":              strconv.FormatInt(s.Height, 10),
			"channels":            strconv.Itoa(s.Channels),
			"duration":            s.Duration,
			"nb_frames":           s.NbFrames,
			"r_frame_rate":        s.RFrameRate,
			"color_primaries":     s.ColorPrimaries,
			"color_transfer":      s.ColorTransfer,
			"color_space":         s.ColorSpace,
			"bits_per_raw_sample": s.BitsPerRawSample,
		}
		info.Streams = append(info.Streams, Stream{
			Index:      s.Index,
			Kind:       StreamKind(s.CodecType),
			CodecName:  s.CodecName,
			Profile:    s.Profile,
			Properties: props,
		})
	}

	return info, nil
}

func parseUintProp(props map[string]string, key string) uint64 {
	v, err := strconv.ParseUint(props[key], 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseUint8Prop(props map[string]string, key string) (uint8, bool) {
	v, err := strconv.ParseUint(props[key], 10, 8)
	if err != nil {
		return 0, false
	}
	return uint8(v), true
}

func parseFloatProp(props map[string]string, key string) float64 {
	v, err := strconv.ParseFloat(props[key], 64)
	if err != nil {
		return 0
	}
	return v
}

// parseFrameRate parses ffprobe's "num/den" r_frame_rate field.
func parseFrameRate(s string) float64 {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

func containsCI(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
