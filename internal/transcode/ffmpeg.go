package transcode

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/franz/photo-tidy/internal/catalog"
	"github.com/franz/photo-tidy/internal/util"
)

// hevcBitsPerPixelPerSec is the observed average output density of libx265
// at the default CRF for typical camera footage. The estimate only has to be
// good enough to rank savings; the real size comes from the actual encode.
const hevcBitsPerPixelPerSec = 0.09

// containerOverheadBytes covers moov atoms and track headers on small files
const containerOverheadBytes = 64 * 1024

// FFmpeg is the Codec backed by the ffmpeg binary on PATH
type FFmpeg struct {
	profile Profile
}

// NewFFmpeg creates an ffmpeg-backed codec with the given profile
func NewFFmpeg(profile Profile) *FFmpeg {
	if profile.Codec == "" {
		profile = DefaultProfile()
	}
	return &FFmpeg{profile: profile}
}

// EstimateSize predicts the re-encoded size from duration and frame area.
// Probing must have populated both; assets without them are unsupported.
func (f *FFmpeg) EstimateSize(a *catalog.Asset) (int64, error) {
	if a.Kind != catalog.KindVideo {
		return 0, util.ErrUnsupported
	}
	if a.DurationMs <= 0 || a.PixelArea() == 0 {
		return 0, util.ErrUnsupported
	}

	seconds := float64(a.DurationMs) / 1000
	bits := float64(a.PixelArea()) * hevcBitsPerPixelPerSec * seconds
	return int64(bits/8) + containerOverheadBytes, nil
}

// Transcode re-encodes the asset into outputPath, copying the audio stream
func (f *FFmpeg) Transcode(ctx context.Context, a *catalog.Asset, outputPath string) error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return util.ErrNotFound
	}

	encoder, err := encoderFor(f.profile.Codec)
	if err != nil {
		return err
	}

	args := []string{
		"-y",
		"-v", "error",
		"-i", a.Path,
		"-c:v", encoder,
		"-crf", strconv.Itoa(f.profile.CRF),
		"-preset", "medium",
	}
	if f.profile.Codec == "hevc" {
		// hvc1 tag keeps the output playable in QuickTime and on iOS
		args = append(args, "-tag:v", "hvc1")
	}
	args = append(args, "-c:a", "copy", outputPath)

	util.DebugLog("Transcoding %s with %s crf %d", a.Path, encoder, f.profile.CRF)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg failed: %s", string(output))
	}
	return nil
}

func encoderFor(codec string) (string, error) {
	switch codec {
	case "hevc":
		return "libx265", nil
	case "h264":
		return "libx264", nil
	default:
		return "", fmt.Errorf("%w: codec %q", util.ErrInvalidConfig, codec)
	}
}

// CheckFFmpegAvailable checks if ffmpeg is available in PATH
func CheckFFmpegAvailable() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}
