package scan

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"os/exec"
	"strconv"
	"time"

	"github.com/spf13/afero"

	"github.com/franz/photo-tidy/internal/util"
)

// VideoInfo holds the stream properties probing extracts from a video
type VideoInfo struct {
	DurationMs  int
	Width       int
	Height      int
	BitrateKbps int
	CreatedUnix int64 // 0 if the container carries no creation time
}

// Prober extracts stream properties from a video file
type Prober interface {
	Probe(path string) (*VideoInfo, error)
}

// FFprobeInfo represents the output from ffprobe
type FFprobeInfo struct {
	Streams []FFprobeStream `json:"streams"`
	Format  *FFprobeFormat  `json:"format"`
}

// IntOrString can unmarshal both integers and strings from JSON
type IntOrString struct {
	Value int
}

// UnmarshalJSON implements custom unmarshaling for IntOrString
func (i *IntOrString) UnmarshalJSON(data []byte) error {
	var intVal int
	if err := json.Unmarshal(data, &intVal); err == nil {
		i.Value = intVal
		return nil
	}

	var strVal string
	if err := json.Unmarshal(data, &strVal); err != nil {
		return err
	}

	if strVal == "" || strVal == "N/A" {
		i.Value = 0
		return nil
	}

	parsed, err := strconv.Atoi(strVal)
	if err != nil {
		i.Value = 0
		return nil
	}

	i.Value = parsed
	return nil
}

// FFprobeStream represents one stream of a media container
type FFprobeStream struct {
	Index     int         `json:"index"`
	CodecName string      `json:"codec_name"`
	CodecType string      `json:"codec_type"`
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	Duration  string      `json:"duration"`
	BitRate   IntOrString `json:"bit_rate"`
}

// FFprobeFormat represents container format metadata
type FFprobeFormat struct {
	Filename   string            `json:"filename"`
	FormatName string            `json:"format_name"`
	Duration   string            `json:"duration"`
	Size       string            `json:"size"`
	BitRate    IntOrString       `json:"bit_rate"`
	Tags       map[string]string `json:"tags"`
}

// FFprobeProber is the Prober backed by the ffprobe binary on PATH
type FFprobeProber struct{}

// Probe executes ffprobe and extracts the video stream properties
func (FFprobeProber) Probe(path string) (*VideoInfo, error) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return nil, util.ErrNotFound
	}

	cmd := exec.Command("ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("ffprobe failed: %s", string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("ffprobe execution failed: %w", err)
	}

	var info FFprobeInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	return extractVideoInfo(&info)
}

func extractVideoInfo(info *FFprobeInfo) (*VideoInfo, error) {
	v := &VideoInfo{}

	for _, s := range info.Streams {
		if s.CodecType != "video" {
			continue
		}
		v.Width = s.Width
		v.Height = s.Height
		if s.Duration != "" {
			v.DurationMs = parseDurationMs(s.Duration)
		}
		if s.BitRate.Value > 0 {
			v.BitrateKbps = s.BitRate.Value / 1000
		}
		break
	}

	if info.Format != nil {
		if v.DurationMs == 0 && info.Format.Duration != "" {
			v.DurationMs = parseDurationMs(info.Format.Duration)
		}
		if v.BitrateKbps == 0 && info.Format.BitRate.Value > 0 {
			v.BitrateKbps = info.Format.BitRate.Value / 1000
		}
		if created, ok := info.Format.Tags["creation_time"]; ok {
			if t, err := time.Parse(time.RFC3339, created); err == nil {
				v.CreatedUnix = t.Unix()
			}
		}
	}

	if v.DurationMs == 0 && v.Width == 0 {
		return nil, fmt.Errorf("%w: no video stream found", util.ErrUnsupported)
	}
	return v, nil
}

// parseDurationMs parses an ffprobe duration string ("12.345") to millis
func parseDurationMs(s string) int {
	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(seconds * 1000)
}

// CheckFFprobeAvailable checks if ffprobe is available in PATH
func CheckFFprobeAvailable() bool {
	_, err := exec.LookPath("ffprobe")
	return err == nil
}

// Fingerprint computes the hex SHA1 of the file's content
func Fingerprint(afs afero.Fs, path string) (string, error) {
	f, err := afs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

const (
	printWindows    = 64
	printWindowSize = 2048
)

// SimilarityPrint computes a 64-bit content signature for near-duplicate
// matching. The file is sampled at 64 evenly spaced windows; each window
// contributes one bit, so trims and re-muxes of the same footage land within
// a small Hamming distance while unrelated files diverge on about half the
// bits.
func SimilarityPrint(afs afero.Fs, path string, size int64) (uint64, error) {
	if size <= 0 {
		return 0, nil
	}

	f, err := afs.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var print uint64
	window := make([]byte, printWindowSize)
	stride := size / printWindows

	for i := 0; i < printWindows; i++ {
		offset := int64(i) * stride
		n, err := f.ReadAt(window, offset)
		if err != nil && err != io.EOF {
			return 0, err
		}
		if n == 0 {
			continue
		}

		h := fnv.New64a()
		h.Write(window[:n])
		if h.Sum64()&1 == 1 {
			print |= 1 << uint(i)
		}
	}

	// Zero is reserved for "not computed"
	if print == 0 {
		print = 1
	}
	return print, nil
}
