package transcode

import (
	"context"

	"github.com/franz/photo-tidy/internal/catalog"
)

// Profile describes the target encoding for re-compression
type Profile struct {
	Codec string // "hevc" or "h264"
	CRF   int
}

// DefaultProfile is HEVC at a quality level where re-encodes of typical
// camera footage are visually transparent
func DefaultProfile() Profile {
	return Profile{Codec: "hevc", CRF: 28}
}

// Codec estimates and performs video re-encodes. Estimation must be cheap
// (no decoding); transcoding writes a complete new file at outputPath and
// never touches the source.
type Codec interface {
	// EstimateSize predicts the re-encoded size of the asset from its
	// probed stream properties
	EstimateSize(a *catalog.Asset) (int64, error)

	// Transcode re-encodes the asset's file into outputPath
	Transcode(ctx context.Context, a *catalog.Asset, outputPath string) error
}
