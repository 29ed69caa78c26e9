package catalog

import (
	"context"
	"slices"
	"time"
)

// AssetID uniquely identifies an asset in the catalog
type AssetID string

// AlbumID uniquely identifies an album
type AlbumID string

// MediaKind distinguishes photos from videos
type MediaKind string

const (
	KindPhoto MediaKind = "photo"
	KindVideo MediaKind = "video"
)

// Asset is one photo or video known to the catalog. Identity is immutable;
// the favorite flag and album memberships are the mutable metadata that gets
// transferred when a duplicate copy is deleted.
type Asset struct {
	ID         AssetID
	Path       string
	SizeBytes  int64
	CreatedAt  time.Time
	ModifiedAt time.Time
	Kind       MediaKind
	Favorite   bool
	Albums     []AlbumID // sorted, no duplicates

	// Fingerprint is the hex SHA1 of file content, used for exact matching.
	// Empty if the file could not be read.
	Fingerprint string

	// SimilarityPrint is a 64-bit signature used for near-duplicate video
	// matching by Hamming distance. Zero means not computed (photos, or
	// videos that failed probing).
	SimilarityPrint uint64

	// Video-only stream properties from probing
	DurationMs  int
	Width       int
	Height      int
	BitrateKbps int
}

// PixelArea returns the frame area used as the primary quality proxy
func (a *Asset) PixelArea() int64 {
	return int64(a.Width) * int64(a.Height)
}

// HasAlbum reports whether the asset is a member of the given album
func (a *Asset) HasAlbum(id AlbumID) bool {
	for _, al := range a.Albums {
		if al == id {
			return true
		}
	}
	return false
}

// Catalog is the capability boundary to the asset library. All mutation of
// user media goes through these four calls; the engines never touch files
// directly. A previously read snapshot is never assumed to auto-refresh.
type Catalog interface {
	// List returns a snapshot of all assets
	List(ctx context.Context) ([]Asset, error)

	// MergeMetadata merges a favorite flag (logical OR) and album
	// memberships (set union) into the given asset
	MergeMetadata(ctx context.Context, into AssetID, favorite bool, albums []AlbumID) error

	// DeleteBatch irreversibly removes the given assets
	DeleteBatch(ctx context.Context, ids []AssetID) error

	// Replace atomically swaps the asset's content for the file at
	// contentPath, preserving identity and metadata. The original must
	// survive any failure before the swap is durable.
	Replace(ctx context.Context, id AssetID, contentPath string) error
}

// MergeAlbums returns the sorted union of two album membership sets
func MergeAlbums(a, b []AlbumID) []AlbumID {
	seen := make(map[AlbumID]bool, len(a)+len(b))
	out := make([]AlbumID, 0, len(a)+len(b))
	for _, set := range [][]AlbumID{a, b} {
		for _, id := range set {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	slices.Sort(out)
	return out
}
