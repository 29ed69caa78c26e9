package dupes

import (
	"sort"

	"github.com/franz/photo-tidy/internal/catalog"
)

// rankMembers orders a group's members best-first. The best member becomes
// the keeper; the rest are deleted in ranking order.
//
// Ranking: quality proxy descending (pixel area, then bitrate when the area
// is unknown), newer modification date, larger size, then ascending asset id
// so repeated runs over the same snapshot always agree.
func rankMembers(members []catalog.Asset) []catalog.Asset {
	ranked := make([]catalog.Asset, len(members))
	copy(ranked, members)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := &ranked[i], &ranked[j]

		qa, qb := qualityProxy(a), qualityProxy(b)
		if qa != qb {
			return qa > qb
		}
		if !a.ModifiedAt.Equal(b.ModifiedAt) {
			return a.ModifiedAt.After(b.ModifiedAt)
		}
		if a.SizeBytes != b.SizeBytes {
			return a.SizeBytes > b.SizeBytes
		}
		return a.ID < b.ID
	})

	return ranked
}

// qualityProxy estimates relative quality of two copies of the same content.
// Pixel area dominates; bitrate breaks ties when dimensions are unknown or
// identical.
func qualityProxy(a *catalog.Asset) int64 {
	// Area in the high bits, bitrate in the low bits, so bitrate only ever
	// decides between copies of equal dimensions
	return a.PixelArea()<<20 + int64(a.BitrateKbps)
}
