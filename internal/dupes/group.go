package dupes

import (
	"math"
	"math/bits"
	"sort"

	"github.com/franz/photo-tidy/internal/catalog"
	"github.com/franz/photo-tidy/internal/report"
)

// MatchRule selects which duplicate criterion to group by
type MatchRule string

const (
	// RuleExactPhotos groups photos whose content fingerprints match exactly
	RuleExactPhotos MatchRule = "exact-photos"

	// RuleExactVideos groups videos whose content fingerprints match exactly
	RuleExactVideos MatchRule = "exact-videos"

	// RuleSimilarVideos groups videos whose creation dates and durations
	// match within tolerance and whose similarity prints are close
	RuleSimilarVideos MatchRule = "similar-videos"
)

// AllRules lists the match rules in presentation order
var AllRules = []MatchRule{RuleExactPhotos, RuleExactVideos, RuleSimilarVideos}

const (
	// createdToleranceSec is the creation-date tolerance for near-duplicate
	// candidate pairing
	createdToleranceSec = 1

	// durationToleranceMs is the duration tolerance for near-duplicate
	// candidate pairing (±1.5s)
	durationToleranceMs = 1500

	// maxPrintDistance is the maximum Hamming distance between similarity
	// prints for two videos to count as near-duplicates
	maxPrintDistance = 10
)

// Group is one duplicate group: the copy to keep and the ordered copies to
// delete. ToKeep never appears in ToDelete; ToDelete order is the quality
// ranking (most deletable first) and exists for presentation stability only.
type Group struct {
	ToKeep   catalog.Asset
	ToDelete []catalog.Asset
}

// BytesToDelete returns the total size of this group's deletable copies
func (g *Group) BytesToDelete() int64 {
	var total int64
	for _, a := range g.ToDelete {
		total += a.SizeBytes
	}
	return total
}

// Groups is the result of grouping one snapshot under one rule
type Groups struct {
	Rule   MatchRule
	Groups []Group
}

// BytesToDelete returns the total reclaimable bytes across all groups
func (g *Groups) BytesToDelete() int64 {
	var total int64
	for i := range g.Groups {
		total += g.Groups[i].BytesToDelete()
	}
	return total
}

// NumAssetsToDelete returns the total number of deletable copies
func (g *Groups) NumAssetsToDelete() int {
	var n int
	for i := range g.Groups {
		n += len(g.Groups[i].ToDelete)
	}
	return n
}

// BriefStatus summarizes this rule's reclaimable bytes for display
func (g *Groups) BriefStatus(scanning bool) report.BriefStatus {
	return report.Savings(scanning, g.BytesToDelete())
}

// Find groups a snapshot of assets under the given rule. Pure function: no
// side effects, deterministic for the same input. Assets without the
// fingerprint the rule needs are excluded, never an error.
func Find(assets []catalog.Asset, rule MatchRule) *Groups {
	switch rule {
	case RuleExactPhotos:
		return findExact(assets, catalog.KindPhoto, rule)
	case RuleExactVideos:
		return findExact(assets, catalog.KindVideo, rule)
	case RuleSimilarVideos:
		return findSimilarVideos(assets)
	default:
		return &Groups{Rule: rule}
	}
}

// findExact partitions assets of one kind by content fingerprint. Singleton
// buckets produce no group.
func findExact(assets []catalog.Asset, kind catalog.MediaKind, rule MatchRule) *Groups {
	buckets := make(map[string][]catalog.Asset)
	var order []string

	for _, a := range assets {
		if a.Kind != kind || a.Fingerprint == "" {
			continue
		}
		if _, seen := buckets[a.Fingerprint]; !seen {
			order = append(order, a.Fingerprint)
		}
		buckets[a.Fingerprint] = append(buckets[a.Fingerprint], a)
	}

	sort.Strings(order)

	result := &Groups{Rule: rule}
	for _, fp := range order {
		members := buckets[fp]
		if len(members) < 2 {
			continue
		}
		result.Groups = append(result.Groups, makeGroup(members))
	}
	return result
}

// findSimilarVideos clusters videos whose creation dates and durations match
// within tolerance and whose similarity prints are within maxPrintDistance.
// Pairs that are exact fingerprint matches are left to the exact rule, so
// this more expensive pass never re-reports the exact-duplicate pool.
func findSimilarVideos(assets []catalog.Asset) *Groups {
	var videos []catalog.Asset
	for _, a := range assets {
		if a.Kind != catalog.KindVideo || a.SimilarityPrint == 0 {
			continue
		}
		videos = append(videos, a)
	}

	// Union-find over candidate pairs
	parent := make([]int, len(videos))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for i := 0; i < len(videos); i++ {
		for j := i + 1; j < len(videos); j++ {
			if sameVideoCandidate(&videos[i], &videos[j]) {
				union(i, j)
			}
		}
	}

	clusters := make(map[int][]catalog.Asset)
	var roots []int
	for i := range videos {
		r := find(i)
		if _, seen := clusters[r]; !seen {
			roots = append(roots, r)
		}
		clusters[r] = append(clusters[r], videos[i])
	}

	result := &Groups{Rule: RuleSimilarVideos}
	for _, r := range roots {
		members := clusters[r]
		if len(members) < 2 {
			continue
		}
		result.Groups = append(result.Groups, makeGroup(members))
	}
	return result
}

func sameVideoCandidate(a, b *catalog.Asset) bool {
	if a.Fingerprint != "" && a.Fingerprint == b.Fingerprint {
		// Exact duplicates belong to the exact rule
		return false
	}
	createdDelta := math.Abs(a.CreatedAt.Sub(b.CreatedAt).Seconds())
	if createdDelta > createdToleranceSec {
		return false
	}
	durationDelta := a.DurationMs - b.DurationMs
	if durationDelta < 0 {
		durationDelta = -durationDelta
	}
	if durationDelta > durationToleranceMs {
		return false
	}
	distance := bits.OnesCount64(a.SimilarityPrint ^ b.SimilarityPrint)
	return distance <= maxPrintDistance
}

// makeGroup ranks members and splits them into keep and delete sets
func makeGroup(members []catalog.Asset) Group {
	ranked := rankMembers(members)
	return Group{
		ToKeep:   ranked[0],
		ToDelete: ranked[1:],
	}
}
