package dupes

import (
	"testing"
	"time"

	"github.com/franz/photo-tidy/internal/catalog"
)

var baseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func photo(id, fingerprint string, size int64, modified time.Time) catalog.Asset {
	return catalog.Asset{
		ID:          catalog.AssetID(id),
		Path:        "/library/" + id + ".jpg",
		SizeBytes:   size,
		CreatedAt:   baseTime,
		ModifiedAt:  modified,
		Kind:        catalog.KindPhoto,
		Fingerprint: fingerprint,
	}
}

func video(id, fingerprint string, print uint64, created time.Time, durationMs int) catalog.Asset {
	return catalog.Asset{
		ID:              catalog.AssetID(id),
		Path:            "/library/" + id + ".mov",
		SizeBytes:       1 << 20,
		CreatedAt:       created,
		ModifiedAt:      created,
		Kind:            catalog.KindVideo,
		Fingerprint:     fingerprint,
		SimilarityPrint: print,
		DurationMs:      durationMs,
	}
}

func TestFindExactPhotosKeepsBest(t *testing.T) {
	// Three copies of the same photo. B has the newest modification date,
	// so it wins even though A is larger than C.
	assets := []catalog.Asset{
		photo("A", "fp1", 10, baseTime),
		photo("B", "fp1", 12, baseTime.Add(time.Hour)),
		photo("C", "fp1", 9, baseTime),
	}

	result := Find(assets, RuleExactPhotos)

	if len(result.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(result.Groups))
	}
	g := result.Groups[0]
	if g.ToKeep.ID != "B" {
		t.Errorf("expected to keep B, got %s", g.ToKeep.ID)
	}
	if len(g.ToDelete) != 2 {
		t.Fatalf("expected 2 deletable copies, got %d", len(g.ToDelete))
	}
	if got := g.BytesToDelete(); got != 19 {
		t.Errorf("expected 19 bytes to delete, got %d", got)
	}
}

func TestFindExactPartition(t *testing.T) {
	assets := []catalog.Asset{
		photo("A", "fp1", 10, baseTime),
		photo("B", "fp1", 10, baseTime),
		photo("C", "fp2", 20, baseTime),
		photo("D", "fp2", 20, baseTime),
		photo("E", "fp2", 20, baseTime),
		photo("F", "fp3", 5, baseTime), // singleton, no group
	}

	result := Find(assets, RuleExactPhotos)

	if len(result.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(result.Groups))
	}

	seen := make(map[catalog.AssetID]int)
	for _, g := range result.Groups {
		seen[g.ToKeep.ID]++
		for _, a := range g.ToDelete {
			seen[a.ID]++
			if a.ID == g.ToKeep.ID {
				t.Errorf("keeper %s also listed for deletion", a.ID)
			}
		}
	}
	for _, id := range []catalog.AssetID{"A", "B", "C", "D", "E"} {
		if seen[id] != 1 {
			t.Errorf("asset %s appears %d times across groups, want 1", id, seen[id])
		}
	}
	if seen["F"] != 0 {
		t.Errorf("singleton F must not appear in any group")
	}
}

func TestFindExactSkipsUnfingerprinted(t *testing.T) {
	assets := []catalog.Asset{
		photo("A", "", 10, baseTime),
		photo("B", "", 10, baseTime),
		photo("C", "fp1", 10, baseTime),
	}

	result := Find(assets, RuleExactPhotos)
	if len(result.Groups) != 0 {
		t.Errorf("assets without fingerprints must not group, got %d groups", len(result.Groups))
	}
}

func TestFindExactFiltersByKind(t *testing.T) {
	v := video("V", "fp1", 1, baseTime, 1000)
	assets := []catalog.Asset{
		photo("A", "fp1", 10, baseTime),
		photo("B", "fp1", 10, baseTime),
		v,
	}

	photos := Find(assets, RuleExactPhotos)
	if len(photos.Groups) != 1 || len(photos.Groups[0].ToDelete) != 1 {
		t.Fatalf("expected one photo pair, got %+v", photos.Groups)
	}
	for _, g := range photos.Groups {
		if g.ToKeep.Kind != catalog.KindPhoto {
			t.Errorf("video leaked into photo rule")
		}
	}

	videos := Find(assets, RuleExactVideos)
	if len(videos.Groups) != 0 {
		t.Errorf("single video must not form a group")
	}
}

func TestFindDeterministic(t *testing.T) {
	forward := []catalog.Asset{
		photo("A", "fp2", 10, baseTime),
		photo("B", "fp1", 10, baseTime),
		photo("C", "fp2", 10, baseTime),
		photo("D", "fp1", 10, baseTime),
	}
	reversed := []catalog.Asset{forward[3], forward[2], forward[1], forward[0]}

	r1 := Find(forward, RuleExactPhotos)
	r2 := Find(reversed, RuleExactPhotos)

	if len(r1.Groups) != len(r2.Groups) {
		t.Fatalf("group counts differ: %d vs %d", len(r1.Groups), len(r2.Groups))
	}
	for i := range r1.Groups {
		if r1.Groups[i].ToKeep.ID != r2.Groups[i].ToKeep.ID {
			t.Errorf("group %d: keepers differ (%s vs %s)",
				i, r1.Groups[i].ToKeep.ID, r2.Groups[i].ToKeep.ID)
		}
	}
}

func TestSimilarVideosCandidatePairing(t *testing.T) {
	tests := []struct {
		name  string
		b     catalog.Asset
		match bool
	}{
		{
			name:  "identical properties",
			b:     video("B", "fpB", 0xFF00, baseTime, 10000),
			match: true,
		},
		{
			name:  "creation one second apart",
			b:     video("B", "fpB", 0xFF00, baseTime.Add(time.Second), 10000),
			match: true,
		},
		{
			name:  "creation too far apart",
			b:     video("B", "fpB", 0xFF00, baseTime.Add(2*time.Second), 10000),
			match: false,
		},
		{
			name:  "duration within tolerance",
			b:     video("B", "fpB", 0xFF00, baseTime, 11500),
			match: true,
		},
		{
			name:  "duration beyond tolerance",
			b:     video("B", "fpB", 0xFF00, baseTime, 11501),
			match: false,
		},
		{
			name:  "prints within hamming distance",
			b:     video("B", "fpB", 0xFF00^0x3FF, baseTime, 10000), // 10 bits flipped
			match: true,
		},
		{
			name:  "prints too far apart",
			b:     video("B", "fpB", 0xFF00^0x7FF, baseTime, 10000), // 11 bits flipped
			match: false,
		},
		{
			name:  "exact fingerprint pair left to exact rule",
			b:     video("B", "fpA", 0xFF00, baseTime, 10000),
			match: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := video("A", "fpA", 0xFF00, baseTime, 10000)
			result := Find([]catalog.Asset{a, tt.b}, RuleSimilarVideos)
			got := len(result.Groups) == 1
			if got != tt.match {
				t.Errorf("pairing = %v, want %v", got, tt.match)
			}
		})
	}
}

func TestSimilarVideosTransitiveCluster(t *testing.T) {
	// A matches B and B matches C, so all three cluster even though A and C
	// don't pair directly.
	a := video("A", "fpA", 0x0000, baseTime, 10000)
	b := video("B", "fpB", 0x00FF, baseTime, 10000) // 8 bits from A
	c := video("C", "fpC", 0x0FFF, baseTime, 10000) // 12 bits from A, 4 from B

	result := Find([]catalog.Asset{a, b, c}, RuleSimilarVideos)

	if len(result.Groups) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(result.Groups))
	}
	if got := len(result.Groups[0].ToDelete); got != 2 {
		t.Errorf("expected cluster of 3 (2 deletable), got %d deletable", got)
	}
}

func TestSimilarVideosSkipsUnprobed(t *testing.T) {
	a := video("A", "fpA", 0, baseTime, 10000)
	b := video("B", "fpB", 0, baseTime, 10000)

	result := Find([]catalog.Asset{a, b}, RuleSimilarVideos)
	if len(result.Groups) != 0 {
		t.Errorf("videos without similarity prints must not group")
	}
}

func TestGroupsAggregates(t *testing.T) {
	assets := []catalog.Asset{
		photo("A", "fp1", 100, baseTime),
		photo("B", "fp1", 200, baseTime.Add(time.Hour)),
		photo("C", "fp2", 50, baseTime),
		photo("D", "fp2", 60, baseTime.Add(time.Hour)),
		photo("E", "fp2", 70, baseTime.Add(2*time.Hour)),
	}

	result := Find(assets, RuleExactPhotos)

	if got := result.NumAssetsToDelete(); got != 3 {
		t.Errorf("NumAssetsToDelete = %d, want 3", got)
	}
	// fp1 keeps B (deletes 100), fp2 keeps E (deletes 50+60)
	if got := result.BytesToDelete(); got != 210 {
		t.Errorf("BytesToDelete = %d, want 210", got)
	}
}

func TestRankMembers(t *testing.T) {
	mk := func(id string, w, h, bitrate int, size int64, modified time.Time) catalog.Asset {
		a := photo(id, "fp", size, modified)
		a.Width = w
		a.Height = h
		a.BitrateKbps = bitrate
		return a
	}

	tests := []struct {
		name    string
		members []catalog.Asset
		want    catalog.AssetID
	}{
		{
			name: "pixel area wins over bitrate",
			members: []catalog.Asset{
				mk("A", 1920, 1080, 8000, 10, baseTime),
				mk("B", 3840, 2160, 2000, 10, baseTime),
			},
			want: "B",
		},
		{
			name: "bitrate breaks equal dimensions",
			members: []catalog.Asset{
				mk("A", 1920, 1080, 4000, 10, baseTime),
				mk("B", 1920, 1080, 8000, 10, baseTime),
			},
			want: "B",
		},
		{
			name: "newer modification date breaks equal quality",
			members: []catalog.Asset{
				mk("A", 0, 0, 0, 10, baseTime),
				mk("B", 0, 0, 0, 10, baseTime.Add(time.Minute)),
			},
			want: "B",
		},
		{
			name: "larger size breaks equal dates",
			members: []catalog.Asset{
				mk("A", 0, 0, 0, 10, baseTime),
				mk("B", 0, 0, 0, 20, baseTime),
			},
			want: "B",
		},
		{
			name: "asset id is the final tie-break",
			members: []catalog.Asset{
				mk("B", 0, 0, 0, 10, baseTime),
				mk("A", 0, 0, 0, 10, baseTime),
			},
			want: "A",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranked := rankMembers(tt.members)
			if ranked[0].ID != tt.want {
				t.Errorf("rankMembers picked %s, want %s", ranked[0].ID, tt.want)
			}
		})
	}
}
