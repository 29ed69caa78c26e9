package diff

import (
	"testing"
	"time"

	"github.com/franz/photo-tidy/internal/catalog"
	"github.com/franz/photo-tidy/internal/dupes"
)

func asset(id string, size int64, favorite bool, albums ...string) catalog.Asset {
	a := catalog.Asset{
		ID:         catalog.AssetID(id),
		SizeBytes:  size,
		Favorite:   favorite,
		ModifiedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	for _, al := range albums {
		a.Albums = append(a.Albums, catalog.AlbumID(al))
	}
	return a
}

func TestCreateFoldsMetadata(t *testing.T) {
	groups := []dupes.Group{
		{
			ToKeep: asset("keep", 100, false),
			ToDelete: []catalog.Asset{
				asset("d1", 10, true, "vacation"),
				asset("d2", 20, false, "vacation", "family"),
			},
		},
	}

	d := Create(groups)

	if len(d.Ops) != 1 {
		t.Fatalf("expected 1 op, got %d", len(d.Ops))
	}
	op := d.Ops[0]
	if op.Keep != "keep" {
		t.Errorf("keep = %s, want keep", op.Keep)
	}
	if !op.Favorite {
		t.Errorf("favorite flag from d1 not folded in")
	}
	if len(op.Albums) != 2 || op.Albums[0] != "family" || op.Albums[1] != "vacation" {
		t.Errorf("albums = %v, want sorted union [family vacation]", op.Albums)
	}
	if op.Bytes != 30 {
		t.Errorf("bytes = %d, want 30", op.Bytes)
	}
	if len(op.Delete) != 2 {
		t.Errorf("delete targets = %d, want 2", len(op.Delete))
	}
}

func TestCreateSkipsEmptyGroups(t *testing.T) {
	groups := []dupes.Group{
		{ToKeep: asset("keep", 100, false)},
	}

	d := Create(groups)
	if len(d.Ops) != 0 {
		t.Errorf("group with nothing to delete must produce no op")
	}
}

func TestDiffAggregates(t *testing.T) {
	groups := []dupes.Group{
		{
			ToKeep:   asset("k1", 0, false),
			ToDelete: []catalog.Asset{asset("d1", 10, false), asset("d2", 20, false)},
		},
		{
			ToKeep:   asset("k2", 0, false),
			ToDelete: []catalog.Asset{asset("d3", 5, false)},
		},
	}

	d := Create(groups)

	if got := d.NumDeletes(); got != 3 {
		t.Errorf("NumDeletes = %d, want 3", got)
	}
	if got := d.BytesToDelete(); got != 35 {
		t.Errorf("BytesToDelete = %d, want 35", got)
	}
}
