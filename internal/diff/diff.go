package diff

import (
	"time"

	"github.com/franz/photo-tidy/internal/catalog"
	"github.com/franz/photo-tidy/internal/dupes"
)

// Diff is an immutable deletion plan derived from one grouping pass. It is a
// pure value: creating it touches nothing, and it stays valid to inspect even
// after an apply fails halfway through.
type Diff struct {
	CreatedAt time.Time
	Ops       []GroupOp
}

// GroupOp is the planned work for one duplicate group: merge the doomed
// copies' metadata into the keeper, then delete them.
type GroupOp struct {
	Keep     catalog.AssetID
	Favorite bool              // any doomed copy was a favorite
	Albums   []catalog.AlbumID // union of the doomed copies' albums
	Delete   []Target
	Bytes    int64
}

// Target is one asset queued for deletion
type Target struct {
	ID    catalog.AssetID
	Bytes int64
}

// Create builds the deletion plan for the given groups. Metadata on the
// copies to delete is folded into each group's op so the keeper inherits it
// before anything is removed.
func Create(groups []dupes.Group) *Diff {
	d := &Diff{CreatedAt: time.Now()}

	for i := range groups {
		g := &groups[i]
		op := GroupOp{Keep: g.ToKeep.ID}

		for _, doomed := range g.ToDelete {
			if doomed.Favorite {
				op.Favorite = true
			}
			op.Albums = catalog.MergeAlbums(op.Albums, doomed.Albums)
			op.Delete = append(op.Delete, Target{ID: doomed.ID, Bytes: doomed.SizeBytes})
			op.Bytes += doomed.SizeBytes
		}

		if len(op.Delete) > 0 {
			d.Ops = append(d.Ops, op)
		}
	}

	return d
}

// BytesToDelete returns the total bytes this plan would reclaim
func (d *Diff) BytesToDelete() int64 {
	var total int64
	for i := range d.Ops {
		total += d.Ops[i].Bytes
	}
	return total
}

// NumDeletes returns the total number of assets this plan would remove
func (d *Diff) NumDeletes() int {
	var n int
	for i := range d.Ops {
		n += len(d.Ops[i].Delete)
	}
	return n
}
