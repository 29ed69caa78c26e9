package diff

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/franz/photo-tidy/internal/catalog"
	"github.com/franz/photo-tidy/internal/report"
	"github.com/franz/photo-tidy/internal/util"
)

// DefaultBatchSize is the number of deletions grouped into one catalog call
const DefaultBatchSize = 64

// Applier applies a deletion plan against the catalog. Deletions run in
// batches; each group's metadata merge lands before any of its copies are
// queued for deletion, so a failure mid-plan never loses a favorite flag or
// an album membership.
type Applier struct {
	catalog   catalog.Catalog
	batchSize int
	logger    *report.EventLogger
}

// Config holds applier configuration
type Config struct {
	Catalog   catalog.Catalog
	BatchSize int // 0 = DefaultBatchSize
	Logger    *report.EventLogger
}

// New creates a new Applier
func New(cfg *Config) *Applier {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = report.NullLogger()
	}
	return &Applier{
		catalog:   cfg.Catalog,
		batchSize: cfg.BatchSize,
		logger:    logger,
	}
}

// DeleteStats summarizes one completed apply
type DeleteStats struct {
	Bytes int64
	Count int
}

// Apply runs the plan to completion. It returns either stats for the whole
// plan or an error, never both: a failure anywhere leaves already-deleted
// copies gone but reports no partial stats, because the catalog does not say
// whether an interrupted batch landed. All failures surface as a
// catalog.CancelledOrAmbiguousError for the same reason.
func (a *Applier) Apply(ctx context.Context, d *Diff) (*DeleteStats, error) {
	total := d.NumDeletes()
	if total == 0 {
		return &DeleteStats{}, nil
	}

	util.InfoLog("Applying deletion plan: %d assets in %d groups", total, len(d.Ops))

	var deleted atomic.Int64

	progressCtx, cancelProgress := context.WithCancel(ctx)
	defer cancelProgress()

	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-progressCtx.Done():
				return
			case <-ticker.C:
				n := deleted.Load()
				if n > 0 {
					percentage := float64(n) / float64(total) * 100
					util.InfoLog("Deleting: %d/%d (%.1f%%)", n, total, percentage)
				}
			}
		}
	}()

	flush := func(batch []Target) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		ids := make([]catalog.AssetID, len(batch))
		var bytes int64
		for i, t := range batch {
			ids[i] = t.ID
			bytes += t.Bytes
		}
		util.DebugLog("Deleting %d assets", len(batch))
		if err := a.catalog.DeleteBatch(ctx, ids); err != nil {
			a.logger.LogDelete(len(batch), 0, err)
			return fmt.Errorf("delete batch of %d: %w", len(batch), err)
		}
		deleted.Add(int64(len(batch)))
		a.logger.LogDelete(len(batch), bytes, nil)
		return nil
	}

	var pending []Target

	for i := range d.Ops {
		op := &d.Ops[i]

		if err := ctx.Err(); err != nil {
			return nil, catalog.CancelledOrError(err)
		}

		if op.Favorite || len(op.Albums) > 0 {
			if err := a.catalog.MergeMetadata(ctx, op.Keep, op.Favorite, op.Albums); err != nil {
				a.logger.LogMerge(string(op.Keep), op.Favorite, len(op.Albums), err)
				return nil, catalog.CancelledOrError(
					fmt.Errorf("merge metadata into %s: %w", op.Keep, err))
			}
			a.logger.LogMerge(string(op.Keep), op.Favorite, len(op.Albums), nil)
		}

		pending = append(pending, op.Delete...)
		for len(pending) >= a.batchSize {
			if err := flush(pending[:a.batchSize]); err != nil {
				return nil, catalog.CancelledOrError(err)
			}
			pending = pending[a.batchSize:]
		}
	}

	if len(pending) > 0 {
		if err := flush(pending); err != nil {
			return nil, catalog.CancelledOrError(err)
		}
	}

	stats := &DeleteStats{
		Bytes: d.BytesToDelete(),
		Count: total,
	}
	util.SuccessLog("Deleted %d assets", stats.Count)
	return stats, nil
}
