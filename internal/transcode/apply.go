package transcode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/franz/photo-tidy/internal/catalog"
	"github.com/franz/photo-tidy/internal/report"
	"github.com/franz/photo-tidy/internal/util"
)

// DefaultBatchSize is the number of candidates transcoded per batch. Batches
// keep the temp-space high-water mark bounded and give the UI a natural
// heartbeat.
const DefaultBatchSize = 8

// Event is a progress notification from an apply run
type Event interface {
	applyEvent()
}

// PreparingBatch is emitted before each batch starts transcoding
type PreparingBatch struct {
	Size int
}

func (PreparingBatch) applyEvent() {}

// AppliedSavings is emitted after each batch's originals have been swapped
// out, carrying the realized savings of that batch
type AppliedSavings struct {
	Stats ReplaceStats
}

func (AppliedSavings) applyEvent() {}

// ReplaceStats summarizes the realized savings of one batch
type ReplaceStats struct {
	Bytes int64
	Count int
}

// Applier re-encodes candidates and swaps their originals for the smaller
// files. The swap goes through the catalog's atomic replace; at no point is
// the original deleted before the replacement is in place.
type Applier struct {
	catalog   catalog.Catalog
	codec     Codec
	scanner   *Scanner
	batchSize int
	logger    *report.EventLogger
}

// ApplierConfig holds applier configuration
type ApplierConfig struct {
	Catalog   catalog.Catalog
	Codec     Codec
	Scanner   *Scanner
	BatchSize int // 0 = DefaultBatchSize
	Logger    *report.EventLogger
}

// NewApplier creates an applier
func NewApplier(cfg *ApplierConfig) *Applier {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = report.NullLogger()
	}
	return &Applier{
		catalog:   cfg.Catalog,
		codec:     cfg.Codec,
		scanner:   cfg.Scanner,
		batchSize: cfg.BatchSize,
		logger:    logger,
	}
}

// ReplaceWithTranscoded works through the candidates in batches. Each batch
// announces itself with PreparingBatch and reports its realized savings with
// AppliedSavings once every original in it has been swapped. A failure stops
// the run: completed batches stay applied, and the error is wrapped as
// cancelled-or-ambiguous because an interrupted encode and a real failure
// look the same from outside.
func (ap *Applier) ReplaceWithTranscoded(ctx context.Context, candidates []Candidate, onEvent func(Event)) error {
	if onEvent == nil {
		onEvent = func(Event) {}
	}
	if len(candidates) == 0 {
		return nil
	}

	tempDir, err := os.MkdirTemp("", "ptc-transcode-")
	if err != nil {
		return catalog.CancelledOrError(fmt.Errorf("create temp dir: %w", err))
	}
	defer os.RemoveAll(tempDir)

	util.InfoLog("Transcoding %d candidates in batches of %d", len(candidates), ap.batchSize)

	for start := 0; start < len(candidates); start += ap.batchSize {
		end := start + ap.batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]

		onEvent(PreparingBatch{Size: len(batch)})

		var stats ReplaceStats
		for i := range batch {
			saved, err := ap.replaceOne(ctx, &batch[i], tempDir)
			if err != nil {
				return err
			}
			if saved < 0 {
				// Claimed by a concurrent apply, nothing to count
				continue
			}
			stats.Bytes += saved
			stats.Count++
		}

		onEvent(AppliedSavings{Stats: stats})
	}

	util.SuccessLog("Transcode apply complete")
	return nil
}

// replaceOne transcodes and swaps a single candidate. Returns -1 when the
// candidate was already claimed by another apply.
func (ap *Applier) replaceOne(ctx context.Context, c *Candidate, tempDir string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, catalog.CancelledOrError(err)
	}

	a := &c.Asset
	if !ap.scanner.BeginTranscode(a.ID) {
		util.DebugLog("Skipping %s: already being transcoded", a.Path)
		return -1, nil
	}

	outputPath := filepath.Join(tempDir, string(a.ID)+filepath.Ext(a.Path))

	started := time.Now()
	if err := ap.codec.Transcode(ctx, a, outputPath); err != nil {
		ap.scanner.Abort(a.ID)
		ap.logger.LogTranscode(string(a.ID), a.Path, time.Since(started), err)
		return 0, catalog.CancelledOrError(fmt.Errorf("transcode %s: %w", a.Path, err))
	}
	ap.logger.LogTranscode(string(a.ID), a.Path, time.Since(started), nil)
	ap.scanner.MarkTranscoded(a.ID)

	info, err := os.Stat(outputPath)
	if err != nil {
		ap.scanner.Abort(a.ID)
		return 0, catalog.CancelledOrError(fmt.Errorf("stat transcoded file: %w", err))
	}
	saved := a.SizeBytes - info.Size()

	if saved <= 0 {
		// The estimate was wrong and the encode grew the file; keep the
		// original and stop tracking the candidate
		util.WarnLog("Re-encode of %s saved nothing, keeping original", a.Path)
		ap.scanner.MarkApplied(a.ID, 0)
		os.Remove(outputPath)
		return 0, nil
	}

	if err := ap.catalog.Replace(ctx, a.ID, outputPath); err != nil {
		ap.scanner.Abort(a.ID)
		ap.logger.LogReplace(string(a.ID), 0, err)
		return 0, catalog.CancelledOrError(fmt.Errorf("replace %s: %w", a.Path, err))
	}
	ap.logger.LogReplace(string(a.ID), saved, nil)
	ap.scanner.MarkApplied(a.ID, saved)
	os.Remove(outputPath)

	return saved, nil
}
