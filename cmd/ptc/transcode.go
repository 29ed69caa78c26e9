package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/franz/photo-tidy/internal/store"
	"github.com/franz/photo-tidy/internal/transcode"
	"github.com/franz/photo-tidy/internal/util"
)

var transcodeCmd = &cobra.Command{
	Use:   "transcode",
	Short: "Estimate and apply video re-encoding savings",
}

var transcodeScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Estimate how much space re-encoding videos would save",
	Long: `Estimate the size of each video after re-encoding with the configured
profile and list the ones worth converting. A video qualifies when the
estimate saves at least 5% of its current size.

Nothing is re-encoded; use "ptc transcode apply" for that.`,
	RunE: runTranscodeScan,
}

var transcodeApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Re-encode qualifying videos and swap in the smaller files",
	Long: `Re-encode the qualifying videos in batches and atomically replace each
original with its smaller version. Favorites, albums and asset identity
survive the swap. A failed run leaves completed batches applied; re-run to
continue.`,
	RunE: runTranscodeApply,
}

func init() {
	rootCmd.AddCommand(transcodeCmd)
	transcodeCmd.AddCommand(transcodeScanCmd)
	transcodeCmd.AddCommand(transcodeApplyCmd)

	transcodeApplyCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	transcodeApplyCmd.Flags().Int("batch-size", 0, "re-encodes per batch (default 8)")
	transcodeApplyCmd.Flags().Int("limit", 0, "re-encode at most this many videos")
}

// transcodeProfile builds the encoding profile from config
func transcodeProfile() transcode.Profile {
	return transcode.Profile{
		Codec: GetConfigString("transcode.codec", "hevc"),
		CRF:   GetConfigInt("transcode.crf", 28),
	}
}

// scanForCandidates lists ready assets and runs the transcode scanner
func scanForCandidates(ctx context.Context, db *store.Store) (*transcode.Scanner, []transcode.Candidate, error) {
	library := newLibrary(db)
	assets, err := library.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list assets: %w", err)
	}

	codec := transcode.NewFFmpeg(transcodeProfile())
	scanner := transcode.NewScanner(codec, nil)
	if err := scanner.Scan(ctx, assets); err != nil {
		return nil, nil, fmt.Errorf("transcode scan failed: %w", err)
	}
	return scanner, scanner.ReadyToApply(), nil
}

func runTranscodeScan(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scanner, candidates, err := scanForCandidates(ctx, db)
	if err != nil {
		return err
	}

	scanned := scanner.Scanned()
	if len(scanned) == 0 {
		util.SuccessLog("No videos to estimate")
		return nil
	}

	var rows [][]string
	for _, c := range scanned {
		eligible := "yes"
		if !c.Eligible {
			eligible = "no"
		}
		savings := "-"
		if s := c.SavingsBytes(); s > 0 {
			savings = humanize.IBytes(uint64(s))
		}
		rows = append(rows, []string{
			c.Asset.Path,
			fmt.Sprintf("%dx%d", c.Asset.Width, c.Asset.Height),
			humanize.IBytes(uint64(c.Asset.SizeBytes)),
			humanize.IBytes(uint64(c.EstimatedBytes)),
			savings,
			eligible,
		})
	}

	fmt.Println(renderTable(
		[]string{"Video", "Resolution", "Size", "Estimated", "Savings", "Eligible"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	))

	util.InfoLog("")
	util.InfoLog("%d of %d videos qualify, ready to recover %s",
		len(candidates), len(scanned), humanize.IBytes(uint64(scanner.ReadySavingsBytes())))
	if total, ok := scanner.EstimatedEventualSavingsBytes(); ok {
		util.InfoLog("Eventual savings including in-flight work: %s",
			humanize.IBytes(uint64(total)))
	}
	util.InfoLog("Next step: ptc transcode apply")
	return nil
}

func runTranscodeApply(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	if !transcode.CheckFFmpegAvailable() {
		return fmt.Errorf("ffmpeg not found in PATH, install it first: https://ffmpeg.org/")
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	logger := newEventLogger()
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scanner, candidates, err := scanForCandidates(ctx, db)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		util.SuccessLog("No videos worth re-encoding")
		return nil
	}

	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && limit < len(candidates) {
		candidates = candidates[:limit]
	}

	var predicted int64
	for _, c := range candidates {
		predicted += c.SavingsBytes()
	}
	util.InfoLog("Plan: re-encode %d videos, predicted savings %s",
		len(candidates), humanize.IBytes(uint64(predicted)))

	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		if !confirm(fmt.Sprintf("Re-encode %d videos?", len(candidates))) {
			util.InfoLog("Aborted")
			return nil
		}
	}

	batchSize, _ := cmd.Flags().GetInt("batch-size")
	library := newLibrary(db)
	applier := transcode.NewApplier(&transcode.ApplierConfig{
		Catalog:   library,
		Codec:     transcode.NewFFmpeg(transcodeProfile()),
		Scanner:   scanner,
		BatchSize: batchSize,
		Logger:    logger,
	})

	var batchNum int
	err = applier.ReplaceWithTranscoded(ctx, candidates, func(e transcode.Event) {
		switch ev := e.(type) {
		case transcode.PreparingBatch:
			batchNum++
			util.InfoLog("Batch %d: re-encoding %d videos", batchNum, ev.Size)
		case transcode.AppliedSavings:
			util.InfoLog("Batch %d: recovered %s across %d videos",
				batchNum, humanize.IBytes(uint64(ev.Stats.Bytes)), ev.Stats.Count)
			if err := db.AddRecovered(ev.Stats.Bytes, int64(ev.Stats.Count)); err != nil {
				util.WarnLog("Failed to record totals: %v", err)
			}
		}
	})
	if err != nil {
		return fmt.Errorf("transcode apply failed: %w", err)
	}

	saved, count := scanner.AppliedSavingsBytes()
	util.SuccessLog("Recovered %s by re-encoding %d videos",
		humanize.IBytes(uint64(saved)), count)
	return nil
}
