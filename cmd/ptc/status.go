package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/franz/photo-tidy/internal/dupes"
	"github.com/franz/photo-tidy/internal/store"
	"github.com/franz/photo-tidy/internal/transcode"
	"github.com/franz/photo-tidy/internal/util"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show library state and reclaimable space at a glance",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func printStatusCounts(db *store.Store) {
	counts, err := db.CountAssets()
	if err != nil {
		util.WarnLog("Failed to count assets: %v", err)
		return
	}

	util.InfoLog("")
	util.InfoLog("Database status:")
	if n := counts["ready"]; n > 0 {
		util.InfoLog("  Ready: %d assets", n)
	}
	if n := counts["discovered"]; n > 0 {
		util.InfoLog("  Pending probe: %d assets", n)
	}
	if n := counts["error"]; n > 0 {
		util.WarnLog("  Errors: %d assets", n)
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	// Interrupted scan?
	if progress, err := db.GetScanProgress(); err == nil && progress != nil {
		util.WarnLog("A scan is in progress or was interrupted (%d files walked, last: %s)",
			progress.FilesProcessed, progress.LastProcessedPath)
		util.WarnLog("Run: ptc scan")
	}

	printStatusCounts(db)

	library := newLibrary(db)
	assets, err := library.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list assets: %w", err)
	}
	if len(assets) == 0 {
		util.InfoLog("")
		util.InfoLog("No scanned assets yet. Run: ptc scan")
		return nil
	}

	var rows [][]string

	for _, rule := range dupes.AllRules {
		result := dupes.Find(assets, rule)
		brief := result.BriefStatus(false)
		badge := brief.Badge
		if badge == "" {
			badge = "-"
		}
		rows = append(rows, []string{"dupes: " + string(rule), badge})
	}

	codec := transcode.NewFFmpeg(transcodeProfile())
	scanner := transcode.NewScanner(codec, nil)
	if err := scanner.Scan(context.Background(), assets); err != nil {
		return err
	}
	brief := scanner.BriefStatus()
	badge := brief.Badge
	if badge == "" {
		badge = "-"
	}
	rows = append(rows, []string{"transcode", badge})

	fmt.Println(renderTable(
		[]string{"Feature", "Reclaimable"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	))

	totals, err := db.GetTotals()
	if err != nil {
		return fmt.Errorf("failed to read totals: %w", err)
	}
	if totals.AssetsDeleted > 0 || totals.AssetsReplaced > 0 {
		util.InfoLog("")
		util.InfoLog("Lifetime savings:")
		if totals.AssetsDeleted > 0 {
			util.InfoLog("  Deleted %d duplicates (%s)",
				totals.AssetsDeleted, humanize.IBytes(uint64(totals.BytesDeleted)))
		}
		if totals.AssetsReplaced > 0 {
			util.InfoLog("  Re-encoded %d videos (%s)",
				totals.AssetsReplaced, humanize.IBytes(uint64(totals.BytesRecovered)))
		}
	}
	return nil
}
