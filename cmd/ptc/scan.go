package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/photo-tidy/internal/scan"
	"github.com/franz/photo-tidy/internal/util"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the library and fingerprint its media files",
	Long: `Scan the library directory for photos and videos.

This command performs two operations:
1. Discovery: Walks the library and registers every media file
2. Probing: Fingerprints file content and reads video stream properties

Assets are tracked in the database. An interrupted scan resumes where it
left off. With --watch the scanner stays running and rescans whenever the
library changes.`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().Int("concurrency", 0, "probe worker count (default 8)")
	scanCmd.Flags().Bool("watch", false, "keep running and rescan on changes")
	viper.BindPFlag("concurrency", scanCmd.Flags().Lookup("concurrency"))
}

func runScan(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	library, err := requireLibrary()
	if err != nil {
		return err
	}
	if _, err := os.Stat(library); os.IsNotExist(err) {
		return fmt.Errorf("library directory does not exist: %s", library)
	}

	concurrency := viper.GetInt("concurrency")
	if concurrency <= 0 {
		concurrency = 8
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

	scanner := scan.New(&scan.Config{
		Store:       db,
		Concurrency: concurrency,
		Logger:      logger,
	})

	if !scan.CheckFFprobeAvailable() {
		util.WarnLog("ffprobe not found in PATH - video properties will be missing")
		util.WarnLog("Install ffmpeg for full functionality: https://ffmpeg.org/")
	}

	runOnce := func() error {
		startTime := time.Now()
		result, err := scanner.Scan(ctx, library)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		util.SuccessLog("Scan finished in %v", time.Since(startTime).Round(time.Millisecond))
		util.InfoLog("  New assets: %d", result.AssetsDiscovered)
		util.InfoLog("  Known assets: %d", result.AssetsKnown)
		util.InfoLog("  Probed: %d", result.AssetsProbed)
		if result.ProbeErrors > 0 {
			util.WarnLog("  Probe errors: %d", result.ProbeErrors)
		}
		return nil
	}

	if err := runOnce(); err != nil {
		return err
	}

	watch, _ := cmd.Flags().GetBool("watch")
	if !watch {
		printStatusCounts(db)
		util.InfoLog("")
		util.InfoLog("Next step: ptc dupes")
		return nil
	}

	err = scan.Watch(ctx, library, func() {
		if err := runOnce(); err != nil {
			util.ErrorLog("Rescan failed: %v", err)
		}
	})
	if err == context.Canceled {
		return nil
	}
	return err
}
