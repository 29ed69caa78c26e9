package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/franz/photo-tidy/internal/diff"
	"github.com/franz/photo-tidy/internal/dupes"
	"github.com/franz/photo-tidy/internal/util"
)

var dupesCmd = &cobra.Command{
	Use:   "dupes",
	Short: "Show duplicate groups and reclaimable space",
	Long: `Group scanned assets into duplicate sets and show what a cleanup would
reclaim. Three rules run over the library:

  exact-photos    photos with identical content
  exact-videos    videos with identical content
  similar-videos  near-identical videos (trims, re-muxes, quality variants)

Nothing is deleted; use "ptc dupes apply" for that.`,
	RunE: runDupes,
}

var dupesApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Delete duplicate copies, keeping the best of each group",
	Long: `Delete the redundant copies found by the duplicate rules.

Before any copy is deleted, its favorite flag and album memberships are
merged into the kept copy. Deletions run in batches; an interrupted run can
simply be re-run after the next scan.`,
	RunE: runDupesApply,
}

func init() {
	rootCmd.AddCommand(dupesCmd)
	dupesCmd.AddCommand(dupesApplyCmd)

	dupesCmd.Flags().String("rule", "", "only this rule (exact-photos, exact-videos, similar-videos)")
	dupesApplyCmd.Flags().String("rule", "", "only this rule")
	dupesApplyCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	dupesApplyCmd.Flags().Int("batch-size", 0, "deletions per batch (default 64)")
}

// selectedRules returns the rules to run, honoring the --rule flag
func selectedRules(cmd *cobra.Command) ([]dupes.MatchRule, error) {
	ruleFlag, _ := cmd.Flags().GetString("rule")
	if ruleFlag == "" {
		return dupes.AllRules, nil
	}
	for _, r := range dupes.AllRules {
		if string(r) == ruleFlag {
			return []dupes.MatchRule{r}, nil
		}
	}
	return nil, fmt.Errorf("unknown rule: %s", ruleFlag)
}

func runDupes(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	rules, err := selectedRules(cmd)
	if err != nil {
		return err
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	library := newLibrary(db)
	assets, err := library.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list assets: %w", err)
	}
	if len(assets) == 0 {
		util.InfoLog("No scanned assets. Run: ptc scan")
		return nil
	}

	var rows [][]string
	var totalBytes int64
	var totalAssets int

	for _, rule := range rules {
		result := dupes.Find(assets, rule)
		totalBytes += result.BytesToDelete()
		totalAssets += result.NumAssetsToDelete()

		rows = append(rows, []string{
			string(rule),
			fmt.Sprintf("%d", len(result.Groups)),
			fmt.Sprintf("%d", result.NumAssetsToDelete()),
			humanize.IBytes(uint64(result.BytesToDelete())),
		})
	}

	fmt.Println(renderTable(
		[]string{"Rule", "Groups", "Deletable", "Reclaimable"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
	))

	if totalAssets == 0 {
		util.SuccessLog("No duplicates found")
		return nil
	}
	util.InfoLog("")
	util.InfoLog("Total: %d deletable copies, %s reclaimable",
		totalAssets, humanize.IBytes(uint64(totalBytes)))
	util.InfoLog("Next step: ptc dupes apply")
	return nil
}

func runDupesApply(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	rules, err := selectedRules(cmd)
	if err != nil {
		return err
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

	library := newLibrary(db)
	assets, err := library.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list assets: %w", err)
	}

	var groups []dupes.Group
	for _, rule := range rules {
		result := dupes.Find(assets, rule)
		logger.LogDiff(string(rule), len(result.Groups),
			result.NumAssetsToDelete(), result.BytesToDelete())
		groups = append(groups, result.Groups...)
	}

	plan := diff.Create(groups)
	if plan.NumDeletes() == 0 {
		util.SuccessLog("No duplicates to delete")
		return nil
	}

	util.InfoLog("Plan: delete %d copies, reclaim %s",
		plan.NumDeletes(), humanize.IBytes(uint64(plan.BytesToDelete())))

	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		if !confirm(fmt.Sprintf("Delete %d assets?", plan.NumDeletes())) {
			util.InfoLog("Aborted")
			return nil
		}
	}

	batchSize, _ := cmd.Flags().GetInt("batch-size")
	applier := diff.New(&diff.Config{
		Catalog:   library,
		BatchSize: batchSize,
		Logger:    logger,
	})

	stats, err := applier.Apply(ctx, plan)
	if err != nil {
		return fmt.Errorf("apply failed: %w", err)
	}

	if err := db.AddDeleted(stats.Bytes, int64(stats.Count)); err != nil {
		util.WarnLog("Failed to record totals: %v", err)
	}

	util.SuccessLog("Reclaimed %s by deleting %d duplicate copies",
		humanize.IBytes(uint64(stats.Bytes)), stats.Count)
	return nil
}

// confirm asks the user a yes/no question on stdin
func confirm(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
