package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/franz/photo-tidy/internal/report"
	"github.com/franz/photo-tidy/internal/util"
)

var reportCmd = &cobra.Command{
	Use:   "report <event-log>",
	Short: "Summarize a JSONL event log",
	Long: `Aggregate one of the event logs written under artifacts/ into a human
readable summary: scan counts, duplicate groups, deletions, re-encodes and
the most frequent errors.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	eventLogPath := args[0]
	util.InfoLog("Analyzing event log: %s", eventLogPath)

	summary, err := report.GenerateSummaryReport(eventLogPath)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	fmt.Print(summary.Format())
	return nil
}
