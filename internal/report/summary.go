package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// SummaryReport aggregates an event log into per-phase counts
type SummaryReport struct {
	GeneratedAt  time.Time
	EventLogPath string

	// Scan statistics
	AssetsScanned int
	AssetsProbed  int
	ProbeErrors   int

	// Grouping statistics
	GroupsFound        int
	AssetsMarkedDelete int
	BytesMarkedDelete  int64

	// Apply statistics
	MergesApplied int
	MergeErrors   int
	DeleteBatches int
	AssetsDeleted int
	BytesDeleted  int64

	// Transcode statistics
	AssetsEstimated int
	Transcodes      int
	TranscodeErrors int
	Replaces        int
	BytesRecovered  int64

	// Details
	TopErrors []ErrorSummary
}

// ErrorSummary represents an error with its count
type ErrorSummary struct {
	Error string
	Count int
}

// GenerateSummaryReport reads a JSONL event log and aggregates it
func GenerateSummaryReport(eventLogPath string) (*SummaryReport, error) {
	f, err := os.Open(eventLogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	defer f.Close()

	report := &SummaryReport{
		GeneratedAt:  time.Now(),
		EventLogPath: eventLogPath,
	}
	errorCounts := make(map[string]int)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var ev Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			// Tolerate partial trailing lines from interrupted runs
			continue
		}

		if ev.Error != "" {
			errorCounts[ev.Error]++
		}

		switch ev.Event {
		case EventScan:
			report.AssetsScanned++
		case EventProbe:
			if ev.Error == "" {
				report.AssetsProbed++
			} else {
				report.ProbeErrors++
			}
		case EventGroup:
			report.GroupsFound++
			report.AssetsMarkedDelete += ev.Count
			report.BytesMarkedDelete += ev.Bytes
		case EventMerge:
			if ev.Error == "" {
				report.MergesApplied++
			} else {
				report.MergeErrors++
			}
		case EventDelete:
			if ev.Error == "" {
				report.DeleteBatches++
				report.AssetsDeleted += ev.Count
				report.BytesDeleted += ev.Bytes
			}
		case EventEstimate:
			report.AssetsEstimated++
		case EventTranscode:
			if ev.Error == "" {
				report.Transcodes++
			} else {
				report.TranscodeErrors++
			}
		case EventReplace:
			if ev.Error == "" {
				report.Replaces++
				report.BytesRecovered += ev.Bytes
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}

	report.TopErrors = topErrors(errorCounts, 10)
	return report, nil
}

func topErrors(counts map[string]int, limit int) []ErrorSummary {
	summaries := make([]ErrorSummary, 0, len(counts))
	for msg, count := range counts {
		summaries = append(summaries, ErrorSummary{Error: msg, Count: count})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Count != summaries[j].Count {
			return summaries[i].Count > summaries[j].Count
		}
		return summaries[i].Error < summaries[j].Error
	})
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries
}

// Format renders the summary as human-readable text
func (r *SummaryReport) Format() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Summary of %s\n", r.EventLogPath)
	fmt.Fprintf(&b, "Generated at %s\n\n", r.GeneratedAt.Format(time.RFC3339))

	fmt.Fprintf(&b, "Scan:      %d discovered, %d probed, %d probe errors\n",
		r.AssetsScanned, r.AssetsProbed, r.ProbeErrors)
	fmt.Fprintf(&b, "Groups:    %d groups, %d copies marked (%s)\n",
		r.GroupsFound, r.AssetsMarkedDelete, humanize.IBytes(uint64(r.BytesMarkedDelete)))
	fmt.Fprintf(&b, "Deletes:   %d merges, %d batches, %d assets removed (%s)\n",
		r.MergesApplied, r.DeleteBatches, r.AssetsDeleted, humanize.IBytes(uint64(r.BytesDeleted)))
	fmt.Fprintf(&b, "Transcode: %d estimated, %d transcoded, %d replaced (%s recovered)\n",
		r.AssetsEstimated, r.Transcodes, r.Replaces, humanize.IBytes(uint64(r.BytesRecovered)))

	if len(r.TopErrors) > 0 {
		fmt.Fprintf(&b, "\nTop errors:\n")
		for _, e := range r.TopErrors {
			fmt.Fprintf(&b, "  %4dx %s\n", e.Count, e.Error)
		}
	}

	return b.String()
}
