package report

import "github.com/dustin/go-humanize"

// BriefStatus is the compact per-feature summary the presentation layer
// reads: whether a scan is in flight plus an optional badge
type BriefStatus struct {
	IsScanning bool
	Badge      string
}

// Empty returns a brief status with nothing to show
func Empty() BriefStatus {
	return BriefStatus{}
}

// Savings returns a brief status badging the given reclaimable byte count.
// Zero bytes means no badge.
func Savings(scanning bool, bytes int64) BriefStatus {
	b := BriefStatus{IsScanning: scanning}
	if bytes > 0 {
		b.Badge = humanize.IBytes(uint64(bytes))
	}
	return b
}
