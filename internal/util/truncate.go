package util

import "fmt"

// DefaultLogMaxLen caps upstream response bodies quoted in log lines.
// Provider APIs can return multi-kilobyte HTML error pages.
const DefaultLogMaxLen = 512

// TruncateLog shortens long strings before they reach the log, keeping the
// original byte count visible for diagnostics.
func TruncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + fmt.Sprintf("... [truncated, %d bytes total]", len(s))
}
