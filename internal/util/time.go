package util

import (
	"fmt"
	"time"
)

// humanTimeFormat is the layout for human-readable timestamps with timezone.
const humanTimeFormat = "2 Jan 2006 15:04 MST"

// FormatHumanTime converts the RFC3339 build timestamp reported by
// /api/version to local time. Unset build times read "unknown".
func FormatHumanTime(rfc3339 string) string {
	if rfc3339 == "" || rfc3339 == "unknown" {
		return "unknown"
	}
	t, err := time.Parse(time.RFC3339, rfc3339)
	if err != nil {
		return rfc3339
	}
	return t.Local().Format(humanTimeFormat)
}

// FormatDuration renders the running time of a meter session for the
// terminal header, truncated to whole seconds: "45s", "2m 34s", "1h 23m".
// Negative durations render as "0s".
func FormatDuration(d time.Duration) string {
	total := int64(max(d, 0) / time.Second)
	if total < 60 {
		return fmt.Sprintf("%ds", total)
	}
	minutes, seconds := total/60, total%60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
