package logparse

import (
	"strconv"
	"strings"
)

// Statistics is the best-effort aggregate parsed from test summary lines.
// Defaults are zero; the struct is never guaranteed complete.
type Statistics struct {
	Total    int
	Passed   int
	Failed   int
	Skipped  int
	Duration float64
}

// ParseStatistics scans for "Executed N tests, with M failures ..." summary
// lines and keeps the last (outermost) one, which covers the whole run.
func ParseStatistics(log string) Statistics {
	var stats Statistics
	for _, line := range strings.Split(log, "\n") {
		m := executedSummaryRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		total, _ := strconv.Atoi(m[1])
		skipped := 0
		if m[2] != "" {
			skipped, _ = strconv.Atoi(m[2])
		}
		failed, _ := strconv.Atoi(m[3])
		duration := 0.0
		if m[5] != "" {
			duration, _ = strconv.ParseFloat(m[5], 64)
		}
		stats = Statistics{
			Total:    total,
			Passed:   total - failed - skipped,
			Failed:   failed,
			Skipped:  skipped,
			Duration: duration,
		}
	}
	return stats
}
