// Package logparse turns raw Xcode build and test logs into structured
// records: error/warning buckets, test-failure records, and aggregate test
// statistics. Everything here is a pure function of its inputs.
package logparse

import (
	"fmt"
	"strings"
)

// DisplayCap is the combined error+warning line limit in formatted reports.
// Counts always reflect true totals even when display is truncated.
const DisplayCap = 25

// Classification is the error/warning split of one log. Errors always
// precede warnings in display order.
type Classification struct {
	ErrorLines    []string
	WarningLines  []string
	TotalErrors   int
	TotalWarnings int
}

// Classify scans the log once. A line containing "error" (case-insensitive)
// is an error; otherwise a line containing "warning" is a warning when
// includeWarnings is set. A line matching both counts only as an error.
func Classify(log string, includeWarnings bool) Classification {
	var c Classification
	for _, line := range strings.Split(log, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "error") {
			c.ErrorLines = append(c.ErrorLines, line)
		} else if includeWarnings && strings.Contains(lower, "warning") {
			c.WarningLines = append(c.WarningLines, line)
		}
	}
	c.TotalErrors = len(c.ErrorLines)
	c.TotalWarnings = len(c.WarningLines)
	return c
}

// DisplayedCounts reports how many of each bucket fit under the cap:
// errors first, warnings fill whatever capacity remains.
func (c Classification) DisplayedCounts() (errors, warnings int) {
	errors = c.TotalErrors
	if errors > DisplayCap {
		errors = DisplayCap
	}
	if c.TotalErrors >= DisplayCap {
		return errors, 0
	}
	warnings = c.TotalWarnings
	if remaining := DisplayCap - c.TotalErrors; warnings > remaining {
		warnings = remaining
	}
	return errors, warnings
}

// DisplayLines returns the capped combined listing.
func (c Classification) DisplayLines() []string {
	combined := make([]string, 0, c.TotalErrors+c.TotalWarnings)
	combined = append(combined, c.ErrorLines...)
	combined = append(combined, c.WarningLines...)
	if len(combined) > DisplayCap {
		combined = combined[:DisplayCap]
	}
	return combined
}

// FormatReport renders the caller-visible report. Callers match against this
// wording; do not reword without checking every consumer.
func (c Classification) FormatReport() string {
	displayedErrors, displayedWarnings := c.DisplayedCounts()
	listing := strings.Join(c.DisplayLines(), "\n")

	switch {
	case c.TotalErrors > 0 && c.TotalWarnings > 0:
		msg := fmt.Sprintf("Build failed with %d error(s) and %d warning(s).", c.TotalErrors, c.TotalWarnings)
		if c.TotalErrors+c.TotalWarnings > DisplayCap {
			if displayedWarnings == 0 {
				msg += fmt.Sprintf(" Showing first %d errors.", displayedErrors)
			} else {
				msg += fmt.Sprintf(" Showing %d error(s) and first %d warning(s).", displayedErrors, displayedWarnings)
			}
		}
		return msg + "\n" + listing
	case c.TotalErrors > 0:
		msg := fmt.Sprintf("Build failed with %d error(s).", c.TotalErrors)
		if c.TotalErrors > DisplayCap {
			msg += fmt.Sprintf(" Showing first %d errors.", DisplayCap)
		}
		return msg + "\n" + listing
	case c.TotalWarnings > 0:
		msg := fmt.Sprintf("Build completed with %d warning(s).", c.TotalWarnings)
		if c.TotalWarnings > DisplayCap {
			msg += fmt.Sprintf(" Showing first %d warnings.", DisplayCap)
		}
		return msg + "\n" + listing
	default:
		return "Build failed (no specific errors or warnings found in output)"
	}
}
