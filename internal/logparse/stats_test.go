package logparse

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseStatistics(t *testing.T) {
	log := "Executed 12 tests, with 3 failures (1 unexpected) in 2.500 seconds"
	got := ParseStatistics(log)
	want := Statistics{Total: 12, Passed: 9, Failed: 3, Duration: 2.5}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("statistics mismatch (-want +got):\n%s", diff)
	}
}

func TestParseStatisticsWithSkipped(t *testing.T) {
	log := "Executed 10 tests, with 2 tests skipped and 1 failure (0 unexpected) in 1.000 seconds"
	got := ParseStatistics(log)
	want := Statistics{Total: 10, Passed: 7, Failed: 1, Skipped: 2, Duration: 1.0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("statistics mismatch (-want +got):\n%s", diff)
	}
}

func TestParseStatisticsKeepsOutermostSummary(t *testing.T) {
	// Per-suite summaries precede the whole-run summary; the last one wins.
	log := "Executed 4 tests, with 1 failure (0 unexpected) in 0.400 seconds\n" +
		"Executed 8 tests, with 1 failure (0 unexpected) in 0.900 seconds\n" +
		"Executed 12 tests, with 2 failures (0 unexpected) in 1.500 seconds"
	got := ParseStatistics(log)
	if got.Total != 12 || got.Failed != 2 {
		t.Errorf("got %+v, want the final summary (12 total, 2 failed)", got)
	}
}

func TestParseStatisticsNoSummary(t *testing.T) {
	got := ParseStatistics("no summary lines here")
	if got != (Statistics{}) {
		t.Errorf("expected zero statistics, got %+v", got)
	}
}

func TestParseStatisticsSingularForms(t *testing.T) {
	got := ParseStatistics("Executed 1 test, with 1 failure (1 unexpected) in 0.010 seconds")
	if got.Total != 1 || got.Failed != 1 {
		t.Errorf("singular forms not parsed: %+v", got)
	}
}
