package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"xcodebridge/internal/artifact"
	"xcodebridge/internal/logparse"
	"xcodebridge/internal/security"
	"xcodebridge/internal/xcode"
)

// testBundleTimeout bounds the wait for the test result bundle after the
// scripted run reports completion. Bundle finalization lags the status flip
// by a few seconds at most.
const testBundleTimeout = 10 * time.Second

// Test runs the project's tests, optionally restricted to specific
// identifiers, and reports results. maxWait == 0 starts the tests and
// returns immediately without result extraction.
func (b *Bridge) Test(ctx context.Context, projectPath string, testsToRun []string, scheme string, maxWait int) (string, error) {
	if maxWait < 0 {
		return "", fmt.Errorf("%w: max_wait_seconds must be non-negative, got %d", security.ErrInvalidParameter, maxWait)
	}
	ref, opID, err := b.validate(projectPath, "Running tests for")
	if err != nil {
		return "", err
	}

	var testArgs []string
	for _, id := range testsToRun {
		testArgs = append(testArgs, "-only-testing:"+id)
	}

	start := b.now()
	b.logger.Info("Test run started",
		zap.String("op_id", opID),
		zap.String("project", ref.Base()),
		zap.Strings("only_testing", testsToRun),
		zap.Int("max_wait", maxWait))

	ok, reply := b.runner.Run(ctx, xcode.TestScript(ref.Path, scheme, testArgs, maxWait))
	if !ok {
		b.notifier.NotifyError(opID, fmt.Sprintf("Tests failed to start for %s", ref.Base()), reply)
		return fmt.Sprintf("Failed to run tests: %s", reply), nil
	}

	if maxWait == 0 {
		b.notifier.NotifyResult(opID, fmt.Sprintf("Tests started for %s", ref.Base()))
		return "✅ Tests have been started. Use `get_latest_test_results` to check the results later.", nil
	}

	tr := xcode.ParseTestReply(reply)
	if !tr.Outcome.Completed {
		b.notifier.NotifyResult(opID, fmt.Sprintf("Tests still running for %s", ref.Base()))
		return fmt.Sprintf("⏳ Tests did not complete within %d seconds\nStatus: %s\nUse `get_latest_test_results` to check the results later.",
			maxWait, tr.Outcome.Status), nil
	}

	// The authoritative record is the result bundle written for this run.
	if a, found := b.locator.LocateAfter(ctx, ref, artifact.KindTest, start, testBundleTimeout); found {
		if raw, err := b.extractor.FetchTestResults(ctx, a); err == nil {
			failed := countFailedNodes(raw)
			if failed > 0 {
				b.notifier.NotifyError(opID, fmt.Sprintf("Tests failed for %s", ref.Base()),
					fmt.Sprintf("%d test(s) failed", failed))
			} else {
				b.notifier.NotifyResult(opID, fmt.Sprintf("Tests passed for %s", ref.Base()))
			}
			return raw, nil
		}
		b.logger.Warn("Result bundle found but unreadable, falling back to scripted reply",
			zap.String("op_id", opID), zap.String("bundle", a.Path))
	}

	return b.formatTestReply(opID, ref, tr), nil
}

// formatTestReply shapes the response from the scripted reply alone, used
// when no result bundle could be read. Failure details come from the IDE's
// failure collection when present, otherwise they are mined from the log.
func (b *Bridge) formatTestReply(opID string, ref security.ProjectRef, tr xcode.TestReply) string {
	if tr.Outcome.Status == xcode.StatusSucceeded {
		b.notifier.NotifyResult(opID, fmt.Sprintf("Tests passed for %s", ref.Base()))
		return "✅ All tests passed"
	}

	var sb strings.Builder
	sb.WriteString("❌ Tests failed\n")

	stats := logparse.ParseStatistics(tr.Log)
	if stats.Total > 0 {
		fmt.Fprintf(&sb, "\nExecuted %d tests: %d passed, %d failed", stats.Total, stats.Passed, stats.Failed)
		if stats.Skipped > 0 {
			fmt.Fprintf(&sb, ", %d skipped", stats.Skipped)
		}
		if stats.Duration > 0 {
			fmt.Fprintf(&sb, " in %.3f seconds", stats.Duration)
		}
		sb.WriteString("\n")
	}

	failed := 0
	switch {
	case len(tr.Failures) > 0 && !tr.ParseFromLog:
		failed = len(tr.Failures)
		sb.WriteString("\nFailures:\n")
		for _, f := range tr.Failures {
			fmt.Fprintf(&sb, "- %s", f.Message)
			if f.File != "" {
				fmt.Fprintf(&sb, " (%s", f.File)
				if f.Line > 0 {
					fmt.Fprintf(&sb, ":%d", f.Line)
				}
				sb.WriteString(")")
			}
			sb.WriteString("\n")
		}
	default:
		failures := logparse.ExtractFailures(tr.Log)
		failed = len(failures)
		sb.WriteString("\nFailures:\n")
		for _, f := range failures {
			fmt.Fprintf(&sb, "- %s.%s: %s", f.TestClass, f.TestMethod, f.Message)
			if f.FilePath != "" {
				fmt.Fprintf(&sb, " (%s:%s)", f.FilePath, f.LineNumber)
			}
			sb.WriteString("\n")
		}
	}

	b.notifier.NotifyError(opID, fmt.Sprintf("Tests failed for %s", ref.Base()),
		fmt.Sprintf("%d test(s) failed", failed))
	return strings.TrimRight(sb.String(), "\n")
}

// LatestTestResults reports the most recent test run's results without
// triggering a new one. The result bundle is preferred; the IDE's last
// scheme action result is the fallback.
func (b *Bridge) LatestTestResults(ctx context.Context, projectPath string) (string, error) {
	ref, opID, err := b.validate(projectPath, "Getting test results for")
	if err != nil {
		return "", err
	}

	if a, found := b.locator.Locate(ref, artifact.KindTest); found {
		summary, err := b.extractor.FetchSummary(ctx, a)
		if err == nil {
			b.logger.Debug("Read test summary from bundle",
				zap.String("op_id", opID), zap.String("bundle", a.Path))
			return fmt.Sprintf("Test results from xcresult bundle:\n\nTotal tests: %d\nFailed tests: %d\nTest run: %s",
				summary.Total, summary.Failed, a.Modified.Format(time.RFC3339)), nil
		}
		b.logger.Debug("Bundle summary unreadable, falling back to Xcode",
			zap.String("op_id", opID), zap.Error(err))
	}

	ok, output := b.runner.Run(ctx, xcode.LastTestResultScript(ref.Path))
	if !ok {
		return "", fmt.Errorf("failed to get test results: %s", output)
	}
	return output, nil
}

// testNode is the recursive node shape of the structured test-results JSON.
type testNode struct {
	Result   string     `json:"result"`
	NodeType string     `json:"nodeType"`
	Children []testNode `json:"children"`
}

// countFailedNodes counts failed test-case nodes in the raw test-results
// payload. A payload that does not parse counts as zero failures; the raw
// JSON is still returned to the caller either way.
func countFailedNodes(raw string) int {
	var doc struct {
		TestNodes []testNode `json:"testNodes"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return 0
	}
	var walk func(n testNode) int
	walk = func(n testNode) int {
		count := 0
		if n.NodeType == "Test Case" && strings.EqualFold(n.Result, "failed") {
			count++
		}
		for _, c := range n.Children {
			count += walk(c)
		}
		return count
	}
	total := 0
	for _, n := range doc.TestNodes {
		total += walk(n)
	}
	return total
}
