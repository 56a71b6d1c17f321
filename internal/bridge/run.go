package bridge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"xcodebridge/internal/artifact"
	"xcodebridge/internal/security"
	"xcodebridge/internal/xcode"
)

// consoleSeparator underlines console-output headers.
var consoleSeparator = strings.Repeat("=", 60)

// Run launches the project, waits up to waitSeconds for it to exit, and
// returns its console output. Output comes from the result bundle written
// for this launch; bundles predating the launch are never accepted, so a
// rapid re-run cannot be answered with the previous run's logs.
func (b *Bridge) Run(ctx context.Context, projectPath string, waitSeconds int, scheme, filter string, maxLines int) (string, error) {
	if waitSeconds < 0 {
		return "", fmt.Errorf("%w: wait_seconds must be non-negative, got %d", security.ErrInvalidParameter, waitSeconds)
	}
	if maxLines < 1 {
		return "", fmt.Errorf("%w: max_lines must be at least 1, got %d", security.ErrInvalidParameter, maxLines)
	}
	ref, opID, err := b.validate(projectPath, "Running")
	if err != nil {
		return "", err
	}

	// The freshness bound must predate the launch, not the wait.
	start := b.now()

	b.logger.Info("Run started",
		zap.String("op_id", opID),
		zap.String("project", ref.Base()),
		zap.Int("wait_seconds", waitSeconds))

	ok, reply := b.runner.Run(ctx, xcode.RunScript(ref.Path, scheme, waitSeconds))
	if !ok {
		b.notifier.NotifyError(opID, fmt.Sprintf("Run failed for %s", ref.Base()), reply)
		return "", fmt.Errorf("failed to run project %s: %s", projectPath, reply)
	}
	outcome, err := xcode.ParseOutcome(reply)
	if err != nil {
		return "", fmt.Errorf("failed to run project %s: %w", projectPath, err)
	}

	if !outcome.Completed {
		b.notifier.NotifyResult(opID, fmt.Sprintf("%s still running", ref.Base()))
		return fmt.Sprintf("Still running after %d seconds (status: %s). Use `get_runtime_output` after the process exits to see its console output.",
			waitSeconds, outcome.Status), nil
	}

	// One extra second over the caller's wait covers bundle finalization
	// racing the status flip.
	timeout := time.Duration(waitSeconds+1) * time.Second
	a, found := b.locator.LocateAfter(ctx, ref, artifact.KindLaunch, start, timeout)
	if !found {
		b.notifier.NotifyResult(opID, fmt.Sprintf("Run completed for %s", ref.Base()))
		return fmt.Sprintf("Run completed with status: %s. Could not find xcresult file (modified after start time) to extract console logs.",
			outcome.Status), nil
	}

	output, err := b.extractor.ExtractConsole(ctx, a, filter, maxLines, artifact.TruncateHead)
	if err != nil {
		b.notifier.NotifyResult(opID, fmt.Sprintf("Run completed for %s", ref.Base()))
		return fmt.Sprintf("Run completed with status: %s. %v", outcome.Status, err), nil
	}
	b.notifier.NotifyResult(opID, fmt.Sprintf("Run completed for %s", ref.Base()))
	if output == "" {
		return fmt.Sprintf("Run completed with status: %s. No console output found (or filtered out).", outcome.Status), nil
	}
	return fmt.Sprintf("Run completed with status: %s\nConsole output (%d lines):\n%s\n%s",
		outcome.Status, countLines(output), consoleSeparator, output), nil
}

// RuntimeOutput returns the console output of the most recent run without
// triggering a new one. No freshness bound applies here: the newest bundle
// is the right answer by definition.
func (b *Bridge) RuntimeOutput(ctx context.Context, projectPath string, maxLines int, filter string) (string, error) {
	if maxLines < 1 {
		return "", fmt.Errorf("%w: max_lines must be at least 1, got %d", security.ErrInvalidParameter, maxLines)
	}
	ref, opID, err := b.validate(projectPath, "Getting runtime output for")
	if err != nil {
		return "", err
	}

	a, found := b.locator.Locate(ref, artifact.KindLaunch)
	if !found {
		return "No xcresult file found. The project may not have been run recently, or the DerivedData may have been cleaned.", nil
	}
	b.logger.Debug("Extracting runtime output",
		zap.String("op_id", opID),
		zap.String("bundle", a.Path))

	output, err := b.extractor.ExtractConsole(ctx, a, filter, maxLines, artifact.TruncateTail)
	if err != nil {
		return "", fmt.Errorf("failed to extract runtime output: %w", err)
	}
	if output == "" {
		return "No console output found in the most recent run (or filtered out by regex).", nil
	}
	return fmt.Sprintf("Console output from most recent run (%d lines):\n%s\n%s",
		countLines(output), consoleSeparator, output), nil
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
