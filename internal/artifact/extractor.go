package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"xcodebridge/internal/security"
)

// Extraction retry parameters. Result-bundle generation is asynchronous to
// process exit; the companion CLI reports "root ID is missing" until the
// bundle is finalized, and callers cannot know in advance whether it is safe
// to read yet.
const (
	maxExtractAttempts = 7
	extractRetryDelay  = 1 * time.Second
	attemptTimeout     = 30 * time.Second

	// notReadySignature is the stderr fragment xcresulttool emits while the
	// bundle is still being written.
	notReadySignature = "root ID is missing"
)

// TruncatePolicy states which end of the line sequence survives the
// max-lines cap. The two call sites genuinely differ: runtime console
// retrieval keeps the most recent lines, the structured run path keeps the
// first. The policy is explicit per call site so the two are never mixed
// silently.
type TruncatePolicy int

const (
	// TruncateTail keeps the last maxLines lines (most recent output).
	TruncateTail TruncatePolicy = iota
	// TruncateHead keeps the first maxLines lines.
	TruncateHead
)

// CommandRunner executes one external command. Injectable for tests.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes the command and returns both output streams.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Extractor pulls structured content out of result bundles via the
// xcresulttool companion CLI.
type Extractor struct {
	runner CommandRunner
	logger *zap.Logger
	sleep  func(time.Duration)
}

// NewExtractor returns an Extractor shelling out to xcrun.
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{runner: ExecRunner{}, logger: logger, sleep: time.Sleep}
}

// consoleLog mirrors the JSON shape of `xcresulttool get log --type console`.
type consoleLog struct {
	Items []struct {
		Content string `json:"content"`
	} `json:"items"`
}

// ExtractConsole dumps the bundle's console log, applies the optional
// per-line regex filter, and caps the result at maxLines according to the
// policy. An empty result after filtering is success: "no output" and
// "extraction broke" are different answers. An invalid filter pattern is a
// caller error, reported distinctly from extraction failure.
func (e *Extractor) ExtractConsole(ctx context.Context, a *Artifact, filter string, maxLines int, policy TruncatePolicy) (string, error) {
	var matcher *regexp.Regexp
	if f := strings.TrimSpace(filter); f != "" {
		var err error
		matcher, err = regexp.Compile(f)
		if err != nil {
			return "", fmt.Errorf("%w: invalid regex pattern: %v", security.ErrInvalidParameter, err)
		}
	}

	stdout, err := e.runWithRetry(ctx, "xcrun", "xcresulttool", "get", "log",
		"--path", a.Path, "--type", "console")
	if err != nil {
		return "", err
	}

	var log consoleLog
	if err := json.Unmarshal([]byte(stdout), &log); err != nil {
		return "", fmt.Errorf("failed to parse console logs: %w", err)
	}

	var lines []string
	for _, item := range log.Items {
		content := strings.TrimSpace(item.Content)
		if content == "" {
			continue
		}
		if matcher != nil && !matcher.MatchString(content) {
			continue
		}
		lines = append(lines, content)
	}

	if len(lines) > maxLines {
		if policy == TruncateTail {
			lines = lines[len(lines)-maxLines:]
		} else {
			lines = lines[:maxLines]
		}
	}

	return strings.Join(lines, "\n"), nil
}

// runWithRetry invokes the CLI up to maxExtractAttempts times with fixed
// spacing, retrying only on the not-finalized signature or a per-attempt
// timeout. Any other failure is terminal for this call.
func (e *Extractor) runWithRetry(ctx context.Context, name string, args ...string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxExtractAttempts; attempt++ {
		if attempt > 1 {
			e.logger.Debug("Retrying bundle extraction",
				zap.Int("attempt", attempt),
				zap.Int("max", maxExtractAttempts))
			e.sleep(extractRetryDelay)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		stdout, stderr, err := e.runner.Run(attemptCtx, name, args...)
		cancel()

		if err == nil {
			return stdout, nil
		}

		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			lastErr = fmt.Errorf("timeout extracting console logs")
			continue
		}
		if strings.Contains(stderr, notReadySignature) {
			e.logger.Debug("Result bundle not finalized yet", zap.String("stderr", strings.TrimSpace(stderr)))
			lastErr = fmt.Errorf("failed to extract console logs: %s", stderr)
			continue
		}
		return "", fmt.Errorf("failed to extract console logs: %s", stderr)
	}
	return "", lastErr
}

// FetchTestResults returns the raw structured test-results JSON from the
// bundle. The payload is passed through to the caller unparsed.
func (e *Extractor) FetchTestResults(ctx context.Context, a *Artifact) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	stdout, stderr, err := e.runner.Run(attemptCtx, "xcrun", "xcresulttool",
		"get", "test-results", "tests", "--path", a.Path)
	if err != nil {
		return "", fmt.Errorf("failed to get test results: %s", strings.TrimSpace(stderr))
	}
	return stdout, nil
}

// TestSummary is the best-effort metrics block of a test bundle.
type TestSummary struct {
	Total  int
	Failed int
}

// metricsDoc mirrors the fragment of `xcresulttool get --format json` we
// care about.
type metricsDoc struct {
	Metrics struct {
		TestsCount struct {
			Value string `json:"_value"`
		} `json:"testsCount"`
		TestsFailedCount struct {
			Value string `json:"_value"`
		} `json:"testsFailedCount"`
	} `json:"metrics"`
}

// FetchSummary reads the bundle's top-level metrics. Missing fields default
// to zero; the summary is never guaranteed complete.
func (e *Extractor) FetchSummary(ctx context.Context, a *Artifact) (TestSummary, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	stdout, stderr, err := e.runner.Run(attemptCtx, "xcrun", "xcresulttool",
		"get", "--path", a.Path, "--format", "json")
	if err != nil {
		return TestSummary{}, fmt.Errorf("failed to read bundle metrics: %s", strings.TrimSpace(stderr))
	}

	var doc metricsDoc
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		return TestSummary{}, fmt.Errorf("failed to parse bundle metrics: %w", err)
	}

	var summary TestSummary
	fmt.Sscanf(doc.Metrics.TestsCount.Value, "%d", &summary.Total)
	fmt.Sscanf(doc.Metrics.TestsFailedCount.Value, "%d", &summary.Failed)
	return summary, nil
}
