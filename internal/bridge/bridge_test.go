package bridge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"xcodebridge/internal/artifact"
	"xcodebridge/internal/config"
	"xcodebridge/internal/notify"
	"xcodebridge/internal/security"
	"xcodebridge/internal/xcode"
)

// stubRunner replies with canned output and remembers the scripts it ran.
type stubRunner struct {
	ok      bool
	output  string
	scripts []string
}

func (s *stubRunner) Run(ctx context.Context, script string) (bool, string) {
	s.scripts = append(s.scripts, script)
	return s.ok, s.output
}

// stubLocator returns a fixed artifact.
type stubLocator struct {
	artifact    *artifact.Artifact
	found       bool
	afterCalls  int
	locateCalls int
	notBefore   time.Time
}

func (s *stubLocator) Locate(project security.ProjectRef, kind artifact.Kind) (*artifact.Artifact, bool) {
	s.locateCalls++
	return s.artifact, s.found
}

func (s *stubLocator) LocateAfter(ctx context.Context, project security.ProjectRef, kind artifact.Kind, notBefore time.Time, timeout time.Duration) (*artifact.Artifact, bool) {
	s.afterCalls++
	s.notBefore = notBefore
	return s.artifact, s.found
}

// stubExtractor returns canned extraction results.
type stubExtractor struct {
	console    string
	consoleErr error
	raw        string
	rawErr     error
	summary    artifact.TestSummary
	summaryErr error
}

func (s *stubExtractor) ExtractConsole(ctx context.Context, a *artifact.Artifact, filter string, maxLines int, policy artifact.TruncatePolicy) (string, error) {
	return s.console, s.consoleErr
}

func (s *stubExtractor) FetchTestResults(ctx context.Context, a *artifact.Artifact) (string, error) {
	return s.raw, s.rawErr
}

func (s *stubExtractor) FetchSummary(ctx context.Context, a *artifact.Artifact) (artifact.TestSummary, error) {
	return s.summary, s.summaryErr
}

// testBridge wires a Bridge around stubs and a real on-disk project dir.
func testBridge(t *testing.T, runner *stubRunner, locator *stubLocator, extractor *stubExtractor) (*Bridge, string) {
	t.Helper()
	root := t.TempDir()
	projectDir := filepath.Join(root, "MyApp.xcodeproj")
	if err := os.Mkdir(projectDir, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{AllowedFolders: []string{root}, WarningsDefault: true}
	b := &Bridge{
		cfg:       cfg,
		runner:    runner,
		locator:   locator,
		extractor: extractor,
		notifier:  notify.New(runner, false, zap.NewNop()),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	return b, projectDir
}

func TestBuildSuccess(t *testing.T) {
	runner := &stubRunner{ok: true, output: xcode.BuildSucceededMarker}
	b, project := testBridge(t, runner, &stubLocator{}, &stubExtractor{})

	got, err := b.Build(context.Background(), project, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "Build succeeded with 0 errors.") {
		t.Errorf("got %q", got)
	}
	if !strings.Contains(got, "run_project") {
		t.Errorf("missing follow-up hint: %q", got)
	}
}

func TestBuildFailureClassifies(t *testing.T) {
	runner := &stubRunner{ok: true, output: "error: no such module 'Foo'\nwarning: deprecated API"}
	b, project := testBridge(t, runner, &stubLocator{}, &stubExtractor{})

	got, err := b.Build(context.Background(), project, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "Build failed with 1 error(s) and 1 warning(s).") {
		t.Errorf("got %q", got)
	}
}

func TestBuildScriptFailure(t *testing.T) {
	runner := &stubRunner{ok: false, output: "Xcode workspace did not load in time."}
	b, project := testBridge(t, runner, &stubLocator{}, &stubExtractor{})

	_, err := b.Build(context.Background(), project, "", nil)
	if err == nil || !strings.Contains(err.Error(), "build failed to start") {
		t.Errorf("got %v", err)
	}
}

func TestBuildRejectsUnknownProject(t *testing.T) {
	b, _ := testBridge(t, &stubRunner{ok: true}, &stubLocator{}, &stubExtractor{})

	_, err := b.Build(context.Background(), "/elsewhere/App.xcodeproj", "", nil)
	if !errors.Is(err, security.ErrAccessDenied) {
		t.Errorf("got %v, want ErrAccessDenied", err)
	}
}

func TestRunValidatesParameters(t *testing.T) {
	b, project := testBridge(t, &stubRunner{ok: true}, &stubLocator{}, &stubExtractor{})

	if _, err := b.Run(context.Background(), project, -1, "", "", 20); !errors.Is(err, security.ErrInvalidParameter) {
		t.Errorf("negative wait: got %v", err)
	}
	if _, err := b.Run(context.Background(), project, 5, "", "", 0); !errors.Is(err, security.ErrInvalidParameter) {
		t.Errorf("zero max_lines: got %v", err)
	}
}

func TestRunStillRunning(t *testing.T) {
	runner := &stubRunner{ok: true, output: "false|running"}
	locator := &stubLocator{}
	b, project := testBridge(t, runner, locator, &stubExtractor{})

	got, err := b.Run(context.Background(), project, 10, "", "", 20)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "Still running after 10 seconds (status: running).") {
		t.Errorf("got %q", got)
	}
	if locator.afterCalls != 0 {
		t.Error("bundle lookup attempted for an incomplete run")
	}
}

func TestRunCompletedNoBundle(t *testing.T) {
	runner := &stubRunner{ok: true, output: "true|succeeded"}
	locator := &stubLocator{found: false}
	b, project := testBridge(t, runner, locator, &stubExtractor{})

	start := time.Now()
	got, err := b.Run(context.Background(), project, 5, "", "", 20)
	if err != nil {
		t.Fatal(err)
	}
	want := "Run completed with status: succeeded. Could not find xcresult file (modified after start time) to extract console logs."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if locator.notBefore.Before(start) {
		t.Error("freshness bound predates the operation")
	}
}

func TestRunCompletedWithOutput(t *testing.T) {
	runner := &stubRunner{ok: true, output: "true|succeeded"}
	locator := &stubLocator{artifact: &artifact.Artifact{Path: "/dd/x.xcresult"}, found: true}
	extractor := &stubExtractor{console: "line one\nline two"}
	b, project := testBridge(t, runner, locator, extractor)

	got, err := b.Run(context.Background(), project, 5, "", "", 20)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "Run completed with status: succeeded") {
		t.Errorf("got %q", got)
	}
	if !strings.Contains(got, "Console output (2 lines):") {
		t.Errorf("line count missing: %q", got)
	}
	if !strings.Contains(got, "line one\nline two") {
		t.Errorf("output body missing: %q", got)
	}
}

func TestRunCompletedEmptyOutput(t *testing.T) {
	runner := &stubRunner{ok: true, output: "true|succeeded"}
	locator := &stubLocator{artifact: &artifact.Artifact{}, found: true}
	b, project := testBridge(t, runner, locator, &stubExtractor{console: ""})

	got, err := b.Run(context.Background(), project, 5, "", "", 20)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "No console output found (or filtered out).") {
		t.Errorf("got %q", got)
	}
}

func TestRuntimeOutputNoBundle(t *testing.T) {
	b, project := testBridge(t, &stubRunner{ok: true}, &stubLocator{}, &stubExtractor{})

	got, err := b.RuntimeOutput(context.Background(), project, 25, "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "No xcresult file found.") {
		t.Errorf("got %q", got)
	}
}

func TestRuntimeOutputWithContent(t *testing.T) {
	locator := &stubLocator{artifact: &artifact.Artifact{Path: "/dd/x.xcresult"}, found: true}
	b, project := testBridge(t, &stubRunner{ok: true}, locator, &stubExtractor{console: "a\nb\nc"})

	got, err := b.RuntimeOutput(context.Background(), project, 25, "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "Console output from most recent run (3 lines):") {
		t.Errorf("got %q", got)
	}
}

func TestBuildErrorsNoBuildYet(t *testing.T) {
	runner := &stubRunner{ok: true, output: ""}
	b, project := testBridge(t, runner, &stubLocator{}, &stubExtractor{})

	got, err := b.BuildErrors(context.Background(), project, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "No build has been performed yet for this project." {
		t.Errorf("got %q", got)
	}
}

func TestStopNotOpenIsParameterError(t *testing.T) {
	runner := &stubRunner{ok: true, output: "ERROR: No open workspace found for path: /x"}
	b, project := testBridge(t, runner, &stubLocator{}, &stubExtractor{})

	_, err := b.Stop(context.Background(), project)
	if !errors.Is(err, security.ErrInvalidParameter) {
		t.Errorf("got %v, want ErrInvalidParameter", err)
	}
}

func TestTestZeroWaitReturnsImmediately(t *testing.T) {
	runner := &stubRunner{ok: true, output: xcode.TestStartedReply}
	locator := &stubLocator{}
	b, project := testBridge(t, runner, locator, &stubExtractor{})

	got, err := b.Test(context.Background(), project, nil, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "Tests have been started.") {
		t.Errorf("got %q", got)
	}
	if locator.afterCalls != 0 || locator.locateCalls != 0 {
		t.Error("zero-wait test run attempted result extraction")
	}
}

func TestTestNegativeWaitRejected(t *testing.T) {
	b, project := testBridge(t, &stubRunner{ok: true}, &stubLocator{}, &stubExtractor{})

	_, err := b.Test(context.Background(), project, nil, "", -1)
	if !errors.Is(err, security.ErrInvalidParameter) {
		t.Errorf("got %v", err)
	}
}

func TestTestPrefersBundleResults(t *testing.T) {
	reply := "Status: failed\nCompleted: true\nFailureCount: 0\nFailures:\nPARSE_FROM_LOG\n\n---LOG---\nlog"
	runner := &stubRunner{ok: true, output: reply}
	locator := &stubLocator{artifact: &artifact.Artifact{Path: "/dd/t.xcresult"}, found: true}
	raw := `{"testNodes":[{"nodeType":"Test Case","result":"Failed"}]}`
	b, project := testBridge(t, runner, locator, &stubExtractor{raw: raw})

	got, err := b.Test(context.Background(), project, nil, "", 60)
	if err != nil {
		t.Fatal(err)
	}
	if got != raw {
		t.Errorf("got %q, want the raw bundle payload", got)
	}
}

func TestTestIncompleteReportsTimeout(t *testing.T) {
	reply := "Status: running\nCompleted: false\nFailureCount: 0\nFailures:\n"
	runner := &stubRunner{ok: true, output: reply}
	b, project := testBridge(t, runner, &stubLocator{}, &stubExtractor{})

	got, err := b.Test(context.Background(), project, nil, "", 30)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "Tests did not complete within 30 seconds") {
		t.Errorf("got %q", got)
	}
}

func TestTestFallbackMinesLog(t *testing.T) {
	log := "Test Case '-[AppTests.MathTests testAdd]' failed (0.001 seconds).\n" +
		"Executed 3 tests, with 1 failure (0 unexpected) in 0.500 seconds"
	reply := "Status: failed\nCompleted: true\nFailureCount: 0\nFailures:\nPARSE_FROM_LOG\n\n---LOG---\n" + log
	runner := &stubRunner{ok: true, output: reply}
	// No bundle: fall back to the scripted reply and mine the log.
	b, project := testBridge(t, runner, &stubLocator{found: false}, &stubExtractor{})

	got, err := b.Test(context.Background(), project, nil, "", 60)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "❌ Tests failed") {
		t.Errorf("got %q", got)
	}
	if !strings.Contains(got, "Executed 3 tests: 2 passed, 1 failed") {
		t.Errorf("statistics missing: %q", got)
	}
	if !strings.Contains(got, "AppTests.MathTests.testAdd") {
		t.Errorf("mined failure missing: %q", got)
	}
}

func TestTestFallbackAllPassed(t *testing.T) {
	reply := "Status: succeeded\nCompleted: true\nFailureCount: 0\nFailures:\n\n---LOG---\n"
	runner := &stubRunner{ok: true, output: reply}
	b, project := testBridge(t, runner, &stubLocator{found: false}, &stubExtractor{})

	got, err := b.Test(context.Background(), project, nil, "", 60)
	if err != nil {
		t.Fatal(err)
	}
	if got != "✅ All tests passed" {
		t.Errorf("got %q", got)
	}
}

func TestTestOnlyTestingArgumentsEmbedded(t *testing.T) {
	runner := &stubRunner{ok: true, output: xcode.TestStartedReply}
	b, project := testBridge(t, runner, &stubLocator{}, &stubExtractor{})

	_, err := b.Test(context.Background(), project, []string{"AppTests/LoginTests/testBadPassword"}, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	script := runner.scripts[len(runner.scripts)-1]
	if !strings.Contains(script, "-only-testing:AppTests/LoginTests/testBadPassword") {
		t.Errorf("script missing only-testing argument:\n%s", script)
	}
}

func TestLatestTestResultsFromBundle(t *testing.T) {
	locator := &stubLocator{
		artifact: &artifact.Artifact{Path: "/dd/t.xcresult", Modified: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		found:    true,
	}
	b, project := testBridge(t, &stubRunner{ok: true}, locator, &stubExtractor{summary: artifact.TestSummary{Total: 12, Failed: 3}})

	got, err := b.LatestTestResults(context.Background(), project)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "Total tests: 12") || !strings.Contains(got, "Failed tests: 3") {
		t.Errorf("got %q", got)
	}
}

func TestLatestTestResultsFallsBackToXcode(t *testing.T) {
	runner := &stubRunner{ok: true, output: "No test results available"}
	b, project := testBridge(t, runner, &stubLocator{found: false}, &stubExtractor{})

	got, err := b.LatestTestResults(context.Background(), project)
	if err != nil {
		t.Fatal(err)
	}
	if got != "No test results available" {
		t.Errorf("got %q", got)
	}
}
