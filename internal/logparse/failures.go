package logparse

import (
	"fmt"
	"regexp"
	"strings"
)

// FailureMarker is the glyph test tooling prefixes to assertion failures.
const FailureMarker = "❌"

// TestFailure is one structured failure mined from a test log. Any field may
// be empty or "Unknown"; partial records beat no records.
type TestFailure struct {
	TestClass  string
	TestMethod string
	Message    string
	FilePath   string
	LineNumber string
}

// Key is the dedup key. Two patterns matching overlapping lines must not
// record the same failure twice.
func (f TestFailure) Key() string {
	return f.TestClass + "|" + f.TestMethod + "|" + f.FilePath + "|" + f.LineNumber
}

// Line-pattern recognizers, in order of specificity. Each looks at one line
// (plus a small window of neighbors for corroborating context) and yields at
// most one record.
var (
	// Test Case '-[ModuleTests.FooTests testBar]' failed (0.012 seconds).
	testCaseFailedRe = regexp.MustCompile(`Test Case '-\[([\w.]+)[ .](\w+)\]' failed`)

	// Test Case '-[ModuleTests.FooTests testBar]' started.
	testCaseStartedRe = regexp.MustCompile(`Test Case '-\[([\w.]+)[ .](\w+)\]' started`)

	// /path/File.swift:42: error: -[ModuleTests.FooTests testBar] : XCTAssertEqual failed ...
	compilerStyleRe = regexp.MustCompile(`^(.*?):(\d+):\s*error:\s*-\[([\w.]+)[ .](\w+)\]\s*:\s*(.*)$`)

	// /path/File.swift:42: message  (location context near assertion lines)
	fileLineRe = regexp.MustCompile(`^(/[^:]+):(\d+):\s*(.*)$`)

	// XCTAssertEqual failed: ("1") is not equal to ("2")
	xctAssertRe = regexp.MustCompile(`XCTAssert\w*\s+failed`)

	// Test Suite 'FooTests' failed at 2024-01-01 ...
	testSuiteFailedRe = regexp.MustCompile(`Test Suite '([^']+)' failed`)

	// Executed 10 tests, with 2 failures (1 unexpected) in 1.234 seconds
	executedSummaryRe = regexp.MustCompile(`Executed (\d+) tests?, with (?:(\d+) tests? skipped and )?(\d+) failures?(?: \((\d+) unexpected\))?(?:.*?in ([\d.]+))?`)
)

// recognizer inspects lines[i] and returns a record plus ok. consumed is
// the index of a neighboring line the record absorbed as its detail, or -1;
// consumed lines must not spawn records of their own.
type recognizer func(lines []string, i int) (f TestFailure, consumed int, ok bool)

// matchTestCaseHeader handles the per-test failure header, pulling the
// failure detail from the next few lines.
func matchTestCaseHeader(lines []string, i int) (TestFailure, int, bool) {
	m := testCaseFailedRe.FindStringSubmatch(lines[i])
	if m == nil {
		return TestFailure{}, -1, false
	}
	f := TestFailure{TestClass: m[1], TestMethod: m[2], Message: "Test failed"}

	// Detail usually follows within four lines as path:line: message.
	for j := i + 1; j < len(lines) && j <= i+4; j++ {
		if loc := fileLineRe.FindStringSubmatch(lines[j]); loc != nil {
			f.FilePath = loc[1]
			f.LineNumber = loc[2]
			if msg := strings.TrimSpace(loc[3]); msg != "" {
				f.Message = msg
			}
			return f, j, true
		}
	}
	return f, -1, true
}

// matchCompilerStyle handles the single-line path:line: error: -[Class
// method] : message form.
func matchCompilerStyle(lines []string, i int) (TestFailure, int, bool) {
	m := compilerStyleRe.FindStringSubmatch(lines[i])
	if m == nil {
		return TestFailure{}, -1, false
	}
	msg := strings.TrimSpace(m[5])
	if msg == "" {
		msg = "Test failed"
	}
	return TestFailure{
		FilePath:   m[1],
		LineNumber: m[2],
		TestClass:  m[3],
		TestMethod: m[4],
		Message:    msg,
	}, -1, true
}

// matchMarkerLine handles marker-prefixed assertion lines, back-filling the
// owning test from up to five preceding lines.
func matchMarkerLine(lines []string, i int) (TestFailure, int, bool) {
	line := strings.TrimSpace(lines[i])
	if !strings.HasPrefix(line, FailureMarker) {
		return TestFailure{}, -1, false
	}
	body := strings.TrimSpace(strings.TrimPrefix(line, FailureMarker))
	f := TestFailure{TestClass: "Unknown", TestMethod: "Unknown", Message: body}
	if f.Message == "" {
		f.Message = "Test failed"
	}

	if loc := fileLineRe.FindStringSubmatch(body); loc != nil {
		f.FilePath = loc[1]
		f.LineNumber = loc[2]
		if msg := strings.TrimSpace(loc[3]); msg != "" {
			f.Message = msg
		}
	}

	for j := i - 1; j >= 0 && j >= i-5; j-- {
		if m := testCaseStartedRe.FindStringSubmatch(lines[j]); m != nil {
			f.TestClass = m[1]
			f.TestMethod = m[2]
			break
		}
	}
	return f, -1, true
}

// matchSuiteFailure handles suite-level failure headers.
func matchSuiteFailure(lines []string, i int) (TestFailure, int, bool) {
	m := testSuiteFailedRe.FindStringSubmatch(lines[i])
	if m == nil {
		return TestFailure{}, -1, false
	}
	return TestFailure{
		TestClass:  m[1],
		TestMethod: "Unknown",
		Message:    "Test suite failed",
	}, -1, true
}

// matchGenericAssert handles bare XCTAssert failures, back-filling file and
// test context from up to ten preceding lines.
func matchGenericAssert(lines []string, i int) (TestFailure, int, bool) {
	if !xctAssertRe.MatchString(lines[i]) {
		return TestFailure{}, -1, false
	}
	f := TestFailure{
		TestClass:  "Unknown",
		TestMethod: "Unknown",
		Message:    strings.TrimSpace(lines[i]),
	}
	for j := i - 1; j >= 0 && j >= i-10; j-- {
		if f.FilePath == "" {
			if loc := fileLineRe.FindStringSubmatch(lines[j]); loc != nil {
				f.FilePath = loc[1]
				f.LineNumber = loc[2]
			}
		}
		if f.TestClass == "Unknown" {
			if m := testCaseStartedRe.FindStringSubmatch(lines[j]); m != nil {
				f.TestClass = m[1]
				f.TestMethod = m[2]
			}
		}
		if f.FilePath != "" && f.TestClass != "Unknown" {
			break
		}
	}
	return f, -1, true
}

// ExtractFailures mines structured failure records from a raw test log.
// Recognizers run in order of specificity; the first match per line wins,
// and a composite key keeps overlapping patterns from duplicating a record.
// If the log signals failure but nothing matched, a synthesized record is
// returned — callers never get an empty list for a failing run.
func ExtractFailures(log string) []TestFailure {
	lines := strings.Split(log, "\n")
	recognizers := []recognizer{
		matchTestCaseHeader,
		matchCompilerStyle,
		matchMarkerLine,
		matchSuiteFailure,
		matchGenericAssert,
	}

	seen := make(map[string]bool)
	consumed := make(map[int]bool)
	var out []TestFailure
	for i := range lines {
		if consumed[i] {
			continue
		}
		for _, match := range recognizers {
			f, used, ok := match(lines, i)
			if !ok {
				continue
			}
			if used >= 0 {
				consumed[used] = true
			}
			key := f.Key()
			// The generic assert pattern carries no reliable location, so
			// the message prefix joins its key to avoid collapsing distinct
			// assertions within one test.
			if f.TestClass == "Unknown" && f.FilePath == "" {
				key += "|" + prefixOf(f.Message, 40)
			}
			if !seen[key] {
				seen[key] = true
				out = append(out, f)
			}
			break
		}
	}

	if len(out) == 0 && indicatesFailure(log) {
		out = append(out, synthesizeFailure(log))
	}
	return out
}

func prefixOf(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// indicatesFailure reports whether the log text signals a failed run even
// without any parseable failure record.
func indicatesFailure(log string) bool {
	lower := strings.ToLower(log)
	if strings.Contains(lower, "failed") || strings.Contains(log, FailureMarker) {
		return true
	}
	// "Executed N tests, with M failures" with M > 0 counts too.
	for _, line := range strings.Split(log, "\n") {
		if m := executedSummaryRe.FindStringSubmatch(line); m != nil && m[3] != "0" {
			return true
		}
	}
	return false
}

// synthesizeFailure builds the guaranteed fallback record, preferring the
// executed-summary line when present.
func synthesizeFailure(log string) TestFailure {
	for _, line := range strings.Split(log, "\n") {
		if m := executedSummaryRe.FindStringSubmatch(line); m != nil && m[3] != "0" {
			return TestFailure{
				TestClass:  "Unknown",
				TestMethod: "Unknown",
				Message:    fmt.Sprintf("Executed %s tests, with %s failures", m[1], m[3]),
			}
		}
	}
	return TestFailure{
		TestClass:  "Unknown",
		TestMethod: "Unknown",
		Message:    "Tests failed, details unavailable from log",
	}
}
