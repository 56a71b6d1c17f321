// Package xcode is the narrow boundary to the Xcode application. It builds
// AppleScript commands, shells out to osascript, and parses the textual
// replies into typed outcomes. Everything beyond that boundary is opaque.
package xcode

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// ScriptRunner executes one AppleScript and reports (success, output).
// On success the output is trimmed stdout; on failure it is trimmed stderr.
// Implementations must not retry: re-running a scripting call risks duplicate
// side effects such as relaunching the application.
type ScriptRunner interface {
	Run(ctx context.Context, script string) (bool, string)
}

// OSAScriptRunner runs scripts through the osascript binary.
type OSAScriptRunner struct {
	logger *zap.Logger
}

// NewOSAScriptRunner returns the default runner.
func NewOSAScriptRunner(logger *zap.Logger) *OSAScriptRunner {
	return &OSAScriptRunner{logger: logger}
}

// Run executes the script with osascript -e.
func (r *OSAScriptRunner) Run(ctx context.Context, script string) (bool, string) {
	cmd := exec.CommandContext(ctx, "osascript", "-e", script)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		r.logger.Debug("osascript failed", zap.Error(err), zap.String("stderr", msg))
		return false, msg
	}
	return true, strings.TrimSpace(stdout.String())
}

// EscapeString escapes a string for embedding in an AppleScript literal.
// Backslashes first, then quotes.
func EscapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
