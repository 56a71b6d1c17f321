// Package screenshot captures application windows on the host desktop. The
// window is located by asking System Events for its on-screen bounds, then
// captured region-wise; capturing by window ID would need private APIs.
package screenshot

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"xcodebridge/internal/artifact"
	"xcodebridge/internal/config"
	"xcodebridge/internal/security"
	"xcodebridge/internal/xcode"
)

// Capturer takes window screenshots via osascript and screencapture.
type Capturer struct {
	cfg    *config.Config
	script xcode.ScriptRunner
	runner artifact.CommandRunner
	logger *zap.Logger
}

// NewCapturer returns a Capturer.
func NewCapturer(cfg *config.Config, script xcode.ScriptRunner, logger *zap.Logger) *Capturer {
	return &Capturer{cfg: cfg, script: script, runner: artifact.ExecRunner{}, logger: logger}
}

// ListWindows returns one line per visible window, "AppName: Window Title".
func (c *Capturer) ListWindows(ctx context.Context) (string, error) {
	script := `tell application "System Events"
    set output to ""
    repeat with proc in (every application process whose visible is true)
        repeat with win in (every window of proc)
            set output to output & (name of proc) & ": " & (name of win) & "\n"
        end repeat
    end repeat
    return output
end tell`
	ok, out := c.script.Run(ctx, script)
	if !ok {
		return "", fmt.Errorf("failed to list windows: %s", out)
	}
	if strings.TrimSpace(out) == "" {
		return "No visible windows found.", nil
	}
	return strings.TrimSpace(out), nil
}

// CaptureWindow screenshots the frontmost window of appName to outputPath,
// which must fall inside an allowed folder.
func (c *Capturer) CaptureWindow(ctx context.Context, appName, outputPath string) (string, error) {
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return "", fmt.Errorf("%w: application name is required", security.ErrInvalidParameter)
	}
	outputPath = strings.TrimSpace(outputPath)
	if outputPath == "" {
		return "", fmt.Errorf("%w: output path is required", security.ErrInvalidParameter)
	}
	if !strings.HasSuffix(strings.ToLower(outputPath), ".png") {
		outputPath += ".png"
	}
	if err := security.CheckPathAllowed(c.cfg, filepath.Dir(outputPath)); err != nil {
		return "", err
	}

	bounds := fmt.Sprintf(`tell application "System Events"
    tell application process "%s"
        set win to first window
        set {x, y} to position of win
        set {w, h} to size of win
        return (x as text) & "," & (y as text) & "," & (w as text) & "," & (h as text)
    end tell
end tell`, xcode.EscapeString(appName))
	ok, out := c.script.Run(ctx, bounds)
	if !ok {
		return "", fmt.Errorf("%w: no window found for application %q: %s", security.ErrInvalidParameter, appName, out)
	}

	region, err := parseBounds(out)
	if err != nil {
		return "", err
	}
	_, stderr, err := c.runner.Run(ctx, "screencapture", "-x", "-R", region, outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to capture window: %s", strings.TrimSpace(stderr))
	}
	c.logger.Info("Window screenshot saved",
		zap.String("app", appName),
		zap.String("path", outputPath))
	return fmt.Sprintf("Screenshot of %s saved to %s", appName, outputPath), nil
}

// parseBounds validates the "x,y,w,h" reply and returns it in the form
// screencapture expects.
func parseBounds(reply string) (string, error) {
	parts := strings.Split(strings.TrimSpace(reply), ",")
	if len(parts) != 4 {
		return "", fmt.Errorf("unexpected window bounds reply: %q", reply)
	}
	for _, p := range parts {
		if _, err := strconv.Atoi(strings.TrimSpace(p)); err != nil {
			return "", fmt.Errorf("unexpected window bounds reply: %q", reply)
		}
	}
	return strings.TrimSpace(reply), nil
}
