package simctl

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"xcodebridge/internal/config"
	"xcodebridge/internal/security"
)

type stubRunner struct {
	stdout string
	stderr string
	err    error
	args   []string
}

func (s *stubRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	s.args = append([]string{name}, args...)
	return s.stdout, s.stderr, s.err
}

func TestListBooted(t *testing.T) {
	payload := `{"devices":{
		"com.apple.CoreSimulator.SimRuntime.iOS-17-5":[
			{"name":"iPhone 15","udid":"AAAA","state":"Booted"},
			{"name":"iPhone SE","udid":"BBBB","state":"Shutdown"}
		],
		"com.apple.CoreSimulator.SimRuntime.watchOS-10-5":[
			{"name":"Apple Watch","udid":"CCCC","state":"Booted"}
		]}}`
	runner := &stubRunner{stdout: payload}
	c := &Client{cfg: &config.Config{}, runner: runner, logger: zap.NewNop()}

	devices, err := c.ListBooted(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(devices) != 2 {
		t.Fatalf("got %d devices, want 2 booted", len(devices))
	}
	if devices[0].Name != "Apple Watch" || devices[1].Name != "iPhone 15" {
		t.Errorf("not sorted by name: %+v", devices)
	}
	if devices[1].Runtime != "iOS-17-5" {
		t.Errorf("runtime: got %q", devices[1].Runtime)
	}
}

func TestListBootedCommandFailure(t *testing.T) {
	runner := &stubRunner{stderr: "xcrun: error: unable to find simctl", err: errors.New("exit 1")}
	c := &Client{cfg: &config.Config{}, runner: runner, logger: zap.NewNop()}

	if _, err := c.ListBooted(context.Background()); err == nil {
		t.Error("expected an error")
	}
}

func TestFormatDevices(t *testing.T) {
	if got := FormatDevices(nil); !strings.Contains(got, "No booted simulators found.") {
		t.Errorf("got %q", got)
	}
	got := FormatDevices([]Device{{Name: "iPhone 15", UDID: "AAAA", Runtime: "iOS-17-5"}})
	if !strings.Contains(got, "iPhone 15 (iOS-17-5) [AAAA]") {
		t.Errorf("got %q", got)
	}
}

func TestScreenshotValidatesPath(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{AllowedFolders: []string{root}}
	c := &Client{cfg: cfg, runner: &stubRunner{}, logger: zap.NewNop()}

	if _, err := c.Screenshot(context.Background(), "", ""); !errors.Is(err, security.ErrInvalidParameter) {
		t.Errorf("empty path: got %v", err)
	}
	if _, err := c.Screenshot(context.Background(), "", "/elsewhere/shot.png"); !errors.Is(err, security.ErrAccessDenied) {
		t.Errorf("outside allowlist: got %v", err)
	}
}

func TestScreenshotDefaultsToBootedAndAppendsExtension(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{AllowedFolders: []string{root}}
	runner := &stubRunner{}
	c := &Client{cfg: cfg, runner: runner, logger: zap.NewNop()}

	out := filepath.Join(root, "shot")
	msg, err := c.Screenshot(context.Background(), "", out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(msg, out+".png") {
		t.Errorf("got %q", msg)
	}
	joined := strings.Join(runner.args, " ")
	if !strings.Contains(joined, "io booted screenshot") {
		t.Errorf("command: %q", joined)
	}
}
