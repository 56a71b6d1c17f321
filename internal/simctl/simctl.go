// Package simctl wraps the simulator control CLI for device listing and
// screenshots.
package simctl

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"xcodebridge/internal/artifact"
	"xcodebridge/internal/config"
	"xcodebridge/internal/security"
)

// Device is one simulator as reported by simctl.
type Device struct {
	Name    string `json:"name"`
	UDID    string `json:"udid"`
	State   string `json:"state"`
	Runtime string `json:"-"`
}

// Client shells out to `xcrun simctl`.
type Client struct {
	cfg    *config.Config
	runner artifact.CommandRunner
	logger *zap.Logger
}

// NewClient returns a Client using xcrun.
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{cfg: cfg, runner: artifact.ExecRunner{}, logger: logger}
}

// ListBooted returns all currently booted simulators, sorted by name.
func (c *Client) ListBooted(ctx context.Context) ([]Device, error) {
	stdout, stderr, err := c.runner.Run(ctx, "xcrun", "simctl", "list", "devices", "booted", "-j")
	if err != nil {
		return nil, fmt.Errorf("failed to list simulators: %s", strings.TrimSpace(stderr))
	}

	var doc struct {
		Devices map[string][]Device `json:"devices"`
	}
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse simulator list: %w", err)
	}

	var booted []Device
	for runtime, devices := range doc.Devices {
		for _, d := range devices {
			if !strings.EqualFold(d.State, "Booted") {
				continue
			}
			d.Runtime = runtimeName(runtime)
			booted = append(booted, d)
		}
	}
	sort.Slice(booted, func(i, j int) bool { return booted[i].Name < booted[j].Name })
	return booted, nil
}

// FormatDevices renders the device list for the tool response.
func FormatDevices(devices []Device) string {
	if len(devices) == 0 {
		return "No booted simulators found. Boot one with `xcrun simctl boot <name>` or from the Simulator app."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d booted simulator(s):\n", len(devices))
	for _, d := range devices {
		fmt.Fprintf(&b, "- %s (%s) [%s]\n", d.Name, d.Runtime, d.UDID)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Screenshot captures a booted simulator's screen to outputPath, which must
// fall inside an allowed folder. An empty udid targets the sole booted
// device ("booted" in simctl terms).
func (c *Client) Screenshot(ctx context.Context, udid, outputPath string) (string, error) {
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

	target := strings.TrimSpace(udid)
	if target == "" {
		target = "booted"
	}
	_, stderr, err := c.runner.Run(ctx, "xcrun", "simctl", "io", target, "screenshot", outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to take simulator screenshot: %s", strings.TrimSpace(stderr))
	}
	c.logger.Info("Simulator screenshot saved",
		zap.String("udid", target),
		zap.String("path", outputPath))
	return fmt.Sprintf("Screenshot saved to %s", outputPath), nil
}

// runtimeName trims the reverse-DNS runtime identifier down to a readable
// name, e.g. "com.apple.CoreSimulator.SimRuntime.iOS-17-5" to "iOS-17-5".
func runtimeName(id string) string {
	if idx := strings.LastIndex(id, "."); idx >= 0 {
		return id[idx+1:]
	}
	return id
}
