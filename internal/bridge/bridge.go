// Package bridge sequences the IDE operations: invoke an action, wait under
// the caller's budget, locate the correct result bundle among possibly-stale
// candidates, extract its content, classify it, and shape the final
// response. Every terminal response is a human-readable string carrying
// enough context (counts, status, truncation note) that the consumer never
// has to guess whether output was capped.
package bridge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"xcodebridge/internal/artifact"
	"xcodebridge/internal/config"
	"xcodebridge/internal/notify"
	"xcodebridge/internal/security"
	"xcodebridge/internal/xcode"
)

// bundleLocator is the slice of the artifact locator the bridge consumes.
type bundleLocator interface {
	Locate(project security.ProjectRef, kind artifact.Kind) (*artifact.Artifact, bool)
	LocateAfter(ctx context.Context, project security.ProjectRef, kind artifact.Kind, notBefore time.Time, timeout time.Duration) (*artifact.Artifact, bool)
}

// bundleExtractor is the slice of the extractor the bridge consumes.
type bundleExtractor interface {
	ExtractConsole(ctx context.Context, a *artifact.Artifact, filter string, maxLines int, policy artifact.TruncatePolicy) (string, error)
	FetchTestResults(ctx context.Context, a *artifact.Artifact) (string, error)
	FetchSummary(ctx context.Context, a *artifact.Artifact) (artifact.TestSummary, error)
}

// Bridge drives Xcode operations end to end. It holds no per-operation
// state; each call is independent and synchronous.
type Bridge struct {
	cfg       *config.Config
	runner    xcode.ScriptRunner
	locator   bundleLocator
	extractor bundleExtractor
	notifier  *notify.Notifier
	logger    *zap.Logger
	now       func() time.Time
}

// New wires a Bridge from its collaborators.
func New(cfg *config.Config, runner xcode.ScriptRunner, locator *artifact.Locator, extractor *artifact.Extractor, notifier *notify.Notifier, logger *zap.Logger) *Bridge {
	return &Bridge{
		cfg:       cfg,
		runner:    runner,
		locator:   locator,
		extractor: extractor,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// validate authorizes and normalizes the project path, announcing the
// activity on the notification channel.
func (b *Bridge) validate(projectPath, activity string) (security.ProjectRef, string, error) {
	ref, err := security.ValidateProjectPath(b.cfg, projectPath)
	if err != nil {
		return security.ProjectRef{}, "", err
	}
	opID := uuid.NewString()
	b.notifier.Notify(opID, fmt.Sprintf("%s %s", activity, ref.Base()), "")
	return ref, opID, nil
}

// Clean cleans the workspace's build artifacts.
func (b *Bridge) Clean(ctx context.Context, projectPath string) (string, error) {
	ref, _, err := b.validate(projectPath, "Cleaning")
	if err != nil {
		return "", err
	}

	ok, output := b.runner.Run(ctx, xcode.CleanScript(ref.Path))
	if !ok {
		return "", fmt.Errorf("clean failed: %s", output)
	}
	return output, nil
}

// Stop halts the current build or run operation. It refuses to launch the
// IDE as a side effect: a workspace that is not open is a caller error.
func (b *Bridge) Stop(ctx context.Context, projectPath string) (string, error) {
	ref, _, err := b.validate(projectPath, "Stopping build/run for")
	if err != nil {
		return "", err
	}

	ok, output := b.runner.Run(ctx, xcode.StopScript(ref.Path))
	if !ok {
		return "", fmt.Errorf("failed to stop build/run for %s: %s", projectPath, output)
	}
	if after, found := strings.CutPrefix(output, "ERROR:"); found {
		after = strings.TrimSpace(after)
		if strings.Contains(after, "No open workspace found") {
			return "", fmt.Errorf("%w: project is not currently open in Xcode: %s", security.ErrInvalidParameter, projectPath)
		}
		return "", fmt.Errorf("failed to stop build/run: %s", after)
	}
	return output, nil
}

// Schemes lists the workspace's scheme names, active scheme first.
func (b *Bridge) Schemes(ctx context.Context, projectPath string) (string, error) {
	ref, _, err := b.validate(projectPath, "Getting schemes for")
	if err != nil {
		return "", err
	}

	ok, output := b.runner.Run(ctx, xcode.SchemesScript(ref.Path))
	if !ok {
		return "", fmt.Errorf("failed to get schemes for %s: %s", projectPath, output)
	}
	return output, nil
}
