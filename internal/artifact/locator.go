package artifact

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"xcodebridge/internal/security"
)

const bundleExt = ".xcresult"

// pollInterval is the re-scan cadence while waiting for a fresh bundle.
const pollInterval = 1 * time.Second

// statTimes reports (creation, modification) for a path. Injectable so the
// freshness check is testable without a real filesystem clock.
type statTimes func(path string) (created, modified time.Time, err error)

// Locator finds result bundles for a project under the derived-data root.
type Locator struct {
	root   string
	logger *zap.Logger
	stat   statTimes
	now    func() time.Time
}

// NewLocator returns a Locator scanning the given derived-data root.
func NewLocator(derivedDataRoot string, logger *zap.Logger) *Locator {
	return &Locator{
		root:   derivedDataRoot,
		logger: logger,
		stat:   platformStatTimes,
		now:    time.Now,
	}
}

// Locate returns the newest bundle of the given kind for the project, or
// false when none exists. Correlation is by directory-name prefix
// "<ProjectName>-" only; several stale prefix matches may exist from earlier
// builds with different derived-data hashes, so every matching directory is
// enumerated and the globally newest bundle wins. Enumeration errors are
// treated as "not found": a project that has never been run has no bundles,
// and that is a normal state, not a failure.
func (l *Locator) Locate(project security.ProjectRef, kind Kind) (*Artifact, bool) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		l.logger.Debug("Cannot read derived-data root", zap.String("root", l.root), zap.Error(err))
		return nil, false
	}

	prefix := project.Name + "-"
	var best *Artifact
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		logsDir := filepath.Join(append([]string{l.root, entry.Name()}, kind.subdir()...)...)
		bundles, err := os.ReadDir(logsDir)
		if err != nil {
			continue
		}
		for _, b := range bundles {
			if !strings.HasSuffix(b.Name(), bundleExt) {
				continue
			}
			full := filepath.Join(logsDir, b.Name())
			created, modified, err := l.stat(full)
			if err != nil {
				continue
			}
			if best == nil || modified.After(best.Modified) {
				best = &Artifact{Path: full, Created: created, Modified: modified, Kind: kind}
			}
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

// LocateAfter polls for a bundle whose creation AND modification times are
// both at or after notBefore, re-scanning every second up to timeout. This
// is the sole mechanism preventing a rapid successive run from being
// answered with the previous run's bundle. Returns false on timeout.
//
// A filesystem watcher on the derived-data root shortens the wait when the
// IDE finalizes the bundle between ticks; the 1 second re-scan still runs
// regardless, so a missed event only costs latency, never correctness.
func (l *Locator) LocateAfter(ctx context.Context, project security.ProjectRef, kind Kind, notBefore time.Time, timeout time.Duration) (*Artifact, bool) {
	l.logger.Debug("Waiting for result bundle",
		zap.String("project", project.Name),
		zap.Stringer("kind", kind),
		zap.Time("not_before", notBefore),
		zap.Duration("timeout", timeout))

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	wake := l.watchRoot(watchCtx)

	deadline := l.now().Add(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if a, ok := l.Locate(project, kind); ok {
			if a.FreshAt(notBefore) {
				l.logger.Debug("Accepted result bundle", zap.String("path", a.Path))
				return a, true
			}
			l.logger.Debug("Ignoring stale result bundle",
				zap.String("path", a.Path),
				zap.Time("created", a.Created),
				zap.Time("modified", a.Modified))
		}

		if !l.now().Before(deadline) {
			return nil, false
		}
		select {
		case <-ctx.Done():
			return nil, false
		case <-ticker.C:
		case <-wake:
		}
	}
}

// watchRoot returns a channel that fires on derived-data activity, or a nil
// channel (blocks forever in select) when watching is unavailable.
func (l *Locator) watchRoot(ctx context.Context) <-chan struct{} {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil
	}
	if err := watcher.Add(l.root); err != nil {
		_ = watcher.Close()
		return nil
	}

	wake := make(chan struct{}, 1)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-watcher.Events:
				if !ok {
					return
				}
				select {
				case wake <- struct{}{}:
				default:
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return wake
}
