// Package spotlight discovers Xcode projects and workspaces through the
// Spotlight index. Only indexed bundles are found; that limitation is
// inherent to mdfind and surfaced in the tool description rather than
// worked around.
package spotlight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"xcodebridge/internal/artifact"
	"xcodebridge/internal/config"
	"xcodebridge/internal/security"
)

const projectQuery = `kMDItemFSName == "*.xcodeproj" || kMDItemFSName == "*.xcworkspace"`

// Searcher finds project bundles under allowed folders.
type Searcher struct {
	cfg    *config.Config
	runner artifact.CommandRunner
	logger *zap.Logger
}

// NewSearcher returns a Searcher shelling out to mdfind.
func NewSearcher(cfg *config.Config, logger *zap.Logger) *Searcher {
	return &Searcher{cfg: cfg, runner: artifact.ExecRunner{}, logger: logger}
}

// Search returns a sorted, deduplicated list of project and workspace paths.
// With an empty searchPath every allowed folder is searched; otherwise the
// given path must pass the allowlist and exist. Per-folder search errors are
// logged and skipped so one unindexed volume cannot empty the whole result.
func (s *Searcher) Search(ctx context.Context, searchPath string) ([]string, error) {
	var roots []string
	if strings.TrimSpace(searchPath) == "" {
		roots = s.cfg.AllowedFolders
	} else {
		p := strings.TrimSpace(searchPath)
		if err := security.CheckPathAllowed(s.cfg, p); err != nil {
			return nil, err
		}
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("%w: search path does not exist: %s", security.ErrInvalidParameter, p)
		}
		roots = []string{p}
	}

	seen := make(map[string]bool)
	var results []string
	for _, root := range roots {
		stdout, stderr, err := s.runner.Run(ctx, "mdfind", "-onlyin", root, projectQuery)
		if err != nil {
			s.logger.Warn("Spotlight search failed for folder",
				zap.String("folder", root),
				zap.String("stderr", strings.TrimSpace(stderr)),
				zap.Error(err))
			continue
		}
		for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
			if line == "" || seen[line] {
				continue
			}
			seen[line] = true
			results = append(results, line)
		}
	}
	sort.Strings(results)
	return results, nil
}

// FormatResults renders the search results for the tool response, with the
// follow-up hint appended when anything was found.
func FormatResults(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	return strings.Join(paths, "\n") +
		"\n\nTo build a project, use `get_project_schemes` to see available build schemes, then call `build_project`."
}

// SampleNames returns up to three basenames for notification details.
func SampleNames(paths []string) string {
	var b strings.Builder
	for i, p := range paths {
		if i == 3 {
			fmt.Fprintf(&b, "• +%d more", len(paths)-3)
			break
		}
		fmt.Fprintf(&b, "• %s\n", filepath.Base(p))
	}
	return strings.TrimRight(b.String(), "\n")
}
