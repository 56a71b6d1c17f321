// Package security enforces the filesystem access allowlist and validates
// project references before any operation touches a path.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"xcodebridge/internal/config"
)

// Project extensions recognized as buildable targets.
const (
	ExtProject   = ".xcodeproj"
	ExtWorkspace = ".xcworkspace"
)

// ProjectRef identifies a validated build/run/test target. The path is
// absolute and symlink-resolved; Name is the basename with the extension
// stripped and is the only correlation key to derived-data artifacts.
type ProjectRef struct {
	Path string
	Name string
}

// Base returns the file name component of the project path.
func (p ProjectRef) Base() string {
	return filepath.Base(p.Path)
}

// CheckPathAllowed reports whether path sits at or below one of the allowed
// roots. The path is normalized to absolute form first; a direct match or a
// subfolder match both pass.
func CheckPathAllowed(cfg *config.Config, path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrAccessDenied)
	}
	if len(cfg.AllowedFolders) == 0 {
		return fmt.Errorf("%w: no allowed folders configured", ErrAccessDenied)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}
	abs = strings.TrimRight(abs, "/")

	for _, allowed := range cfg.AllowedFolders {
		if abs == allowed || strings.HasPrefix(abs, allowed+"/") {
			return nil
		}
	}
	return fmt.Errorf("%w: path %q is not under an allowed folder (set %s)",
		ErrAccessDenied, path, config.EnvAllowedFolders)
}

// ValidateProjectPath validates and normalizes a project path for Xcode
// operations: non-empty, recognized extension, allowlisted, and existing.
// The returned ProjectRef carries the symlink-resolved path.
func ValidateProjectPath(cfg *config.Config, projectPath string) (ProjectRef, error) {
	projectPath = strings.TrimSpace(projectPath)
	if projectPath == "" {
		return ProjectRef{}, fmt.Errorf("%w: project_path cannot be empty", ErrInvalidParameter)
	}

	if !strings.HasSuffix(projectPath, ExtProject) && !strings.HasSuffix(projectPath, ExtWorkspace) {
		return ProjectRef{}, fmt.Errorf("%w: project_path must end with '%s' or '%s'",
			ErrInvalidParameter, ExtProject, ExtWorkspace)
	}

	if err := CheckPathAllowed(cfg, projectPath); err != nil {
		return ProjectRef{}, err
	}

	if _, err := os.Stat(projectPath); err != nil {
		return ProjectRef{}, fmt.Errorf("%w: project path does not exist: %s", ErrInvalidParameter, projectPath)
	}

	resolved, err := filepath.EvalSymlinks(projectPath)
	if err != nil {
		return ProjectRef{}, fmt.Errorf("%w: cannot resolve project path: %v", ErrInvalidParameter, err)
	}

	return ProjectRef{Path: resolved, Name: ProjectName(resolved)}, nil
}

// ProjectName derives the artifact correlation name from a project path by
// stripping the recognized extension from the basename.
func ProjectName(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ExtWorkspace)
	name = strings.TrimSuffix(name, ExtProject)
	return name
}
