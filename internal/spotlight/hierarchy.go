package spotlight

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"xcodebridge/internal/security"
)

// keptHidden are the dotfiles worth showing in a project hierarchy.
var keptHidden = map[string]bool{
	".gitignore":     true,
	".swift-version": true,
}

// Hierarchy renders the directory tree around a project as a connector-drawn
// listing. Build directories and hidden entries are skipped, and project or
// workspace bundles appear as leaves; their internals are noise.
func Hierarchy(projectPath string) (string, error) {
	parent := filepath.Dir(projectPath)
	lines := []string{parent + "/"}

	entries, err := listVisible(parent)
	if err != nil {
		return "", fmt.Errorf("error building hierarchy for %s: %w", projectPath, err)
	}
	for i, name := range entries {
		lines = append(lines, renderEntry(filepath.Join(parent, name), "", i == len(entries)-1)...)
	}
	return strings.Join(lines, "\n"), nil
}

func renderEntry(path, prefix string, isLast bool) []string {
	connector := "├── "
	childPrefix := prefix + "│   "
	if isLast {
		connector = "└── "
		childPrefix = prefix + "    "
	}

	info, err := os.Stat(path)
	isDir := err == nil && info.IsDir()

	name := filepath.Base(path)
	if isDir {
		name += "/"
	}
	lines := []string{prefix + connector + name}
	if !isDir {
		return lines
	}

	base := filepath.Base(path)
	if base == ".build" || base == "build" {
		return lines
	}
	if strings.HasSuffix(path, security.ExtProject) || strings.HasSuffix(path, security.ExtWorkspace) {
		return lines
	}

	children, err := listVisible(path)
	if err != nil {
		return lines
	}
	for i, child := range children {
		lines = append(lines, renderEntry(filepath.Join(path, child), childPrefix, i == len(children)-1)...)
	}
	return lines
}

// listVisible returns sorted entry names, dropping hidden files except the
// kept set.
func listVisible(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") && !keptHidden[name] {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
