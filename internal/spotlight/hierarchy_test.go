package spotlight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func mkdirs(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		if err := os.MkdirAll(p, 0o755); err != nil {
			t.Fatal(err)
		}
	}
}

func touch(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestHierarchyRendersTree(t *testing.T) {
	root := t.TempDir()
	mkdirs(t,
		filepath.Join(root, "App.xcodeproj", "xcshareddata"),
		filepath.Join(root, "Sources"),
	)
	touch(t,
		filepath.Join(root, "Sources", "main.swift"),
		filepath.Join(root, "README.md"),
	)

	got, err := Hierarchy(filepath.Join(root, "App.xcodeproj"))
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(got, root+"/") {
		t.Errorf("missing root line: %q", got)
	}
	for _, want := range []string{"App.xcodeproj/", "Sources/", "main.swift", "README.md"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
	if !strings.Contains(got, "├── ") || !strings.Contains(got, "└── ") {
		t.Errorf("connectors missing:\n%s", got)
	}
	if strings.Contains(got, "xcshareddata") {
		t.Errorf("descended into project bundle:\n%s", got)
	}
}

func TestHierarchySkipsBuildAndHidden(t *testing.T) {
	root := t.TempDir()
	mkdirs(t,
		filepath.Join(root, "App.xcodeproj"),
		filepath.Join(root, "build", "products"),
		filepath.Join(root, ".git"),
	)
	touch(t,
		filepath.Join(root, ".gitignore"),
		filepath.Join(root, ".hidden"),
		filepath.Join(root, ".swift-version"),
		filepath.Join(root, "build", "products", "App.app"),
	)

	got, err := Hierarchy(filepath.Join(root, "App.xcodeproj"))
	if err != nil {
		t.Fatal(err)
	}

	if strings.Contains(got, "products") || strings.Contains(got, "App.app") {
		t.Errorf("descended into build directory:\n%s", got)
	}
	if strings.Contains(got, ".git/") || strings.Contains(got, ".hidden") {
		t.Errorf("hidden entries listed:\n%s", got)
	}
	for _, kept := range []string{".gitignore", ".swift-version"} {
		if !strings.Contains(got, kept) {
			t.Errorf("kept dotfile %q missing:\n%s", kept, got)
		}
	}
}

func TestSampleNames(t *testing.T) {
	got := SampleNames([]string{"/a/One.xcodeproj", "/b/Two.xcworkspace"})
	if !strings.Contains(got, "• One.xcodeproj") || !strings.Contains(got, "• Two.xcworkspace") {
		t.Errorf("got %q", got)
	}

	many := SampleNames([]string{"/a/1.xcodeproj", "/a/2.xcodeproj", "/a/3.xcodeproj", "/a/4.xcodeproj", "/a/5.xcodeproj"})
	if !strings.Contains(many, "• +2 more") {
		t.Errorf("got %q", many)
	}
}

func TestFormatResults(t *testing.T) {
	if got := FormatResults(nil); got != "" {
		t.Errorf("empty results: got %q", got)
	}
	got := FormatResults([]string{"/a/App.xcodeproj"})
	if !strings.HasPrefix(got, "/a/App.xcodeproj") {
		t.Errorf("got %q", got)
	}
	if !strings.Contains(got, "get_project_schemes") {
		t.Errorf("follow-up hint missing: %q", got)
	}
}
