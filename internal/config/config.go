// Package config builds the process-wide configuration for the Xcode bridge.
// The Config is assembled once at startup from defaults, an optional YAML
// file, the environment, and CLI flags, and is read-only afterwards.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// EnvAllowedFolders is the colon-separated list of allowed roots.
const EnvAllowedFolders = "XCODEBRIDGE_ALLOWED_FOLDERS"

// Config holds all bridge settings. Construct it with Build and treat it as
// immutable; every component that needs policy receives it explicitly.
type Config struct {
	// AllowedFolders is the filesystem allowlist. Operations may only touch
	// paths at or below one of these roots.
	AllowedFolders []string

	// NotificationsEnabled controls the macOS notification side channel.
	NotificationsEnabled bool

	// WarningsDefault is used when a tool call does not say whether build
	// warnings should be included.
	WarningsDefault bool

	// WarningsForced, when non-nil, overrides both the per-call request and
	// the default. Operator policy beats agent policy.
	WarningsForced *bool

	// DerivedDataDir is the per-user Xcode derived-data root. Empty means
	// the standard ~/Library/Developer/Xcode/DerivedData.
	DerivedDataDir string

	Verbose bool
}

// fileConfig mirrors the optional YAML config file.
type fileConfig struct {
	AllowedFolders []string `yaml:"allowed_folders"`
	Notifications  *bool    `yaml:"notifications"`
	BuildWarnings  *bool    `yaml:"build_warnings"`
	DerivedDataDir string   `yaml:"derived_data_dir"`
}

// Options carries the CLI-level inputs to Build.
type Options struct {
	ConfigFile        string
	AllowedFolders    []string // repeatable --allowed
	ShowNotifications bool
	HideNotifications bool
	NoWarnings        bool // --no-build-warnings
	AlwaysWarnings    bool // --always-include-build-warnings
	Verbose           bool
}

// Build assembles the configuration. Precedence for the allowlist is
// file < environment < flags (all are merged, then validated). Returns an
// error when the flag combinations conflict or no valid allowed folder
// remains.
func Build(opts Options, logger *zap.Logger) (*Config, error) {
	if opts.ShowNotifications && opts.HideNotifications {
		return nil, fmt.Errorf("cannot use both --show-notifications and --hide-notifications")
	}
	if opts.NoWarnings && opts.AlwaysWarnings {
		return nil, fmt.Errorf("cannot use both --no-build-warnings and --always-include-build-warnings")
	}

	cfg := &Config{
		NotificationsEnabled: false,
		WarningsDefault:      true,
		Verbose:              opts.Verbose,
	}

	var candidates []string

	if opts.ConfigFile != "" {
		fc, err := loadFile(opts.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		candidates = append(candidates, fc.AllowedFolders...)
		if fc.Notifications != nil {
			cfg.NotificationsEnabled = *fc.Notifications
		}
		if fc.BuildWarnings != nil {
			cfg.WarningsDefault = *fc.BuildWarnings
		}
		cfg.DerivedDataDir = fc.DerivedDataDir
	}

	if env := os.Getenv(EnvAllowedFolders); env != "" {
		logger.Info("Using allowed folders from environment", zap.String("value", env))
		candidates = append(candidates, strings.Split(env, ":")...)
	}
	if len(opts.AllowedFolders) > 0 {
		logger.Info("Adding allowed folders from command line", zap.Int("count", len(opts.AllowedFolders)))
		candidates = append(candidates, opts.AllowedFolders...)
	}

	if len(candidates) == 0 {
		home := os.Getenv("HOME")
		if home == "" {
			home = "/"
		}
		logger.Warn("No allowed folders specified, defaulting to $HOME",
			zap.String("home", home),
			zap.String("hint", "set "+EnvAllowedFolders+" or use --allowed"))
		candidates = []string{home}
	}

	cfg.AllowedFolders = validateFolders(candidates, logger)
	if len(cfg.AllowedFolders) == 0 {
		return nil, fmt.Errorf("no valid allowed folders; folders must be absolute existing directories without '..' components")
	}

	switch {
	case opts.ShowNotifications:
		cfg.NotificationsEnabled = true
	case opts.HideNotifications:
		cfg.NotificationsEnabled = false
	}

	switch {
	case opts.NoWarnings:
		f := false
		cfg.WarningsDefault = false
		cfg.WarningsForced = &f
	case opts.AlwaysWarnings:
		t := true
		cfg.WarningsDefault = true
		cfg.WarningsForced = &t
	}

	if cfg.DerivedDataDir == "" {
		cfg.DerivedDataDir = defaultDerivedDataDir()
	}

	return cfg, nil
}

func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &fc, nil
}

// validateFolders filters the candidate list down to absolute, existing
// directories. Bad entries are logged and skipped, never fatal on their own.
func validateFolders(candidates []string, logger *zap.Logger) []string {
	seen := make(map[string]bool)
	var out []string
	for _, folder := range candidates {
		folder = strings.TrimRight(strings.TrimSpace(folder), "/")
		if folder == "" {
			continue
		}
		if !filepath.IsAbs(folder) {
			logger.Warn("Skipping non-absolute allowed folder", zap.String("path", folder))
			continue
		}
		if containsDotDot(folder) {
			logger.Warn("Skipping allowed folder with '..' component", zap.String("path", folder))
			continue
		}
		info, err := os.Stat(folder)
		if err != nil {
			logger.Warn("Skipping non-existent allowed folder", zap.String("path", folder))
			continue
		}
		if !info.IsDir() {
			logger.Warn("Skipping non-directory allowed folder", zap.String("path", folder))
			continue
		}
		if seen[folder] {
			continue
		}
		seen[folder] = true
		out = append(out, folder)
		logger.Info("Added allowed folder", zap.String("path", folder))
	}
	return out
}

func containsDotDot(path string) bool {
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if part == ".." {
			return true
		}
	}
	return false
}

func defaultDerivedDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "Library", "Developer", "Xcode", "DerivedData")
}

// IncludeWarnings resolves the effective warnings setting for one call.
// A forced operator setting always wins over the per-call request, which in
// turn wins over the process default.
func (c *Config) IncludeWarnings(perCall *bool) bool {
	if c.WarningsForced != nil {
		return *c.WarningsForced
	}
	if perCall != nil {
		return *perCall
	}
	return c.WarningsDefault
}
