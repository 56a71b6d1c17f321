package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildConflictingFlags(t *testing.T) {
	_, err := Build(Options{ShowNotifications: true, HideNotifications: true}, zap.NewNop())
	assert.Error(t, err)

	_, err = Build(Options{NoWarnings: true, AlwaysWarnings: true}, zap.NewNop())
	assert.Error(t, err)
}

func TestBuildFoldersFromFlags(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvAllowedFolders, "")

	cfg, err := Build(Options{AllowedFolders: []string{dir}}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{dir}, cfg.AllowedFolders)
}

func TestBuildFoldersFromEnvironment(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	t.Setenv(EnvAllowedFolders, a+":"+b)

	cfg, err := Build(Options{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, cfg.AllowedFolders)
}

func TestBuildSkipsInvalidFolders(t *testing.T) {
	valid := t.TempDir()
	file := filepath.Join(valid, "afile")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	t.Setenv(EnvAllowedFolders, "relative/path:"+filepath.Join(valid, "missing")+":"+file+":"+valid+":"+valid)

	cfg, err := Build(Options{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{valid}, cfg.AllowedFolders, "only the valid directory survives, once")
}

func TestBuildRejectsDotDot(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvAllowedFolders, dir+"/../"+filepath.Base(dir))
	t.Setenv("HOME", dir)

	cfg, err := Build(Options{}, zap.NewNop())
	// The dot-dot candidate is skipped; the HOME fallback does not apply
	// because a candidate list existed, so Build fails.
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestBuildHomeFallback(t *testing.T) {
	home := t.TempDir()
	t.Setenv(EnvAllowedFolders, "")
	t.Setenv("HOME", home)

	cfg, err := Build(Options{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{home}, cfg.AllowedFolders)
}

func TestBuildYAMLFile(t *testing.T) {
	dir := t.TempDir()
	allowed := t.TempDir()
	cfgPath := filepath.Join(dir, "bridge.yaml")
	content := "allowed_folders:\n  - " + allowed + "\nnotifications: true\nbuild_warnings: false\nderived_data_dir: /custom/dd\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))
	t.Setenv(EnvAllowedFolders, "")

	cfg, err := Build(Options{ConfigFile: cfgPath}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{allowed}, cfg.AllowedFolders)
	assert.True(t, cfg.NotificationsEnabled)
	assert.False(t, cfg.WarningsDefault)
	assert.Equal(t, "/custom/dd", cfg.DerivedDataDir)
}

func TestBuildFlagOverridesFileNotifications(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bridge.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("allowed_folders:\n  - "+dir+"\nnotifications: true\n"), 0o644))
	t.Setenv(EnvAllowedFolders, "")

	cfg, err := Build(Options{ConfigFile: cfgPath, HideNotifications: true}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, cfg.NotificationsEnabled)
}

func TestIncludeWarningsPrecedence(t *testing.T) {
	truth := true
	falsity := false

	// Default applies when nothing else is set.
	cfg := &Config{WarningsDefault: true}
	assert.True(t, cfg.IncludeWarnings(nil))

	// Per-call beats the default.
	assert.False(t, cfg.IncludeWarnings(&falsity))

	// Forced beats per-call.
	cfg.WarningsForced = &falsity
	assert.False(t, cfg.IncludeWarnings(&truth))

	cfg.WarningsForced = &truth
	cfg.WarningsDefault = false
	assert.True(t, cfg.IncludeWarnings(&falsity))
}

func TestBuildForcedWarningsFlags(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvAllowedFolders, dir)

	cfg, err := Build(Options{NoWarnings: true}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, cfg.WarningsForced)
	assert.False(t, *cfg.WarningsForced)

	cfg, err = Build(Options{AlwaysWarnings: true}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, cfg.WarningsForced)
	assert.True(t, *cfg.WarningsForced)
}
