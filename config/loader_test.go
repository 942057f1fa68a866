package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFallsBackToEmptyConfigWithDefaults(t *testing.T) {
	// storage_dir has no default and validation requires it.
	t.Setenv("PKHOST_STORAGE_DIR", "/data")
	cfg, err := Load(LoaderOptions{ConfigDir: t.TempDir()})
	require.NoError(t, err)
	require.Equal(t, SignupOpen, cfg.SignupMode)
	require.Equal(t, 100, cfg.Store.ListLimitDefault)
}

func TestLoadPrefersEnvironmentSpecificFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.yaml"), []byte("storage_dir: /default\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "staging.yaml"), []byte("storage_dir: /staging\n"), 0o644))

	cfg, err := Load(LoaderOptions{ConfigDir: dir, Environment: "staging"})
	require.NoError(t, err)
	require.Equal(t, "/staging", cfg.StorageDir)
}

func TestLoadAppliesEnvironmentOverrides(t *testing.T) {
	t.Setenv("PKHOST_STORAGE_DIR", "/from-env")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("storage_dir: /from-file\n"), 0o644))

	cfg, err := Load(LoaderOptions{ConfigDir: dir})
	require.NoError(t, err)
	require.Equal(t, "/from-env", cfg.StorageDir)
}

func TestLoadFailsValidationOnUnrecognizedSignupMode(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("storage_dir: /data\nsignup_mode: bogus\n"), 0o644))

	_, err := Load(LoaderOptions{ConfigDir: dir})
	require.Error(t, err)
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PKHOST_STORAGE_DIR=/from-dotenv\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("storage_dir: /from-file\n"), 0o644))
	// godotenv sets the variable process-wide; clear it for later tests.
	t.Cleanup(func() { _ = os.Unsetenv("PKHOST_STORAGE_DIR") })

	cfg, err := Load(LoaderOptions{ConfigDir: dir, DotEnvPath: filepath.Join(dir, ".env")})
	require.NoError(t, err)
	require.Equal(t, "/from-dotenv", cfg.StorageDir)
}

func TestLoadIgnoresMissingDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("storage_dir: /from-file\n"), 0o644))

	cfg, err := Load(LoaderOptions{ConfigDir: dir, DotEnvPath: filepath.Join(dir, "does-not-exist.env")})
	require.NoError(t, err)
	require.Equal(t, "/from-file", cfg.StorageDir)
}

func TestLoadForEnvironment(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.yaml"), []byte("storage_dir: /data\n"), 0o644))
	t.Chdir(dir)

	cfg, err := LoadForEnvironment("production")
	require.NoError(t, err)
	require.Equal(t, "production", cfg.Environment)
}

func TestMustLoadPanicsOnInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("storage_dir: /data\nsignup_mode: bogus\n"), 0o644))

	require.Panics(t, func() {
		MustLoad(LoaderOptions{ConfigDir: dir})
	})
}
