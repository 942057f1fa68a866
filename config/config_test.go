package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadFromFileAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "config.yaml", "storage_dir: /var/lib/pkhost\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/pkhost", cfg.StorageDir)
	require.Equal(t, SignupOpen, cfg.SignupMode)
	require.Equal(t, 100, cfg.Store.ListLimitDefault)
	require.Equal(t, 1000, cfg.Store.ListLimitMax)
	require.Equal(t, 14400, cfg.PKDNS.RepublishIntervalSeconds)
	require.Equal(t, 3600, cfg.PKDNS.MaxRecordAgeSeconds)
	require.Equal(t, 10, cfg.PKDNS.MinDHTStorers)
	require.Equal(t, BlobBackendFilesystem, cfg.Blob.Backend)
}

func TestLoadFromFilePreservesExplicitValues(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "config.yaml", `
storage_dir: /data
signup_mode: token_required
default_quota_bytes: 1073741824
pkdns:
  relays:
    - https://relay1.example
    - https://relay2.example
blob:
  backend: google_bucket
  google_bucket: my-bucket
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, SignupTokenRequired, cfg.SignupMode)
	require.Equal(t, int64(1073741824), cfg.DefaultQuotaBytes)
	require.Equal(t, []string{"https://relay1.example", "https://relay2.example"}, cfg.PKDNS.Relays)
	require.Equal(t, BlobBackendGoogleBucket, cfg.Blob.Backend)
	require.Equal(t, "my-bucket", cfg.Blob.GoogleBucket)
}

func TestSaveToFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.yaml")

	cfg := &Config{StorageDir: "/data", SignupMode: SignupOpen}
	setDefaults(cfg)
	require.NoError(t, SaveToFile(cfg, path))

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, cfg.StorageDir, got.StorageDir)
	require.Equal(t, cfg.SignupMode, got.SignupMode)
}

func TestRepublishIntervalAndMaxRecordAge(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	require.Equal(t, 14400*time.Second, cfg.RepublishInterval())
	require.Equal(t, 3600*time.Second, cfg.MaxRecordAge())
}
