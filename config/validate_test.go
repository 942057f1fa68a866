package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{StorageDir: "/data", PKDNS: PKDNSConfig{Relays: []string{"https://relay.example"}}}
	setDefaults(cfg)
	return cfg
}

func TestValidateConfigurationAcceptsValidConfig(t *testing.T) {
	errs := ValidateConfiguration(validConfig())
	for _, e := range errs {
		require.NotEqual(t, LevelError, e.Level, e.String())
	}
}

func TestValidateConfigurationRejectsEmptyStorageDir(t *testing.T) {
	cfg := validConfig()
	cfg.StorageDir = ""
	errs := ValidateConfiguration(cfg)
	require.Contains(t, fieldsWithLevel(errs, LevelError), "storage_dir")
}

func TestValidateConfigurationRejectsBadListLimits(t *testing.T) {
	cfg := validConfig()
	cfg.Store.ListLimitMax = 10
	cfg.Store.ListLimitDefault = 100
	errs := ValidateConfiguration(cfg)
	require.Contains(t, fieldsWithLevel(errs, LevelError), "list_limit_max")
}

func TestValidateConfigurationRequiresGoogleBucketWhenSelected(t *testing.T) {
	cfg := validConfig()
	cfg.Blob.Backend = BlobBackendGoogleBucket
	errs := ValidateConfiguration(cfg)
	require.Contains(t, fieldsWithLevel(errs, LevelError), "blob.google_bucket")
}

func TestValidateConfigurationWarnsOnNoRelays(t *testing.T) {
	cfg := validConfig()
	cfg.PKDNS.Relays = nil
	errs := ValidateConfiguration(cfg)
	require.Contains(t, fieldsWithLevel(errs, LevelWarning), "relays")
}

func fieldsWithLevel(errs []ValidationError, level ValidationLevel) []string {
	var out []string
	for _, e := range errs {
		if e.Level == level {
			out = append(out, e.Field)
		}
	}
	return out
}
