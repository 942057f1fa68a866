package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("PKHOST_TEST_VAR", "value-from-env")

	require.Equal(t, "value-from-env", SubstituteEnvVars("${PKHOST_TEST_VAR}"))
	require.Equal(t, "fallback", SubstituteEnvVars("${PKHOST_UNSET_VAR:fallback}"))
	require.Equal(t, "", SubstituteEnvVars("${PKHOST_UNSET_VAR}"))
	require.Equal(t, "no vars here", SubstituteEnvVars("no vars here"))
}

func TestSubstituteEnvVarsInConfig(t *testing.T) {
	t.Setenv("PKHOST_TEST_DIR", "/data/substituted")

	cfg := &Config{StorageDir: "${PKHOST_TEST_DIR}"}
	cfg.PKDNS.Relays = []string{"${PKHOST_TEST_DIR}/relay"}
	SubstituteEnvVarsInConfig(cfg)

	require.Equal(t, "/data/substituted", cfg.StorageDir)
	require.Equal(t, "/data/substituted/relay", cfg.PKDNS.Relays[0])
}

func TestGetEnvironmentDefaultsToDevelopment(t *testing.T) {
	require.NoError(t, os.Unsetenv("PKHOST_ENV"))
	require.NoError(t, os.Unsetenv("ENVIRONMENT"))
	require.Equal(t, "development", GetEnvironment())
}

func TestIsProductionAndIsDevelopment(t *testing.T) {
	t.Setenv("PKHOST_ENV", "production")
	require.True(t, IsProduction())
	require.False(t, IsDevelopment())

	t.Setenv("PKHOST_ENV", "local")
	require.False(t, IsProduction())
	require.True(t, IsDevelopment())
}
