package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoader(files ...string) aconfig.Config {
	return aconfig.Config{
		SkipFlags: true,
		EnvPrefix: "SCANGO",
		Files:     files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := loadConfig(testLoader())
	require.NoError(t, err)

	assert.Equal(t, defaultAddr, cfg.Addr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "Asia/Kolkata", cfg.Timezone)
	assert.Equal(t, 10*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)
	assert.Equal(t, 3*time.Second, cfg.Graceful.ReadinessDelay)
	assert.Equal(t, 15*time.Second, cfg.Graceful.ShutdownTimeout)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("SCANGO_DATABASE_URL", "postgres://localhost/scango")
	t.Setenv("SCANGO_GATEWAY_BASE_URL", "https://sandbox.gateway.example/pg")
	t.Setenv("SCANGO_TIMEZONE", "UTC")

	cfg, err := loadConfig(testLoader())
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/scango", cfg.DatabaseURL)
	assert.Equal(t, "https://sandbox.gateway.example/pg", cfg.Gateway.BaseURL)
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadConfig_PlatformDefaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://platform/db")

	cfg, err := loadConfig(testLoader())
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)
	assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
}

func TestLoadConfig_File(t *testing.T) {
	t.Setenv("PORT", "")
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte("addr: 127.0.0.1:7000\ntimezone: UTC\n"), 0o600))

	cfg, err := loadConfig(testLoader(p))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
	assert.Equal(t, "UTC", cfg.Timezone)
}

func TestLoadConfig_BadTimezone(t *testing.T) {
	t.Setenv("SCANGO_TIMEZONE", "Mars/Olympus")

	_, err := loadConfig(testLoader())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load timezone")
}
