package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = append([]string{"testbin"}, args...)
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://localhost:5000", c.APIURL)
	assert.Equal(t, StoreSQLite, c.StoreKind)
	assert.NotEmpty(t, c.StorePath)
	assert.Equal(t, 15*time.Second, c.RequestTimeout)
	assert.Equal(t, time.Minute, c.RefreshCheckInterval)
	assert.Equal(t, "info", c.LogLevel)
	require.NoError(t, c.Validate())
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	setArgs(t)
	t.Chdir(t.TempDir())

	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "http://localhost:5000", cfg.APIURL)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	envFile := filepath.Join(dir, "custom.env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"API_URL=http://from-env:1\nAUTHKEEPER_STORE=redis\nAUTHKEEPER_LOG_LEVEL=debug\nAUTHKEEPER_PASSPHRASE=s3cret\n"), 0o600))
	jsonFile := writeTempJSON(t, dir, "cfg.json", map[string]any{
		"api_url":         "http://from-json:2",
		"request_timeout": "7s",
	})

	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvStoreKind, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvStorePassphrase, "")
	for _, k := range []string{EnvAPIURL, EnvStoreKind, EnvLogLevel, EnvStorePassphrase} {
		require.NoError(t, os.Unsetenv(k))
	}

	setArgs(t, "-e", envFile, "-c", jsonFile, "-a", "http://from-flag:3", "-i", "30")

	cfg := LoadConfig()

	want := &Config{
		APIURL:               "http://from-flag:3",
		StoreKind:            StoreRedis,
		StorePath:            defaultStorePath(),
		RedisAddr:            "localhost:6379",
		RedisKey:             "authkeeper:session",
		StorePassphrase:      "s3cret",
		RequestTimeout:       7 * time.Second,
		RefreshCheckInterval: 30 * time.Second,
		LogLevel:             "debug",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_SubSecondEnvDurationsSurviveFlags(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(EnvRequestTimeout, "1500ms")
	t.Setenv(EnvRefreshCheckInterval, "500ms")
	setArgs(t)

	cfg := LoadConfig()

	assert.Equal(t, 1500*time.Millisecond, cfg.RequestTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.RefreshCheckInterval)
	require.NoError(t, cfg.Validate())

	setArgs(t, "-t", "4")
	cfg = LoadConfig()
	assert.Equal(t, 4*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.RefreshCheckInterval)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "memory", mutate: func(c *Config) { c.StoreKind = StoreMemory; c.StorePath = "" }},
		{name: "relative url", mutate: func(c *Config) { c.APIURL = "localhost:5000" }, wantErr: "absolute http(s) URL"},
		{name: "ftp url", mutate: func(c *Config) { c.APIURL = "ftp://host" }, wantErr: "absolute http(s) URL"},
		{name: "unknown store", mutate: func(c *Config) { c.StoreKind = "etcd" }, wantErr: "unknown store kind"},
		{name: "sqlite without path", mutate: func(c *Config) { c.StorePath = "" }, wantErr: "requires a path"},
		{name: "redis without addr", mutate: func(c *Config) { c.StoreKind = StoreRedis; c.RedisAddr = "" }, wantErr: "requires an address"},
		{name: "zero timeout", mutate: func(c *Config) { c.RequestTimeout = 0 }, wantErr: "timeout"},
		{name: "zero interval", mutate: func(c *Config) { c.RefreshCheckInterval = 0 }, wantErr: "interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.mutate(&c)

			err := c.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
