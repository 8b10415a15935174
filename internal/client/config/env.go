package config

import (
	"os"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
	"github.com/joho/godotenv"
)

const (
	EnvAPIURL               = "API_URL"
	EnvStoreKind            = "AUTHKEEPER_STORE"
	EnvStorePath            = "AUTHKEEPER_STORE_PATH"
	EnvRedisAddr            = "AUTHKEEPER_REDIS_ADDR"
	EnvRedisKey             = "AUTHKEEPER_REDIS_KEY"
	EnvStorePassphrase      = "AUTHKEEPER_PASSPHRASE"
	EnvRequestTimeout       = "AUTHKEEPER_REQUEST_TIMEOUT"
	EnvRefreshCheckInterval = "AUTHKEEPER_REFRESH_CHECK_INTERVAL"
	EnvLogLevel             = "AUTHKEEPER_LOG_LEVEL"
)

// parseEnv overlays Config with environment variables. A dotenv file named
// with -e/-env-file must exist; otherwise ./.env is loaded when present.
// Variables already set in the process environment win over the file.
//
// Durations use time.ParseDuration syntax ("15s"). Panics on an unreadable
// env file or a malformed duration.
func parseEnv(cfg *Config) {
	if envFile := flagx.EnvFileFlag(); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			panic(err)
		}
	} else {
		_ = godotenv.Load()
	}

	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		*dst = d
	}

	setString(EnvAPIURL, &cfg.APIURL)
	if v, ok := os.LookupEnv(EnvStoreKind); ok && v != "" {
		cfg.StoreKind = StoreKind(v)
	}
	setString(EnvStorePath, &cfg.StorePath)
	setString(EnvRedisAddr, &cfg.RedisAddr)
	setString(EnvRedisKey, &cfg.RedisKey)
	setString(EnvStorePassphrase, &cfg.StorePassphrase)
	setDuration(EnvRequestTimeout, &cfg.RequestTimeout)
	setDuration(EnvRefreshCheckInterval, &cfg.RefreshCheckInterval)
	setString(EnvLogLevel, &cfg.LogLevel)
}
