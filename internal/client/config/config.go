package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// StoreKind selects the persistence behind the credential store.
type StoreKind string

const (
	StoreSQLite StoreKind = "sqlite"
	StoreMemory StoreKind = "memory"
	StoreRedis  StoreKind = "redis"
)

// Config holds runtime settings for the authkeeper CLI.
//
// Fields:
//   - APIURL: base URL of the auth API.
//   - StoreKind, StorePath, RedisAddr, RedisKey: where the credential record lives.
//   - StorePassphrase: when set, stored values are sealed with a key derived from it.
//   - RequestTimeout: upper bound of one HTTP exchange.
//   - RefreshCheckInterval: how often the CLI looks for access tokens about to expire.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	APIURL               string
	StoreKind            StoreKind
	StorePath            string
	RedisAddr            string
	RedisKey             string
	StorePassphrase      string
	RequestTimeout       time.Duration
	RefreshCheckInterval time.Duration
	LogLevel             string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIURL = "http://localhost:5000"
	c.StoreKind = StoreSQLite
	c.StorePath = defaultStorePath()
	c.RedisAddr = "localhost:6379"
	c.RedisKey = "authkeeper:session"
	c.StorePassphrase = ""
	c.RequestTimeout = 15 * time.Second
	c.RefreshCheckInterval = time.Minute
	c.LogLevel = "info"
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "authkeeper.db"
	}
	return filepath.Join(dir, "authkeeper", "session.db")
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api url %q must be an absolute http(s) URL", c.APIURL)
	}

	switch c.StoreKind {
	case StoreSQLite:
		if c.StorePath == "" {
			return fmt.Errorf("sqlite store requires a path")
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis store requires an address")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store kind %q (want sqlite, memory or redis)", c.StoreKind)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.RefreshCheckInterval <= 0 {
		return fmt.Errorf("refresh check interval must be positive")
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment (including an optional .env file), JSON (if present) and
// command-line flags (if present). Later sources take precedence over earlier
// ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
