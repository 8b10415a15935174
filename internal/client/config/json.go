package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
	"github.com/dmitrijs2005/authkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// accept strings like "15s" or integer nanoseconds.
type JsonConfig struct {
	APIURL               string         `json:"api_url"`
	StoreKind            string         `json:"store"`
	StorePath            string         `json:"store_path"`
	RedisAddr            string         `json:"redis_addr"`
	RedisKey             string         `json:"redis_key"`
	RequestTimeout       timex.Duration `json:"request_timeout"`
	RefreshCheckInterval timex.Duration `json:"refresh_check_interval"`
	LogLevel             string         `json:"log_level"`
}

// parseJson overlays Config with the JSON file named by -c/-config. Fields
// missing from the file keep their current values. The passphrase is never
// read from JSON. Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigFileFlag()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	overlay := func(v string, dst *string) {
		if v != "" {
			*dst = v
		}
	}
	overlay(jc.APIURL, &cfg.APIURL)
	if jc.StoreKind != "" {
		cfg.StoreKind = StoreKind(jc.StoreKind)
	}
	overlay(jc.StorePath, &cfg.StorePath)
	overlay(jc.RedisAddr, &cfg.RedisAddr)
	overlay(jc.RedisKey, &cfg.RedisKey)
	overlay(jc.LogLevel, &cfg.LogLevel)
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.RefreshCheckInterval.Duration > 0 {
		cfg.RefreshCheckInterval = time.Duration(jc.RefreshCheckInterval.Duration)
	}
}
