// Package config loads runtime configuration for the authkeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment variables (see parseEnv), after loading a dotenv file:
//     the one named by -e/-env-file, else ./.env when present.
//  3. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the auth API
//	-s string   credential store: sqlite, memory or redis
//	-p string   SQLite file of the credential store
//	-r string   Redis address of the credential store
//	-t int      request timeout (seconds)
//	-i int      token expiry check interval (seconds)
//	-l string   log level
//
// # Environment
//
//	API_URL, AUTHKEEPER_STORE, AUTHKEEPER_STORE_PATH, AUTHKEEPER_REDIS_ADDR,
//	AUTHKEEPER_REDIS_KEY, AUTHKEEPER_PASSPHRASE, AUTHKEEPER_REQUEST_TIMEOUT,
//	AUTHKEEPER_REFRESH_CHECK_INTERVAL, AUTHKEEPER_LOG_LEVEL
//
// The passphrase that seals the credential store is only taken from the
// environment, never from JSON or flags.
//
// # JSON schema
//
// Durations are timex.Duration values, either strings like "15s" or integer
// nanoseconds:
//
//	{
//	  "api_url": "https://auth.example.com",
//	  "store": "redis",
//	  "redis_addr": "localhost:6379",
//	  "request_timeout": "15s",
//	  "refresh_check_interval": "1m"
//	}
package config
