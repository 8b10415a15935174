package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the auth API
//	-s string   credential store: sqlite, memory or redis
//	-p string   SQLite file of the credential store
//	-r string   Redis address of the credential store
//	-t int      request timeout (seconds)
//	-i int      token expiry check interval (seconds)
//	-l string   log level
//
// os.Args is filtered with flagx.FilterArgs first, so flags owned by other
// parts of the program do not interfere.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-s", "-p", "-r", "-t", "-i", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIURL, "a", cfg.APIURL, "base URL of the auth API")
	storeKind := fs.String("s", string(cfg.StoreKind), "credential store: sqlite, memory or redis")
	fs.StringVar(&cfg.StorePath, "p", cfg.StorePath, "path of the SQLite credential store")
	fs.StringVar(&cfg.RedisAddr, "r", cfg.RedisAddr, "address of the Redis credential store")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	checkInterval := fs.Int("i", int(cfg.RefreshCheckInterval.Seconds()), "token expiry check interval (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level: debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.StoreKind = StoreKind(*storeKind)

	// Durations set by env or JSON may carry sub-second parts, so the whole
	// second flags only overwrite them when given.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
		case "i":
			cfg.RefreshCheckInterval = time.Duration(*checkInterval) * time.Second
		}
	})
}
