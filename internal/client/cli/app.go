package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/config"
	"github.com/dmitrijs2005/authkeeper/internal/client/credentials"
	"github.com/dmitrijs2005/authkeeper/internal/client/services"
	"github.com/dmitrijs2005/authkeeper/internal/client/session"
	"github.com/dmitrijs2005/authkeeper/internal/client/tokens"
	"github.com/dmitrijs2005/authkeeper/internal/filex"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config       *config.Config
	log          logging.Logger
	authService  services.AuthService
	adminService services.AdminService
	reader       *bufio.Reader
	out          io.Writer
	closers      []func() error

	sessionEnded atomic.Bool
}

// NewApp opens the configured credential store and builds the services on
// top of one session client.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	a := &App{
		config: c,
		log:    log,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}

	p, err := a.openPersistence(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	store, err := credentials.Open(ctx, p)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	client := session.New(c.APIURL, store,
		session.WithTimeout(c.RequestTimeout),
		session.WithLogger(log.With("component", "session")),
		session.WithSessionEndHook(a.onSessionEnd),
	)

	a.authService = services.NewAuthService(client, store)
	a.adminService = services.NewAdminService(client)
	return a, nil
}

// openPersistence returns the backend selected by StoreKind, sealed when a
// passphrase is configured.
func (a *App) openPersistence(ctx context.Context) (credentials.Persistence, error) {
	var p credentials.Persistence

	switch a.config.StoreKind {
	case config.StoreMemory:
		p = credentials.NewMemoryPersistence()

	case config.StoreSQLite:
		path, err := filex.EnsureParentDir(a.config.StorePath)
		if err != nil {
			return nil, err
		}
		db, err := credentials.OpenSQLite(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		p = credentials.NewSQLitePersistence(db)

	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: a.config.RedisAddr})
		a.closers = append(a.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis store %s: %w", a.config.RedisAddr, err)
		}
		p = credentials.NewRedisPersistence(rdb, a.config.RedisKey)

	default:
		return nil, fmt.Errorf("unknown store kind %q", a.config.StoreKind)
	}

	if a.config.StorePassphrase == "" {
		return p, nil
	}
	return credentials.NewSealedPersistence(ctx, p, []byte(a.config.StorePassphrase))
}

func (a *App) onSessionEnd(ctx context.Context, cause error) {
	a.sessionEnded.Store(true)
	a.log.Warn(ctx, "session ended", "cause", cause)
}

// takeSessionEnded reports whether a session ended since the last call.
func (a *App) takeSessionEnded() bool {
	return a.sessionEnded.Swap(false)
}

func (a *App) landing() services.Area {
	return a.authService.Landing()
}

// Close releases the store connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) Run(ctx context.Context) {
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.StartTokenWatcher(ctx, a.config.RefreshCheckInterval)
	a.Root(ctx)
}

// StartTokenWatcher refreshes the access token on every tick where it is
// about to expire. It returns when ctx is done.
func (a *App) StartTokenWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tctx, cancel := context.WithTimeout(ctx, a.requestTimeout())
			ran, err := a.authService.RefreshIfExpiring(tctx, time.Now(), tokens.DefaultRefreshWindow)
			cancel()

			switch {
			case err != nil:
				a.log.Warn(ctx, "proactive refresh failed", "error", err)
			case ran:
				a.log.Debug(ctx, "access token refreshed ahead of expiry")
			}

		case <-ctx.Done():
			return
		}
	}
}

func (a *App) requestTimeout() time.Duration {
	if a.config != nil && a.config.RequestTimeout > 0 {
		return a.config.RequestTimeout
	}
	return session.DefaultTimeout
}
