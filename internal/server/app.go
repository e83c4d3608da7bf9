// Package server wires the account service together: storage, migrations,
// token issuer, the gRPC endpoint and the expired-token sweeper.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/mailer"
	"github.com/dmitrijs2005/gophauth/internal/server/ratelimit"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/services"

	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	redis    *redis.Client
	accounts *services.AuthService

	globalLimiter ratelimit.Limiter
	authLimiter   ratelimit.Limiter
}

// openStorage opens the configured database and returns the matching
// repository manager.
func openStorage(ctx context.Context, c *config.Config) (*sql.DB, repomanager.RepositoryManager, error) {
	switch c.DatabaseDriver {
	case config.DriverSQLite:
		db, err := dbx.OpenSQLite(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		return db, repomanager.NewSQLiteRepositoryManager(), nil
	case config.DriverPostgres:
		db, err := dbx.OpenPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		return db, repomanager.NewPostgresRepositoryManager(), nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", c.DatabaseDriver)
	}
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.Env, os.Stdout)

	db, rm, err := openStorage(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}

	if c.RefreshTokenStore == config.RefreshStoreRedis {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			app.close()
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		rm = repomanager.WithRedisRefreshTokens(rm, app.redis)
	}

	hasher, err := auth.NewBcryptHasher(c.HashWorkFactor)
	if err != nil {
		app.close()
		return nil, err
	}

	issuer, err := auth.NewIssuer(auth.IssuerConfig{
		AccessSecret:  c.AccessTokenSecret,
		AccessTTL:     c.AccessTokenTTL,
		RefreshSecret: c.RefreshTokenSecret,
		RefreshTTL:    c.RefreshTokenTTL,
	})
	if err != nil {
		app.close()
		return nil, err
	}

	app.globalLimiter, app.authLimiter = newLimiters(c, app.redis)

	app.accounts = services.NewAuthService(db, rm, hasher, issuer, c,
		services.WithLogger(logger),
		services.WithMailer(mailer.NewLogSender(logger, c.Env)),
	)

	return app, nil
}

// newLimiters keeps throttling counters next to the refresh tokens: in Redis
// when it is configured, in process otherwise.
func newLimiters(c *config.Config, rdb *redis.Client) (global, auth ratelimit.Limiter) {
	globalRule := ratelimit.Rule{Limit: c.RateLimitRequests, Window: c.RateLimitWindow}
	authRule := ratelimit.Rule{Limit: c.AuthRateLimitRequests, Window: c.AuthRateLimitWindow}

	if rdb != nil {
		return ratelimit.NewRedisLimiter(rdb, "ratelimit:global", globalRule),
			ratelimit.NewRedisLimiter(rdb, "ratelimit:auth", authRule)
	}
	return ratelimit.NewMemoryLimiter(globalRule, nil), ratelimit.NewMemoryLimiter(authRule, nil)
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.accounts,
		gs.WithRateLimits(app.globalLimiter, app.authLimiter),
	)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// runSweeper removes expired refresh tokens every CleanupInterval. A
// non-positive interval disables it.
func (app *App) runSweeper(ctx context.Context) {
	if app.config.CleanupInterval <= 0 {
		return
	}

	ticker := time.NewTicker(app.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := app.accounts.CleanupExpiredTokens(ctx); err != nil {
				app.logger.Warn(ctx, "token sweep failed", "error", err)
			}
		}
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// releases storage.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.runSweeper(ctx)
	}()

	wg.Wait()

	app.close()
	app.logger.Info(context.Background(), "App stopped")
}

func (app *App) close() {
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
}
