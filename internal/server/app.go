// Package server wires the configured storage, credential primitives and
// services together and runs the HTTP API, the gRPC health endpoint and
// the daily token sweep.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/authservice/internal/logging"
	"github.com/dmitrijs2005/authservice/internal/server/auth"
	"github.com/dmitrijs2005/authservice/internal/server/config"
	"github.com/dmitrijs2005/authservice/internal/server/events"
	"github.com/dmitrijs2005/authservice/internal/server/httpapi"
	"github.com/dmitrijs2005/authservice/internal/server/lease"
	"github.com/dmitrijs2005/authservice/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authservice/internal/server/scheduler"
	"github.com/dmitrijs2005/authservice/internal/server/services"

	gs "github.com/dmitrijs2005/authservice/internal/server/grpc"
)

const leaseKeyPrefix = "authservice:lease:"

type App struct {
	config    *config.Config
	logger    logging.Logger
	store     repomanager.RepositoryManager
	publisher events.Publisher
	redis     *redis.Client

	Auth    *services.AuthService
	Admin   *services.UserAdminService
	Tokens  *services.RefreshTokenService
	Sweeper *services.Sweeper
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	store, err := repomanager.Open(c.StorageDriver, c.DatabaseDSN, c.MongoDatabase)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{config: c, logger: logger, store: store, publisher: events.Nop{}}

	if err := app.build(ctx); err != nil {
		_ = app.Close(ctx)
		return nil, err
	}
	return app, nil
}

func (app *App) build(ctx context.Context) error {
	c := app.config

	hasher, err := auth.NewHasher(c.PasswordHasher, c.BcryptCost)
	if err != nil {
		return err
	}

	signer, err := newSigner(c)
	if err != nil {
		return err
	}

	if c.AMQPURL != "" {
		pub, err := events.DialAMQP(c.AMQPURL, events.DefaultExchange)
		if err != nil {
			// Events are best effort; the service runs without them.
			app.logger.Warn(ctx, "auth events disabled", "error", err)
		} else {
			app.publisher = pub
		}
	}

	var locker lease.Locker = lease.Local{}
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		locker = lease.NewRedisLocker(app.redis, leaseKeyPrefix)
	}

	app.Tokens = services.NewRefreshTokenService(app.store.RefreshTokens(), c.RefreshTokenValidityDuration, app.logger)
	app.Auth, err = services.NewAuthService(app.store, hasher, signer, app.Tokens, app.publisher, c, app.logger)
	if err != nil {
		return err
	}
	app.Admin = services.NewUserAdminService(app.store, app.Tokens, app.publisher, app.logger)
	app.Sweeper = services.NewSweeper(app.Tokens, locker, app.publisher, app.logger)
	return nil
}

func newSigner(c *config.Config) (auth.Signer, error) {
	switch c.SigningMethod {
	case config.SigningRS256:
		key, err := auth.LoadRSAPrivateKey(c.RSAPrivateKeyPath)
		if err != nil {
			return nil, err
		}
		return auth.NewRS256Signer(key, c.Issuer)
	default:
		return auth.NewHS256Signer([]byte(c.SecretKey), c.Issuer)
	}
}

// Migrate brings the store schema up to date.
func (app *App) Migrate(ctx context.Context) error {
	if err := app.store.RunMigrations(ctx); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

func (app *App) Close(ctx context.Context) error {
	var errs []error
	if err := app.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if err := app.store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run migrates the store, then serves until a signal arrives or one of
// the servers fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	if err := app.Migrate(ctx); err != nil {
		return err
	}

	sweep, err := scheduler.NewDaily("refresh-token-sweep", app.config.CleanupHour, app.config.CleanupMinute, app.Sweeper.Run, app.logger)
	if err != nil {
		return err
	}
	health := gs.NewHealthServer(app.config.GRPCAddr, app.logger)
	api := httpapi.NewServer(app.Auth, app.Admin, app.store, app.logger)

	var (
		wg       sync.WaitGroup
		firstErr error
		once     sync.Once
	)
	serve := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				app.logger.Error(ctx, name+" server stopped", "error", err)
				once.Do(func() { firstErr = err })
				cancelFunc()
			}
		}()
	}

	serve("grpc", health.Run)
	serve("http", func(ctx context.Context) error { return api.Run(ctx, app.config.HTTPAddr) })

	wg.Add(1)
	go func() {
		defer wg.Done()
		sweep.Run(ctx)
	}()

	health.MarkServing()

	wg.Wait()
	app.logger.Info(context.WithoutCancel(ctx), "App stopped")
	return firstErr
}
