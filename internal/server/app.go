// Package server is the composition root of the ledger server. It builds the
// store, notification sink and services from configuration, runs the gRPC
// and HTTP transports and shuts everything down in order on exit.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/pocketledger/internal/common"
	"github.com/dmitrijs2005/pocketledger/internal/cryptox"
	"github.com/dmitrijs2005/pocketledger/internal/logging"
	"github.com/dmitrijs2005/pocketledger/internal/server/auth"
	"github.com/dmitrijs2005/pocketledger/internal/server/config"
	"github.com/dmitrijs2005/pocketledger/internal/server/httpapi"
	"github.com/dmitrijs2005/pocketledger/internal/server/notify"
	"github.com/dmitrijs2005/pocketledger/internal/server/passwordpolicy"
	"github.com/dmitrijs2005/pocketledger/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pocketledger/internal/server/services"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/pocketledger/internal/server/grpc"
)

// drainTimeout bounds the wait for queued notifications on shutdown.
const drainTimeout = 10 * time.Second

type App struct {
	config     *config.Config
	logger     logging.Logger
	store      repomanager.RepositoryManager
	dispatcher *notify.Dispatcher
	// closeNotifier releases the notification sink's connection, if any.
	closeNotifier func() error

	authService    *services.AuthService
	ledgerService  *services.LedgerService
	accountService *services.AccountService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(logging.Options{
		Backend:     c.LogBackend,
		Format:      c.LogFormat,
		Environment: c.Environment,
		Level:       logging.ParseLevel(c.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}
	return newApp(ctx, c, logger)
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	store, err := openStore(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	sink, closeNotifier, err := newNotifier(c, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("notifier init error: %w", err)
	}
	dispatcher := notify.NewDispatcher(sink, logger, c.NotifyTimeout)

	codec := auth.NewCodec([]byte(c.SecretKey))
	hasher := cryptox.NewHasher(c.BcryptCost)

	as, err := services.NewAuthService(store, codec, hasher, c.SessionTTL, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	acc := services.NewAccountService(store, passwordpolicy.NewScorePolicy(c.MinPasswordScore), hasher, codec,
		dispatcher, logger, services.AccountOptions{
			EmailTokenTTL: c.EmailTokenTTL,
			PublicBaseURL: c.PublicBaseURL,
		})

	app := &App{
		config:         c,
		logger:         logger,
		store:          store,
		dispatcher:     dispatcher,
		closeNotifier:  closeNotifier,
		authService:    as,
		ledgerService:  services.NewLedgerService(store, logger),
		accountService: acc,
	}

	if err := app.grantAdmins(ctx); err != nil {
		_ = app.shutdown()
		return nil, err
	}
	return app, nil
}

func openStore(ctx context.Context, c *config.Config, logger logging.Logger) (repomanager.RepositoryManager, error) {
	if c.StorageDriver == config.StorageDriverMemory {
		logger.Warn(ctx, "using in-memory storage, data is lost on exit")
		return repomanager.NewMemoryRepositoryManager(), nil
	}

	store, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if c.AutoMigrate {
		if err := store.RunMigrations(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		logger.Info(ctx, "migrations applied")
	}
	return store, nil
}

// newNotifier builds the configured sink and a func releasing its resources.
func newNotifier(c *config.Config, logger logging.Logger) (notify.Notifier, func() error, error) {
	switch c.Notifier {
	case config.NotifierRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		return notify.NewRedisStreamNotifier(client, c.RedisStream), client.Close, nil
	case config.NotifierKafka:
		n := notify.NewKafkaNotifier(notify.NewKafkaWriter(c.KafkaBrokers, c.KafkaTopic))
		return n, n.Close, nil
	case config.NotifierLog, "":
		return notify.NewLogNotifier(logger), func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown notifier %q", c.Notifier)
}

// grantAdmins applies the admin flag to the configured usernames. Names
// without an account yet are skipped with a warning.
func (app *App) grantAdmins(ctx context.Context) error {
	for _, name := range app.config.AdminUsers {
		err := app.accountService.GrantAdmin(ctx, name)
		switch {
		case err == nil:
			app.logger.Info(ctx, "admin granted", "username", name)
		case errors.Is(err, common.ErrorNotFound):
			app.logger.Warn(ctx, "admin user does not exist", "username", name)
		default:
			return fmt.Errorf("grant admin %q: %w", name, err)
		}
	}
	return nil
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

// Run serves both transports until ctx is cancelled, a signal arrives or a
// transport fails, then shuts down.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	g, gctx := errgroup.WithContext(ctx)

	if addr := app.config.EndpointAddrGRPC; addr != "" {
		s := gs.NewGRPCServer(addr, app.logger, app.authService, app.ledgerService, app.accountService)
		g.Go(func() error { return s.Run(gctx) })
	}

	if addr := app.config.EndpointAddrHTTP; addr != "" {
		h := httpapi.NewHandler(app.authService, app.ledgerService, app.accountService, app.logger, app.config.IsDevelopment())
		s := httpapi.NewHTTPServer(addr, httpapi.NewRouter(h, app.config.CORSAllowedOrigins), app.logger)
		g.Go(func() error { return s.Run(gctx) })
	}

	runErr := g.Wait()
	if runErr != nil {
		app.logger.Error(ctx, "server stopped with error", "error", runErr)
	}
	return errors.Join(runErr, app.shutdown())
}

// shutdown drains pending notifications, then releases the sink and the store.
func (app *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	var errs []error
	if err := app.dispatcher.Wait(ctx); err != nil {
		errs = append(errs, fmt.Errorf("notifications not drained: %w", err))
	}
	if err := app.closeNotifier(); err != nil {
		errs = append(errs, fmt.Errorf("notifier close: %w", err))
	}
	if err := app.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}

	app.logger.Info(ctx, "App stopped")
	return errors.Join(errs...)
}
