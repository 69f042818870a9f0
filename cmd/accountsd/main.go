package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"go.uber.org/zap"

	accounts "github.com/bravado-dev/go-accounts"
	"github.com/bravado-dev/go-accounts/storage"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		panic(err)
	}

	zlog, err := newZapLogger(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer zlog.Sync()

	logger := zapAdapter{log: zlog.Sugar()}

	if err := run(cfg, logger); err != nil {
		zlog.Fatal("accountsd exited", zap.Error(err))
	}
}

func run(cfg Config, logger accounts.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
	if err != nil {
		return err
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	if _, err := db.NewCreateTable().
		Model((*accounts.User)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return err
	}

	repo := accounts.NewRepositoryManager(db,
		accounts.WithUsersLogger(logger),
		accounts.WithUsersActivitySink(activityLogger(logger)),
		accounts.WithUsersStateMachineOptions(
			accounts.WithStateMachineLogger(logger),
			accounts.WithStateMachineActivitySink(activityLogger(logger)),
		),
	)
	if err := repo.Validate(); err != nil {
		return err
	}

	app := fiber.New(fiber.Config{
		AppName:               "accountsd",
		DisableStartupMessage: !cfg.Debug,
	})

	controller := accounts.NewUserController(repo, accounts.WithUserControllerLogger(logger))
	accounts.RegisterUserRoutes(app, controller)

	if cfg.StorageEnabled {
		store, err := storage.New(ctx,
			cfg.StorageAccessKey,
			cfg.StorageSecretKey,
			cfg.StorageRegion,
			cfg.StorageBucket,
			storage.WithMaxObjectSize(cfg.StorageMaxSize),
			storage.WithActivitySink(activityLogger(logger)),
		)
		if err != nil {
			return err
		}
		storage.RegisterFileRoutes(app, storage.NewController(store))
		logger.Info("storage routes enabled bucket=%s", cfg.StorageBucket)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.Addr)
	}()

	logger.Info("accountsd listening on %s", cfg.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		return app.Shutdown()
	}
}

func activityLogger(logger accounts.Logger) accounts.ActivitySinkFunc {
	return func(_ context.Context, event accounts.ActivityEvent) error {
		logger.Info("activity %s user=%s from=%s to=%s actor=%s",
			event.EventType, event.UserID, event.FromStatus, event.ToStatus, event.Actor.ID)
		return nil
	}
}

func newZapLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// zapAdapter exposes a zap sugared logger through the accounts.Logger interface.
type zapAdapter struct {
	log *zap.SugaredLogger
}

func (a zapAdapter) Debug(format string, args ...any) { a.log.Debugf(format, args...) }
func (a zapAdapter) Info(format string, args ...any)  { a.log.Infof(format, args...) }
func (a zapAdapter) Error(format string, args ...any) { a.log.Errorf(format, args...) }
