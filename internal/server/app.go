// Package server wires the reconciliation engine together: configuration,
// logging, database plus migrations, and the services built on top. The
// engine has no network listener of its own; the binary applies migrations
// and exposes the engine to whatever embeds it.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/wevote/reconcile/internal/dbx"
	"github.com/wevote/reconcile/internal/logging"
	"github.com/wevote/reconcile/internal/server/avatars"
	"github.com/wevote/reconcile/internal/server/cachingrepair"
	"github.com/wevote/reconcile/internal/server/config"
	"github.com/wevote/reconcile/internal/server/identity"
	"github.com/wevote/reconcile/internal/server/merge"
	"github.com/wevote/reconcile/internal/server/reconcile"
	"github.com/wevote/reconcile/internal/server/repositories/repomanager"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	manager repomanager.RepositoryManager
	engine  *reconcile.Engine
	avatars *avatars.Service
}

func NewApp(cfg *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	manager := repomanager.NewPostgresRepositoryManager()

	workflow := merge.NewWorkflow(merge.Repos{
		Voters:        manager.Voters(db),
		IdentityLinks: manager.IdentityLinks(db),
		Organizations: manager.Organizations(db),
		Positions:     manager.Positions(db),
		Follows:       manager.Follows(db),
		Friends:       manager.Friends(db),
		Emails:        manager.Emails(db),
		Donations:     manager.Donations(db),
		VoterGuides:   manager.VoterGuides(db),
		Analytics:     manager.Analytics(db),
		Bookmarks:     manager.Bookmarks(db),
	}, logger)

	// newDeps binds the engine's collaborators to a handle, so the same
	// wiring serves both the pooled connection and a transaction.
	newDeps := func(h dbx.DBTX) reconcile.Deps {
		voterRepo := manager.Voters(h)
		orgRepo := manager.Organizations(h)
		linkRepo := manager.IdentityLinks(h)
		return reconcile.Deps{
			Identity:      identity.NewService(linkRepo, manager.AuthSessions(h), voterRepo),
			Merge:         workflow,
			Repair:        cachingrepair.NewService(linkRepo, voterRepo, orgRepo, logger),
			Voters:        voterRepo,
			Organizations: orgRepo,
			Devices:       manager.DeviceLinks(h),
			Emails:        manager.Emails(h),
		}
	}

	deps := newDeps(db)
	deps.InTx = func(ctx context.Context, fn func(ctx context.Context, deps reconcile.Deps) error) error {
		return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			return fn(ctx, newDeps(tx))
		})
	}

	engine, err := reconcile.NewEngine(deps, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("engine init error: %w", err)
	}

	avatarSvc := avatars.NewService(cfg, manager.Voters(db))

	return &App{
		config:  cfg,
		logger:  logger,
		db:      db,
		manager: manager,
		engine:  engine,
		avatars: avatarSvc,
	}, nil
}

// Engine exposes the reconciliation engine to the embedding view layer.
func (app *App) Engine() *reconcile.Engine {
	return app.engine
}

// Avatars exposes the hosted profile-image service.
func (app *App) Avatars() *avatars.Service {
	return app.avatars
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

func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.manager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	app.logger.Info(ctx, "migrations applied")

	<-ctx.Done()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "error closing database", "error", err.Error())
	}
	app.logger.Info(ctx, "app stopped")
	return nil
}
