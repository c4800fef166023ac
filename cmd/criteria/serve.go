package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goliatone/go-criteria-cache/internal/cli"
	"github.com/goliatone/go-criteria-cache/internal/menus"
	"github.com/goliatone/go-criteria-cache/pkg/di"
	"github.com/goliatone/go-criteria-cache/search"
	"github.com/goliatone/go-criteria-cache/store"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
)

const shutdownTimeout = 10 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the se_menus demo entity over HTTP",
	Long: `Serve search, create, update and delete for the se_menus demo entity.
Searches go through the query cache; every write invalidates the menus
namespace after it commits.`,
	Example: `  # In memory sqlite with the default cache
  criteria serve --addr :8080

  # Postgres and a shared redis cache
  CRITERIA_STORE_DRIVER=pgx CRITERIA_STORE_DSN=postgres://localhost/menus \
  CRITERIA_CACHE_BACKEND=redis criteria serve`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg, logger)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

// app is the wired demo application.
type app struct {
	db      *bun.DB
	handler http.Handler
}

func (a *app) Close() error {
	return a.db.Close()
}

func newApp(ctx context.Context, cfg *cli.Config, logger *slog.Logger) (*app, error) {
	db, err := store.Open(cfg.Store)
	if err != nil {
		return nil, cli.DBConnectError("opening database", err)
	}
	db.AddQueryHook(store.NewLogHook(logger))

	if err := menus.CreateSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, cli.DBConnectError("creating schema", err)
	}

	container, err := di.NewContainer(cfg.Cache, di.WithDB(db), di.WithLogger(logger))
	if err != nil {
		_ = db.Close()
		return nil, cli.ConfigError("building cache", err)
	}

	searcher, err := di.NewSearchService[menus.Menu](container, search.WithCaseFold(cfg.Server.CaseFold))
	if err != nil {
		_ = db.Close()
		return nil, cli.GeneralError("binding menus", err)
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := menus.NewRouter(menus.NewService(db, searcher, logger))

	logger.Info("menus search ready",
		"driver", cfg.Store.Driver,
		"cache_backend", cfg.Cache.Backend,
		"namespace", searcher.Namespace(),
	)
	return &app{db: db, handler: router}, nil
}

func runServe(ctx context.Context, cfg *cli.Config, logger *slog.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return cli.GeneralError("serving", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return cli.GeneralError("shutting down", err)
	}
	return nil
}
