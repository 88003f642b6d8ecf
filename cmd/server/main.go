// Command server runs the books HTTP API.
//
// Startup order: .env, config, logging, tracing, store, HTTP server. The
// process drains in-flight requests on SIGINT/SIGTERM within
// SHUTDOWN_TIMEOUT.
//
// @title       Books API
// @version     1.0
// @description CRUD service for a book collection with a uniform, timestamped response envelope.
// @BasePath    /
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-books-backend/internal/config"
	"github.com/tbourn/go-books-backend/internal/domain"
	httpapi "github.com/tbourn/go-books-backend/internal/http"
	"github.com/tbourn/go-books-backend/internal/observability"
	"github.com/tbourn/go-books-backend/internal/repo"
	"github.com/tbourn/go-books-backend/internal/services"
	"github.com/tbourn/go-books-backend/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	envFile := sysutil.FirstNonEmpty(os.Getenv("ENV_FILE"), ".env")
	envErr := godotenv.Load(envFile)

	cfg := config.MustLoad()
	sysutil.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		log.Warn().Err(envErr).Str("file", envFile).Msg("env file not loaded")
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, observability.BuildInfo{
		Version:     version,
		Environment: cfg.AppEnv,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	svc, closeStore, err := newBookService(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("store setup failed")
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, svc, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("env", cfg.AppEnv).
			Str("store", cfg.StoreBackend).
			Str("version", version).
			Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := closeStore(); err != nil {
		log.Error().Err(err).Msg("store close")
	}
	if err := shutdownOTel(drainCtx); err != nil {
		log.Warn().Err(err).Msg("otel shutdown")
	}
}

// newBookService builds the configured store and the service on top of it.
// The returned close func releases the store.
func newBookService(ctx context.Context, cfg config.Config) (*services.BookService, func() error, error) {
	var svc *services.BookService
	closeFn := func() error { return nil }

	switch cfg.StoreBackend {
	case config.StoreSQLite:
		var opts []repo.Option
		if cfg.OTEL.Enabled {
			opts = append(opts, repo.WithTracing())
		}
		db, err := repo.OpenSQLite(cfg.DBPath, opts...)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		closeFn = sqlDB.Close
		if err := repo.AutoMigrate(db); err != nil {
			_ = closeFn()
			return nil, nil, err
		}
		store := repo.NewGormStore(db)
		if cfg.SeedBooks {
			seeded, err := store.SeedIfEmpty(ctx, repo.DefaultBooks())
			if err != nil {
				_ = closeFn()
				return nil, nil, err
			}
			log.Info().Bool("seeded", seeded).Str("path", cfg.DBPath).Msg("sqlite store ready")
		}
		svc = services.NewBookService(store, store)
	default:
		var seed []domain.Book
		if cfg.SeedBooks {
			seed = repo.DefaultBooks()
		}
		store := repo.NewMemoryStore(seed...)
		svc = services.NewBookService(store, store)
	}

	svc.IdemTTL = cfg.IdempotencyTTL
	svc.FoldCase = cfg.FoldCase
	return svc, closeFn, nil
}
