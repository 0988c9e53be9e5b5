package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"fsanano/credit-tracker/internal/auth"
	"fsanano/credit-tracker/internal/config"
	"fsanano/credit-tracker/internal/handler"
	"fsanano/credit-tracker/internal/logger"
	"fsanano/credit-tracker/internal/repository"
	"fsanano/credit-tracker/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// store is the persistence surface both backends provide.
type store interface {
	service.UserRepository
	service.LedgerRepository
	Migrate(ctx context.Context) error
}

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Setup Database
	db, closeDB, err := openStore(ctx, cfg)
	if err != nil {
		lg.Fatal("Failed to open database", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	defer closeDB()

	if err := db.Migrate(ctx); err != nil {
		lg.Fatal("Failed to migrate database", zap.Error(err))
	}
	lg.Info("Connected to database", zap.String("driver", cfg.DBDriver))

	// 3. Setup Logic
	sessions := auth.NewSessions(auth.SessionConfig{
		Secret: cfg.Session.Secret,
		MaxAge: cfg.Session.MaxAge,
		Secure: cfg.Session.Secure,
	}, lg)

	authHandler := handler.NewAuthHandler(service.NewAuthService(db), sessions, lg)
	ledgerHandler := handler.NewLedgerHandler(service.NewLedgerService(db), sessions, lg)

	h := handler.NewHandler(sessions, authHandler, ledgerHandler, lg)

	// 4. Setup Server
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 5. Run Server with Graceful Shutdown
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Starting server", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		lg.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		lg.Fatal("Server stopped with error", zap.Error(err))
	}
	lg.Info("Server exiting")
}

func openStore(ctx context.Context, cfg *config.Config) (store, func(), error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		s, err := repository.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repository.NewPostgresStore(pool), pool.Close, nil
	}
}
