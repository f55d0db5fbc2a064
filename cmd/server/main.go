package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nekogravitycat/machine-booking-backend/internal/app"
	"github.com/nekogravitycat/machine-booking-backend/internal/config"
	"github.com/nekogravitycat/machine-booking-backend/internal/db"
)

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.IsProduction)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
	logger.Info("server exited gracefully")
}

func newLogger(isProduction bool) (*zap.Logger, error) {
	if isProduction {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	var pool *pgxpool.Pool
	if cfg.StoreDriver == config.StoreDriverPostgres {
		// Connect DB
		p, err := db.NewPool(ctx, cfg.DBDSN)
		if err != nil {
			return err
		}
		defer p.Close()

		if err := db.Migrate(ctx, p); err != nil {
			return err
		}
		pool = p
	}

	container, err := app.NewContainer(app.Config{
		IsProduction: cfg.IsProduction,
		ProdOrigins:  cfg.ProdOrigins,
		StoreDriver:  cfg.StoreDriver,
		DBPool:       pool,
		JWTSecret:    cfg.JWTSecret,
		JWTTTL:       cfg.JWTAccessTokenTTL,
		BcryptCost:   cfg.BcryptCost,
		Schedule:     cfg.Schedule,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	if container.Resources != nil {
		for _, r := range app.DemoResources() {
			container.Resources.Put(r)
		}
		logger.Warn("using in-memory store; data is lost on exit")
	}

	if cfg.OperatorEmail != "" {
		op, err := container.UserService.EnsureOperator(ctx, cfg.OperatorEmail, cfg.OperatorPassword)
		if err != nil {
			return err
		}
		logger.Info("operator account ready", zap.String("user_id", op.ID))
	}

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           container.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server running",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("store", cfg.StoreDriver),
			zap.String("cancel_mode", cfg.Schedule.CancelMode),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for Ctrl+C or a listener failure
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	// Create a shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
