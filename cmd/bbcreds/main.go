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

	sqliteadapter "github.com/ericfisherdev/bbcreds/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/bbcreds/internal/adapter/driving/http"
	"github.com/ericfisherdev/bbcreds/internal/application"
	"github.com/ericfisherdev/bbcreds/internal/config"
	"github.com/ericfisherdev/bbcreds/internal/domain/model"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"system_principal", cfg.SystemPrincipal,
		"secret_key", cfg.HasSecretKey(),
	)
	if !cfg.HasSecretKey() {
		slog.Warn("BBCREDS_SECRET_KEY not set, credential storage disabled")
	}

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters.
	credentialStore, err := sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)
	if err != nil {
		return err
	}
	domainStore := sqliteadapter.NewDomainRepo(db)
	endpointRegistry := sqliteadapter.NewEndpointRepo(db)
	itemStore := sqliteadapter.NewItemRepo(db)

	// 6. Create application services.
	credentialSvc := application.NewCredentialService(
		credentialStore,
		itemStore,
		model.SystemPrincipal(cfg.SystemPrincipal),
		slog.Default(),
	)
	resolver := application.NewMatcherResolver(endpointRegistry, nil, slog.Default())
	types := application.DefaultCredentialTypeRegistry()

	// 7. Create HTTP handler and register API routes.
	apiHandler := httphandler.NewHandler(
		credentialSvc,
		resolver,
		types,
		credentialStore,
		domainStore,
		endpointRegistry,
		itemStore,
		slog.Default(),
	)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(apiHandler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	// 8. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 9. Graceful shutdown with 10s timeout to drain in-flight lookups.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
