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

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	oauthadapter "github.com/ericfisherdev/credpanel/internal/adapter/driven/oauth"
	sqliteadapter "github.com/ericfisherdev/credpanel/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/credpanel/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/credpanel/internal/adapter/driving/web"
	"github.com/ericfisherdev/credpanel/internal/application"
	"github.com/ericfisherdev/credpanel/internal/config"
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
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"timezone", cfg.Location.String(),
		"op_timeout", cfg.OpTimeout,
		"refresh_interval", cfg.RefreshInterval,
	)
	if !cfg.HasSecretKey() {
		slog.Warn("CREDPANEL_SECRET_KEY not set, credentials can be listed but not created, refreshed or acquired")
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
	credentialStore := sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)
	refresher := oauthadapter.NewRefresher(cfg.OAuthTokenURL, cfg.OAuthClientID)

	// 6. Create the credential service shared by the API and the GUI.
	credentialSvc := application.NewCredentialService(
		credentialStore,
		refresher,
		application.NewBusyTracker(),
		cfg.OpTimeout,
		slog.Default(),
	)

	// 6b. Start the token keeper unless automatic refresh is disabled.
	keeperDone := make(chan struct{})
	if cfg.RefreshInterval > 0 {
		keeper := application.NewTokenKeeper(credentialSvc, cfg.RefreshInterval, slog.Default())
		go func() {
			defer close(keeperDone)
			keeper.Start(ctx)
		}()
	} else {
		close(keeperDone)
		slog.Info("automatic token refresh disabled")
	}

	// 7. Create HTTP handler and register API routes.
	apiHandler := httphandler.NewHandler(credentialSvc, slog.Default())
	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, apiHandler)

	// 7b. Create web handler and register GUI routes.
	webHandler := webhandler.NewHandler(credentialSvc, cfg.Location, slog.Default())
	webhandler.RegisterRoutes(mux, webHandler)

	// Apply middleware.
	handler := httphandler.ApplyMiddleware(mux, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
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

	// 8. Log startup complete.
	slog.Info("credpanel started", "listen_addr", cfg.ListenAddr)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 10. Graceful shutdown with 10s timeout for HTTP server drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	// 11. Let the token keeper and in-flight health checks and token refreshes
	// finish before the database closes. They are bounded by the operation
	// timeout.
	<-keeperDone
	credentialSvc.Wait()

	slog.Info("shutdown complete")
	return nil
}
