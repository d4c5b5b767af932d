// Command credctl manages stored credentials from the terminal. It works on
// the same database and environment as the credpanel server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	oauthadapter "github.com/ericfisherdev/credpanel/internal/adapter/driven/oauth"
	sqliteadapter "github.com/ericfisherdev/credpanel/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/credpanel/internal/application"
	"github.com/ericfisherdev/credpanel/internal/config"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := newRootCmd(openFromEnv).Execute(); err != nil {
		os.Exit(1)
	}
}

// session is an opened credential service plus the display settings the
// commands need.
type session struct {
	svc *application.CredentialService
	loc *time.Location
}

// opener opens a session. The returned func releases its resources.
type opener func(ctx context.Context) (*session, func(), error)

// openFromEnv wires the service exactly like the server does, from
// CREDPANEL_* environment variables.
func openFromEnv(ctx context.Context) (*session, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	svc := application.NewCredentialService(
		sqliteadapter.NewCredentialRepo(db, cfg.SecretKey),
		oauthadapter.NewRefresher(cfg.OAuthTokenURL, cfg.OAuthClientID),
		application.NewBusyTracker(),
		cfg.OpTimeout,
		slog.Default(),
	)

	closeFn := func() {
		svc.Wait()
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "error closing database: %v\n", err)
		}
	}
	return &session{svc: svc, loc: cfg.Location}, closeFn, nil
}
