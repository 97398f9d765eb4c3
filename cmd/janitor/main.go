// janitor periodically deletes expired credential rows and spent blacklist
// entries. Set DATABASE_URL and optionally JANITOR_INTERVAL.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	blacklistrepo "relay-chat/backend/internal/blacklist/repository"
	"relay-chat/backend/internal/config"
	credentialrepo "relay-chat/backend/internal/credential/repository"
	"relay-chat/backend/internal/db"
	"relay-chat/backend/internal/janitor"
	"relay-chat/backend/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("janitor: DATABASE_URL is required")
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	dbConn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer dbConn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info(ctx, "janitor shutting down")
		cancel()
	}()

	j := janitor.New(
		credentialrepo.NewPostgresRepository(dbConn),
		blacklistrepo.NewPostgresRepository(dbConn),
		cfg.JanitorInterval(),
		logger,
	)
	logger.Info(ctx, "janitor started", "interval", cfg.JanitorInterval().String())
	j.Run(ctx)
	logger.Info(context.Background(), "janitor stopped")
}
