package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"relay-chat/backend/internal/audit"
	auditrepo "relay-chat/backend/internal/audit/repository"
	"relay-chat/backend/internal/auth/handler"
	"relay-chat/backend/internal/auth/service"
	authstore "relay-chat/backend/internal/auth/store"
	"relay-chat/backend/internal/config"
	"relay-chat/backend/internal/db"
	epochrepo "relay-chat/backend/internal/epoch/repository"
	"relay-chat/backend/internal/logging"
	"relay-chat/backend/internal/ratelimit"
	"relay-chat/backend/internal/security"
	"relay-chat/backend/internal/server"
	"relay-chat/backend/internal/telemetry"
	"relay-chat/backend/internal/telemetry/otel"
	userrepo "relay-chat/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbConn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer dbConn.Close()

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("JWT_PRIVATE_KEY: %v", err)
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("JWT_PUBLIC_KEY: %v", err)
	}
	tokens := security.NewTokenProvider(privateKey, publicKey, cfg.JWTIssuer, cfg.JWTAudience)

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "relay-auth", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn(shutdownCtx, "otel shutdown failed", "err", err)
		}
	}()
	metrics, err := telemetry.NewMetrics(providers.MeterProvider.Meter("relay-chat/backend"))
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	// A shared Redis counter keeps limits global across replicas; without it
	// each process enforces its own window.
	var counter ratelimit.Counter
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		counter = ratelimit.NewRedisCounter(client)
	} else {
		logger.Warn(ctx, "REDIS_ADDR not set, using in-process rate counter")
		counter = ratelimit.NewMemoryCounter()
	}
	limiter := ratelimit.New(counter)

	store := authstore.NewPostgres(dbConn)
	epochs := epochrepo.NewPostgresRepository(dbConn)
	users := userrepo.NewPostgresDirectory(dbConn)
	recorder := audit.NewLogger(auditrepo.NewPostgresRepository(dbConn), logger)
	hasher := security.NewHasher(cfg.BcryptCost)

	issuer := service.NewIssuer(store, epochs, tokens, cfg.AccessTTL(), cfg.RefreshTTL())
	verifier := service.NewVerifier(store, epochs, tokens, logger)
	revoker := service.NewRevoker(store, epochs, tokens)
	auth := service.NewAuthService(users, store, issuer, verifier, revoker, hasher, recorder)

	policies := server.Policies{
		Login:   ratelimit.Policy{Name: "login", Limit: cfg.RateLoginLimit, Window: cfg.LoginWindow()},
		API:     ratelimit.Policy{Name: "api", Limit: cfg.RateAPILimit, Window: cfg.APIWindow()},
		Message: ratelimit.Policy{Name: "message", Limit: cfg.RateMessageLimit, Window: cfg.MessageWindow()},
	}
	router := server.NewRouter(handler.New(auth, metrics), verifier, tokens, limiter, policies, metrics)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info(ctx, "HTTP server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "shutting down HTTP server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "shutdown failed", "err", err)
	}
	logger.Info(ctx, "HTTP server stopped")
}
