package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/mattn/go-sqlite3"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Otar989/bugman-bot/internal/config"
	"github.com/Otar989/bugman-bot/internal/game"
	"github.com/Otar989/bugman-bot/internal/initdata"
	"github.com/Otar989/bugman-bot/internal/ratelimit"
	"github.com/Otar989/bugman-bot/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if len(cfg.BotTokens) == 0 {
		log.Fatal("BOT_TOKEN is required")
	}
	verifier := initdata.NewVerifier(cfg.BotTokens)

	// ── Player store ─────────────────────────────────────────
	var players store.PlayerStore
	switch cfg.StoreBackend {
	case "sqlite":
		db, err := sql.Open("sqlite3", cfg.SqlitePath)
		if err != nil {
			log.Fatalf("sqlite open: %v", err)
		}
		defer db.Close()
		s := store.NewSqliteStore(db)
		if err := s.Migrate(ctx); err != nil {
			log.Fatalf("sqlite migrate: %v", err)
		}
		players = s
	case "postgres":
		pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("postgres connect: %v", err)
		}
		defer pgPool.Close()
		s := store.NewPostgresStore(pgPool)
		if err := s.Migrate(ctx); err != nil {
			log.Fatalf("postgres migrate: %v", err)
		}
		players = s
	case "mongo":
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatalf("mongo connect: %v", err)
		}
		defer mongoClient.Disconnect(ctx)
		players = store.NewMongoStore(mongoClient.Database(cfg.MongoDB))
	case "memory":
		players = store.NewMemoryStore()
	default:
		log.Fatalf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	// ── Rate limiter ─────────────────────────────────────────
	var limiter ratelimit.Limiter
	if cfg.RedisAddr != "" {
		rl, err := ratelimit.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.SubmitInterval)
		if err != nil {
			log.Fatalf("redis connect: %v", err)
		}
		defer rl.Close()
		limiter = rl
	} else {
		limiter = ratelimit.NewMemory(cfg.SubmitInterval)
	}

	// ── Service & router ─────────────────────────────────────
	svc := game.NewService(verifier, limiter, players, cfg.LeaderboardMaxLimit, logger)
	handler := game.NewHandler(svc, logger)
	router := game.NewRouter(handler, logger, cfg.AllowedOrigins, cfg.Debug)

	if cfg.Debug {
		logger.Warn("debug endpoints enabled, do not run this in production")
	}

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "port", cfg.Port, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)
}
