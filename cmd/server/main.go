package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/acadhub/leave-be/internal/config"
	"github.com/acadhub/leave-be/internal/logger"
	"github.com/acadhub/leave-be/internal/server"
	"github.com/acadhub/leave-be/internal/storage"
	"github.com/acadhub/leave-be/internal/storage/memory"
	"github.com/acadhub/leave-be/internal/storage/postgres"
)

func main() {
	loadLocalEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zl.Sync()

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("init store", zap.Error(err))
	}
	defer closeStore()

	srv := server.New(cfg, store, zl)

	go func() {
		zl.Info("leave backend listening", zap.String("addr", cfg.HTTPAddress()))
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			zl.Fatal("http server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		zl.Error("graceful shutdown error", zap.Error(err))
	}
}

// openStore prefers Postgres; with no DATABASE_URL it falls back to the
// in-memory store, which loses all state on restart.
func openStore(ctx context.Context, cfg config.Config, zl *zap.Logger) (storage.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		zl.Warn("DATABASE_URL not set; using in-memory store")
		return memory.NewStore(), func() {}, nil
	}
	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found; relying on existing environment")
	}
}
