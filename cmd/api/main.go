package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"timetrack/internal/config"
	"timetrack/internal/httpapi"
	"timetrack/internal/kvstore"
	"timetrack/internal/queue"
	"timetrack/internal/timetrack"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	kv, cleanup, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	var q queue.Queue
	if cfg.QueueBackend == "redis" {
		q = queue.NewRedisQueue(kvstore.NewRedis(cfg.RedisAddr).Client(), "timetrack:events")
	} else {
		q = queue.NewInMemory(64)
	}

	store := timetrack.NewStore(kv)
	handler := httpapi.New(cfg, store, kv, q)
	r := httpapi.NewRouter(handler)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s (store=%s)", cfg.HTTPPort, cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// openStore selects the key-value backend from config.
func openStore(cfg config.App) (kvstore.Store, func(), error) {
	switch cfg.StoreBackend {
	case "postgres":
		pg, err := kvstore.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return pg, func() { _ = pg.Close() }, nil
	case "redis":
		return kvstore.NewRedis(cfg.RedisAddr), func() {}, nil
	default:
		return kvstore.NewMemory(), func() {}, nil
	}
}
