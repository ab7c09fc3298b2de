package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"timetrack/internal/audit"
	"timetrack/internal/config"
	"timetrack/internal/kvstore"
	"timetrack/internal/queue"
)

// Worker consumes attendance events and maintains the audit trail.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	var kv kvstore.Store
	var q queue.Queue
	switch cfg.StoreBackend {
	case "postgres":
		pg, err := kvstore.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres connect failed: %v", err)
		}
		defer pg.Close()
		kv = pg
	case "redis":
		kv = kvstore.NewRedis(cfg.RedisAddr)
	default:
		kv = kvstore.NewMemory()
	}

	if cfg.QueueBackend == "redis" {
		q = queue.NewRedisQueue(kvstore.NewRedis(cfg.RedisAddr).Client(), "timetrack:events")
	} else {
		// An in-memory queue is process-local; the worker only sees
		// events with the redis backend.
		q = queue.NewInMemory(64)
	}

	trail := audit.NewTrail(kv, cfg.AuditLogLimit)

	events, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for events...")
	for evt := range events {
		if evt.Type != queue.TypeClockIn && evt.Type != queue.TypeClockOut {
			continue
		}
		log.Printf("auditing %s for record %s", evt.Type, evt.RecordID)
		if err := trail.Append(ctx, evt); err != nil {
			log.Printf("audit append failed for %s: %v", evt.RecordID, err)
		}
	}

	log.Println("worker stopped")
}
