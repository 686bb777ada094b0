package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nekogravitycat/zone-booking-backend/internal/app"
	"github.com/nekogravitycat/zone-booking-backend/internal/booking"
	"github.com/nekogravitycat/zone-booking-backend/internal/config"
	"github.com/nekogravitycat/zone-booking-backend/internal/db"
	"github.com/nekogravitycat/zone-booking-backend/internal/queue"
	"github.com/nekogravitycat/zone-booking-backend/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.QueueDriver == queue.DriverMemory {
		log.Fatalf("QUEUE_DRIVER=memory runs inside the server; start cmd/server instead")
	}

	shutdownTracing := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: "zone-booking-worker",
		Environment: cfg.AppEnv,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
	})

	pool, err := db.NewPool(ctx, cfg.DBDSN, db.PoolOptions{MaxConns: cfg.DBMaxConns})
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer pool.Close()

	tasks, err := queue.Open(ctx, app.QueueConfig(cfg))
	if err != nil {
		log.Fatalf("failed to open %s queue: %v", cfg.QueueDriver, err)
	}

	worker, err := app.NewWorker(ctx, cfg, booking.NewPgxRepository(pool), tasks)
	if err != nil {
		log.Fatalf("failed to build worker: %v", err)
	}

	log.Printf("worker running: driver=%s queue=%s concurrency=%d", cfg.QueueDriver, cfg.QueueName, cfg.WorkerConcurrency)

	// Consume returns once ctx is cancelled and in-flight tasks are done.
	if err := worker.Run(ctx, tasks); err != nil {
		log.Printf("worker stopped: %v", err)
	}

	finalCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if r, ok := tasks.(*queue.Redis); ok {
		if n, err := r.DeadLength(finalCtx); err == nil && n > 0 {
			log.Printf("dead-letter tasks waiting: queue=%s count=%d", cfg.QueueName, n)
		}
	}
	if err := tasks.Close(); err != nil {
		log.Printf("failed to close queue: %v", err)
	}
	if err := shutdownTracing(finalCtx); err != nil {
		log.Printf("failed to flush traces: %v", err)
	}

	log.Println("worker exited gracefully")
}
