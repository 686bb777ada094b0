package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/nekogravitycat/zone-booking-backend/internal/app"
	"github.com/nekogravitycat/zone-booking-backend/internal/config"
	"github.com/nekogravitycat/zone-booking-backend/internal/db"
	"github.com/nekogravitycat/zone-booking-backend/internal/queue"
	"github.com/nekogravitycat/zone-booking-backend/internal/telemetry"
)

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	shutdownTracing := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: "zone-booking-api",
		Environment: cfg.AppEnv,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
	})

	// Connect DB
	pool, err := db.NewPool(ctx, cfg.DBDSN, db.PoolOptions{MaxConns: cfg.DBMaxConns})
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer pool.Close()

	// Connect task queue
	tasks, err := queue.Open(ctx, app.QueueConfig(cfg))
	if err != nil {
		log.Fatalf("failed to open %s queue: %v", cfg.QueueDriver, err)
	}

	container := app.NewContainer(cfg, pool, tasks)

	// Without an external broker nothing else would drain the queue.
	var background sync.WaitGroup
	workerCtx, stopWorker := context.WithCancel(context.Background())
	if cfg.QueueDriver == queue.DriverMemory {
		worker, err := app.NewWorker(ctx, cfg, container.BookingRepo, tasks)
		if err != nil {
			log.Fatalf("failed to build worker: %v", err)
		}
		background.Add(1)
		go func() {
			defer background.Done()
			if err := worker.Run(workerCtx, tasks); err != nil {
				log.Printf("in-process worker stopped: %v", err)
			}
		}()
		log.Printf("in-process worker running: concurrency=%d", cfg.WorkerConcurrency)
	}

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(container.Router, "zone-booking-api"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server in separate goroutine
	go func() {
		log.Printf("server running on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Wait for Ctrl+C
	<-ctx.Done()
	log.Println("shutdown signal received")

	// Create a shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server first so no new bookings are queued
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}

	stopWorker()
	background.Wait()

	if err := tasks.Close(); err != nil {
		log.Printf("failed to close queue: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("failed to flush traces: %v", err)
	}

	log.Println("server exited gracefully")
}
