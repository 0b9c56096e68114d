package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwalitptl/telehealth-api/internal/config"
	"github.com/jwalitptl/telehealth-api/internal/email"
	"github.com/jwalitptl/telehealth-api/internal/service/event"
	"github.com/jwalitptl/telehealth-api/internal/service/queue"
	"github.com/jwalitptl/telehealth-api/internal/storage"
	internalworker "github.com/jwalitptl/telehealth-api/internal/worker"
	"github.com/jwalitptl/telehealth-api/pkg/logger"
	"github.com/jwalitptl/telehealth-api/pkg/messaging"
	"github.com/jwalitptl/telehealth-api/pkg/messaging/redis"
	"github.com/jwalitptl/telehealth-api/pkg/metrics"
	"github.com/jwalitptl/telehealth-api/pkg/worker"
)

const healthAddr = ":8081"

func setupHealthCheck(log *logger.Logger, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: healthAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "Health check server failed")
			os.Exit(1)
		}
	}()
	return srv
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format).WithFields(map[string]interface{}{"component": "worker"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repos, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal(err, "Failed to open storage")
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics("telehealth_worker", reg)

	broker, err := redis.NewRedisBroker(ctx, redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, log, m)
	if err != nil {
		log.Fatal(err, "Failed to create Redis broker")
	}
	defer broker.Close()

	processor := worker.NewOutboxProcessor(
		repos.Outbox,
		broker,
		worker.OutboxProcessorConfig{
			BatchSize:     cfg.Outbox.BatchSize,
			PollInterval:  cfg.Outbox.PollInterval,
			RetryAttempts: cfg.Outbox.RetryAttempts,
			RetryDelay:    cfg.Outbox.RetryDelay,
			Retention:     cfg.Outbox.Retention,
		},
		log,
		m,
	)

	mailer := internalworker.NewStatusMailer(
		messaging.NewBrokerAdapter(broker, log),
		email.NewService(cfg.Email, log, m),
		log,
	)
	if err := mailer.Start(ctx); err != nil {
		log.Fatal(err, "Failed to start status mailer")
	}

	health := setupHealthCheck(log, reg)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Shutting down...")
		cancel()
	}()

	var wg sync.WaitGroup
	if cfg.Queue.AutoAdvance {
		queueSvc := queue.NewService(repos.Bookings, queue.Options{
			Events:  event.NewService(repos.Outbox, log),
			Logger:  log,
			Metrics: m,
		})
		advancer := internalworker.NewAutoAdvanceWorker(queueSvc, cfg.Queue.AutoAdvanceInterval, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			advancer.Start(ctx)
		}()
	}

	processor.Start(ctx)
	wg.Wait()

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := health.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "Failed to stop health check server")
	}
}
