package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/telehealth-api/internal/config"
	"github.com/jwalitptl/telehealth-api/internal/datastore"
	bookingHandler "github.com/jwalitptl/telehealth-api/internal/handler/booking"
	"github.com/jwalitptl/telehealth-api/internal/handler/health"
	patientHandler "github.com/jwalitptl/telehealth-api/internal/handler/patient"
	promHandler "github.com/jwalitptl/telehealth-api/internal/handler/prometheus"
	queueHandler "github.com/jwalitptl/telehealth-api/internal/handler/queue"
	"github.com/jwalitptl/telehealth-api/internal/middleware"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	"github.com/jwalitptl/telehealth-api/internal/router"
	bookingService "github.com/jwalitptl/telehealth-api/internal/service/booking"
	eventService "github.com/jwalitptl/telehealth-api/internal/service/event"
	"github.com/jwalitptl/telehealth-api/internal/service/notification"
	patientService "github.com/jwalitptl/telehealth-api/internal/service/patient"
	queueService "github.com/jwalitptl/telehealth-api/internal/service/queue"
	"github.com/jwalitptl/telehealth-api/internal/storage"
	"github.com/jwalitptl/telehealth-api/pkg/auth"
	"github.com/jwalitptl/telehealth-api/pkg/logger"
	"github.com/jwalitptl/telehealth-api/pkg/metrics"
	"github.com/jwalitptl/telehealth-api/pkg/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	appLog := logger.New(cfg.Log.Level, cfg.Log.Format).WithFields(map[string]interface{}{"component": "api"})
	log.Logger = *appLog.Zerolog()

	if cfg.JWT.Secret == "" {
		appLog.Fatal(errors.New("jwt.secret is empty"), "JWT secret is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repos, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		appLog.Fatal(err, "Failed to open storage", "driver", cfg.Storage.Driver)
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics("telehealth_api", reg)

	view := datastore.New(repos.Bookings, repos.Patients, datastore.Options{
		RefreshInterval: cfg.Queue.RefreshInterval,
		Logger:          appLog,
		Metrics:         m,
	})
	if err := view.Init(ctx, func(s datastore.Snapshot) {
		appLog.Debug("Dashboard view updated", "bookings", len(s.Bookings), "patients", len(s.Patients))
	}); err != nil {
		// The refresh loop keeps retrying.
		appLog.Error(err, "Initial dashboard load failed")
	}
	defer view.Teardown()

	v := validator.New()
	notifications := notification.NewService(cfg.Notifications.AutoHideAfter, cfg.Notifications.CleanupInterval)
	events := eventService.NewService(repos.Outbox, appLog)

	queueSvc := queueService.NewService(repos.Bookings, queueService.Options{
		View:     view,
		Events:   events,
		Notifier: notifications,
		Logger:   appLog,
		Metrics:  m,
	})
	bookingSvc := bookingService.NewService(repos.Bookings, repos.Patients, bookingService.Options{
		View:      view,
		Validator: v,
		Logger:    appLog,
	})
	patientSvc := patientService.NewService(repos.Patients, patientService.Options{
		View:      view,
		Validator: v,
		Logger:    appLog,
	})

	jwt := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, 0)

	cors := middleware.DefaultCORSConfig()
	if len(cfg.CORS.AllowedOrigins) > 0 {
		cors.AllowOrigins = cfg.CORS.AllowedOrigins
	}

	mode := gin.ReleaseMode
	if cfg.Server.Mode != "" {
		mode = cfg.Server.Mode
	}

	r := router.NewRouter(
		middleware.NewAuthMiddleware(jwt),
		bookingHandler.NewHandler(bookingSvc, queueSvc),
		patientHandler.NewHandler(patientSvc),
		queueHandler.NewHandler(queueSvc, view, notifications),
		health.NewHandler(map[string]health.Check{
			"storage":   storageCheck(repos),
			"datastore": datastoreCheck(view),
		}),
		promHandler.New(reg).Handler(),
		router.RouterConfig{
			Mode:             mode,
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			CORSConfig:       cors,
			RequestTimeout:   cfg.Server.WriteTimeout,
			Metrics:          m,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLog.Info("Starting server", "port", cfg.Server.Port, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(err, "Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, done := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error(err, "Server forced to shutdown")
	}
}

// storageCheck looks up a random booking; anything but not-found means the
// store is unreachable.
func storageCheck(repos repository.Repositories) health.Check {
	return func(ctx context.Context) error {
		_, err := repos.Bookings.Get(ctx, uuid.New())
		if err == nil || errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
}

func datastoreCheck(view *datastore.Store) health.Check {
	return func(context.Context) error {
		if view.Snapshot().LoadedAt.IsZero() {
			return errors.New("dashboard view not loaded")
		}
		return nil
	}
}
