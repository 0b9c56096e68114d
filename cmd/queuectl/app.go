package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/telehealth-api/internal/config"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	"github.com/jwalitptl/telehealth-api/internal/service/event"
	"github.com/jwalitptl/telehealth-api/internal/service/queue"
	"github.com/jwalitptl/telehealth-api/internal/storage"
	"github.com/jwalitptl/telehealth-api/pkg/auth"
	"github.com/jwalitptl/telehealth-api/pkg/logger"
)

// app is what the commands operate on.
type app struct {
	bookings repository.BookingRepository
	queue    *queue.Service
	jwt      auth.JWTService
	now      func() time.Time
	close    func() error
}

type opener func(ctx context.Context, logLevel string) (*app, error)

func openApp(ctx context.Context, logLevel string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(logLevel, "console")

	repos, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
	}

	return newApp(repos, auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpiryHours)*time.Hour), log, closeStore), nil
}

func newApp(repos repository.Repositories, jwt auth.JWTService, log *logger.Logger, closeStore func() error) *app {
	return &app{
		bookings: repos.Bookings,
		queue: queue.NewService(repos.Bookings, queue.Options{
			Events: event.NewService(repos.Outbox, log),
			Logger: log,
		}),
		jwt:   jwt,
		now:   time.Now,
		close: closeStore,
	}
}
