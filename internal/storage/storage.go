// Package storage opens the configured persistence driver.
package storage

import (
	"context"
	"fmt"

	"github.com/jwalitptl/telehealth-api/internal/config"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	"github.com/jwalitptl/telehealth-api/internal/repository/memory"
	"github.com/jwalitptl/telehealth-api/internal/repository/postgres"
	"github.com/jwalitptl/telehealth-api/internal/repository/supabase"
)

// Open returns the repository set for cfg.Storage.Driver and a function that
// releases the underlying connections.
func Open(ctx context.Context, cfg *config.Config) (repository.Repositories, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return repository.Repositories{}, nil, err
		}
		return postgres.NewRepositories(db), db.Close, nil

	case config.DriverSupabase:
		client, err := supabase.NewClient(cfg.Supabase)
		if err != nil {
			return repository.Repositories{}, nil, err
		}
		return supabase.NewRepositories(client), noop, nil

	case config.DriverMemory:
		return memory.NewStore().Repositories(), noop, nil

	default:
		return repository.Repositories{}, nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}
}
