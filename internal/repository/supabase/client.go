// Package supabase implements the repositories over the PostgREST API of a
// hosted Supabase project.
package supabase

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"

	"github.com/jwalitptl/telehealth-api/internal/config"
	"github.com/jwalitptl/telehealth-api/internal/repository"
)

const (
	tableBookings = "bookings"
	tablePatients = "patients"
	tableOutbox   = "outbox_events"

	returnRows = "representation"

	bookingSelect = "*, patient:patients(*)"
)

// Querier is the part of the supabase and postgrest clients the repositories use.
type Querier interface {
	From(table string) *postgrest.QueryBuilder
}

func NewClient(cfg config.SupabaseConfig) (*supa.Client, error) {
	client, err := supa.NewClient(cfg.URL, cfg.ServiceRoleKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return client, nil
}

func NewRepositories(q Querier) repository.Repositories {
	return repository.Repositories{
		Bookings: &bookingRepository{q: q},
		Patients: &patientRepository{q: q},
		Outbox:   &outboxRepository{q: q},
	}
}

func ascending() *postgrest.OrderOpts {
	return &postgrest.OrderOpts{Ascending: true}
}

// decode unmarshals a PostgREST row array.
func decode[T any](data []byte, action string) ([]*T, error) {
	var rows []*T
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", action, err)
	}
	return rows, nil
}

// first returns the single row of a by-id response, or ErrNotFound.
func first[T any](data []byte, action string) (*T, error) {
	rows, err := decode[T](data, action)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0] == nil {
		return nil, repository.ErrNotFound
	}
	return rows[0], nil
}

var filterEscaper = strings.NewReplacer(",", " ", "(", " ", ")", " ", "*", " ", "%", " ")

// ilikeFilter builds an or-filter matching any column against q as a substring.
func ilikeFilter(q string, columns ...string) string {
	term := strings.TrimSpace(filterEscaper.Replace(q))
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		parts = append(parts, fmt.Sprintf("%s.ilike.*%s*", col, term))
	}
	return strings.Join(parts, ",")
}
