package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/model"
)

type outboxRepository struct {
	q Querier
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}
	now := time.Now().UTC()
	event.ID = uuid.New()
	event.Status = model.OutboxStatusPending
	event.CreatedAt = now
	event.UpdatedAt = now

	if _, _, err := r.q.From(tableOutbox).
		Insert(event, false, "", returnRows, "").
		Execute(); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

func (r *outboxRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	due := fmt.Sprintf("status.eq.%s,and(status.eq.%s,retry_at.lte.%s)",
		model.OutboxStatusPending, model.OutboxStatusFailed, time.Now().UTC().Format(time.RFC3339))

	data, _, err := r.q.From(tableOutbox).
		Select("*", "", false).
		Or(due, "").
		Order("created_at", ascending()).
		Limit(limit, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get pending events: %w", err)
	}
	return decode[model.OutboxEvent](data, "outbox")
}

// UpdateStatus reads the retry counter before writing; PostgREST has no
// in-place increment.
func (r *outboxRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string, retryAt *time.Time) error {
	data, _, err := r.q.From(tableOutbox).
		Select("retry_count", "", false).
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to load outbox event: %w", err)
	}
	current, err := first[model.OutboxEvent](data, "outbox")
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	fields := map[string]interface{}{
		"status":        status,
		"error_message": errMsg,
		"retry_at":      retryAt,
		"updated_at":    now,
	}
	switch status {
	case model.OutboxStatusFailed:
		fields["retry_count"] = current.RetryCount + 1
	case model.OutboxStatusProcessed:
		fields["processed_at"] = now
	}

	if _, _, err := r.q.From(tableOutbox).
		Update(fields, "minimal", "").
		Eq("id", id.String()).
		Execute(); err != nil {
		return fmt.Errorf("failed to update outbox event status: %w", err)
	}
	return nil
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	data, _, err := r.q.From(tableOutbox).
		Delete(returnRows, "").
		Eq("status", string(model.OutboxStatusProcessed)).
		Lt("processed_at", before.UTC().Format(time.RFC3339)).
		Execute()
	if err != nil {
		return 0, fmt.Errorf("failed to delete processed events: %w", err)
	}
	rows, err := decode[model.OutboxEvent](data, "outbox delete")
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}
