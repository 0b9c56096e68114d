package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusProcessed OutboxStatus = "PROCESSED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

const EventBookingStatusChanged = "booking.status_changed"

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	RetryAt      *time.Time      `db:"retry_at" json:"retry_at,omitempty"`
}

// StatusChangedPayload is the body of a booking.status_changed event.
type StatusChangedPayload struct {
	BookingID       uuid.UUID   `json:"booking_id"`
	PatientID       uuid.UUID   `json:"patient_id"`
	PatientName     string      `json:"patient_name,omitempty"`
	PatientEmail    string      `json:"patient_email,omitempty"`
	From            Status      `json:"from"`
	To              Status      `json:"to"`
	Action          string      `json:"action,omitempty"`
	Forced          bool        `json:"forced,omitempty"`
	BookingType     BookingType `json:"booking_type"`
	AppointmentDate string      `json:"appointment_date"`
	AppointmentTime string      `json:"appointment_time"`
	ProviderName    *string     `json:"provider_name,omitempty"`
	OccurredAt      time.Time   `json:"occurred_at"`
}
