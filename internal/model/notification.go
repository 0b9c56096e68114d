package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

// Notification is a short-lived message for dashboard users. It is never persisted.
type Notification struct {
	ID          string           `json:"id"`
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	BookingID   *uuid.UUID       `json:"booking_id,omitempty"`
	PatientName string           `json:"patient_name,omitempty"`
	AutoHide    bool             `json:"auto_hide"`
	Timestamp   time.Time        `json:"timestamp"`
}
