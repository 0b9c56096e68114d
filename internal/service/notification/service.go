package notification

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/telehealth-api/internal/model"
)

const (
	DefaultAutoHideAfter   = 5 * time.Second
	DefaultCleanupInterval = time.Minute
)

// Service holds dashboard notifications in memory. Auto-hiding ones expire
// after the configured delay; the rest stay until dismissed.
type Service struct {
	cache         *cache.Cache
	autoHideAfter time.Duration
	now           func() time.Time
}

func NewService(autoHideAfter, cleanupInterval time.Duration) *Service {
	if autoHideAfter <= 0 {
		autoHideAfter = DefaultAutoHideAfter
	}
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	return &Service{
		cache:         cache.New(cache.NoExpiration, cleanupInterval),
		autoHideAfter: autoHideAfter,
		now:           time.Now,
	}
}

// Push stores n, assigning an ID and timestamp when missing.
func (s *Service) Push(n model.Notification) model.Notification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = s.now()
	}
	ttl := cache.NoExpiration
	if n.AutoHide {
		ttl = s.autoHideAfter
	}
	s.cache.Set(n.ID, n, ttl)
	return n
}

func (s *Service) Success(title, message string, booking *model.Booking) model.Notification {
	return s.Push(forBooking(model.Notification{
		Type:     model.NotificationSuccess,
		Title:    title,
		Message:  message,
		AutoHide: true,
	}, booking))
}

// Error notifications stay until dismissed.
func (s *Service) Error(title, message string, booking *model.Booking) model.Notification {
	return s.Push(forBooking(model.Notification{
		Type:    model.NotificationError,
		Title:   title,
		Message: message,
	}, booking))
}

func forBooking(n model.Notification, b *model.Booking) model.Notification {
	if b == nil {
		return n
	}
	id := b.ID
	n.BookingID = &id
	if b.Patient != nil {
		n.PatientName = b.Patient.FullName
	}
	return n
}

// List returns live notifications, newest first.
func (s *Service) List() []model.Notification {
	items := s.cache.Items()
	out := make([]model.Notification, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(model.Notification))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Dismiss removes a notification and reports whether it was present.
func (s *Service) Dismiss(id string) bool {
	if _, ok := s.cache.Get(id); !ok {
		return false
	}
	s.cache.Delete(id)
	return true
}

func (s *Service) Clear() {
	s.cache.Flush()
}
