package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

var timeOfDayLayouts = []string{TimeLayout, "15:04"}

// Booking is one appointment instance. Patient is populated by joined reads.
type Booking struct {
	ID              uuid.UUID   `db:"id" json:"id"`
	PatientID       uuid.UUID   `db:"patient_id" json:"patient_id"`
	AppointmentDate string      `db:"appointment_date" json:"appointment_date"`
	AppointmentTime string      `db:"appointment_time" json:"appointment_time"`
	BookingType     BookingType `db:"booking_type" json:"booking_type"`
	Status          Status      `db:"status" json:"status"`
	Notes           *string     `db:"notes" json:"notes"`
	CreatedBy       uuid.UUID   `db:"created_by" json:"created_by"`
	ProviderName    *string     `db:"provider_name" json:"provider_name"`
	ChiefComplaint  *string     `db:"chief_complaint" json:"chief_complaint"`
	RoomLocation    *string     `db:"room_location" json:"room_location"`
	IsAdhoc         bool        `db:"is_adhoc" json:"is_adhoc"`
	Timestamps
	Patient *Patient `db:"-" json:"patient,omitempty"`
}

// IsOnline reports whether the booking belongs to the telehealth queue.
func (b *Booking) IsOnline() bool {
	return b.BookingType == BookingTypeOnline
}

// ScheduledAt combines the appointment date and time of day. ok is false when
// either part does not parse.
func (b *Booking) ScheduledAt() (t time.Time, ok bool) {
	date, err := time.Parse(DateLayout, b.AppointmentDate)
	if err != nil {
		return time.Time{}, false
	}
	tod, ok := ParseTimeOfDay(b.AppointmentTime)
	if !ok {
		return time.Time{}, false
	}
	return date.Add(tod), true
}

// AppointmentLabel renders "Adhoc" or "Booked 9:00 AM".
func (b *Booking) AppointmentLabel() string {
	if b.IsAdhoc {
		return "Adhoc"
	}
	tod, ok := ParseTimeOfDay(b.AppointmentTime)
	if !ok {
		return "Booked " + b.AppointmentTime
	}
	return "Booked " + time.Time{}.Add(tod).Format("3:04 PM")
}

// ParseTimeOfDay parses HH:MM or HH:MM:SS into an offset from midnight.
func ParseTimeOfDay(s string) (time.Duration, bool) {
	for _, layout := range timeOfDayLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, true
		}
	}
	return 0, false
}

// ScheduledBefore orders bookings by date and time. Bookings whose schedule
// does not parse sort after every valid one.
func ScheduledBefore(a, b *Booking) bool {
	at, aok := a.ScheduledAt()
	bt, bok := b.ScheduledAt()
	switch {
	case aok && bok:
		return at.Before(bt)
	case aok:
		return true
	default:
		return false
	}
}

// SortBySchedule sorts in place, keeping the existing order on exact ties.
func SortBySchedule(bookings []*Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		return ScheduledBefore(bookings[i], bookings[j])
	})
}

type CreateBookingRequest struct {
	PatientID       uuid.UUID   `json:"patient_id" validate:"required"`
	AppointmentDate string      `json:"appointment_date" validate:"required,datetime=2006-01-02"`
	AppointmentTime string      `json:"appointment_time" validate:"required,timeofday"`
	BookingType     BookingType `json:"booking_type" validate:"omitempty,oneof=pre-booked online"`
	Status          Status      `json:"status" validate:"omitempty,oneof=pending confirmed"`
	Notes           *string     `json:"notes" validate:"omitempty,max=1000"`
	ProviderName    *string     `json:"provider_name"`
	ChiefComplaint  *string     `json:"chief_complaint" validate:"omitempty,max=500"`
	RoomLocation    *string     `json:"room_location"`
	IsAdhoc         bool        `json:"is_adhoc"`
}

// BookingUpdate is a partial update; nil fields are left untouched.
type BookingUpdate struct {
	PatientID       *uuid.UUID   `json:"patient_id,omitempty"`
	AppointmentDate *string      `json:"appointment_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	AppointmentTime *string      `json:"appointment_time,omitempty" validate:"omitempty,timeofday"`
	BookingType     *BookingType `json:"booking_type,omitempty" validate:"omitempty,oneof=pre-booked online"`
	Status          *Status      `json:"status,omitempty" validate:"omitempty,oneof=pending confirmed intake ready-for-provider provider ready-for-discharge discharged cancelled"`
	Notes           *string      `json:"notes,omitempty" validate:"omitempty,max=1000"`
	ProviderName    *string      `json:"provider_name,omitempty"`
	ChiefComplaint  *string      `json:"chief_complaint,omitempty" validate:"omitempty,max=500"`
	RoomLocation    *string      `json:"room_location,omitempty"`
	IsAdhoc         *bool        `json:"is_adhoc,omitempty"`
}

// StatusUpdate is the patch written by workflow transitions.
func StatusUpdate(status Status) BookingUpdate {
	return BookingUpdate{Status: &status}
}

func (u BookingUpdate) Empty() bool {
	return len(u.Fields()) == 0
}

// Apply returns a patched copy of b; b itself is not modified.
func (u BookingUpdate) Apply(b Booking) Booking {
	if u.PatientID != nil {
		b.PatientID = *u.PatientID
	}
	if u.AppointmentDate != nil {
		b.AppointmentDate = *u.AppointmentDate
	}
	if u.AppointmentTime != nil {
		b.AppointmentTime = *u.AppointmentTime
	}
	if u.BookingType != nil {
		b.BookingType = *u.BookingType
	}
	if u.Status != nil {
		b.Status = *u.Status
	}
	if u.Notes != nil {
		b.Notes = u.Notes
	}
	if u.ProviderName != nil {
		b.ProviderName = u.ProviderName
	}
	if u.ChiefComplaint != nil {
		b.ChiefComplaint = u.ChiefComplaint
	}
	if u.RoomLocation != nil {
		b.RoomLocation = u.RoomLocation
	}
	if u.IsAdhoc != nil {
		b.IsAdhoc = *u.IsAdhoc
	}
	return b
}

// Fields maps the set fields to their column names.
func (u BookingUpdate) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if u.PatientID != nil {
		fields["patient_id"] = *u.PatientID
	}
	if u.AppointmentDate != nil {
		fields["appointment_date"] = *u.AppointmentDate
	}
	if u.AppointmentTime != nil {
		fields["appointment_time"] = *u.AppointmentTime
	}
	if u.BookingType != nil {
		fields["booking_type"] = string(*u.BookingType)
	}
	if u.Status != nil {
		fields["status"] = string(*u.Status)
	}
	if u.Notes != nil {
		fields["notes"] = *u.Notes
	}
	if u.ProviderName != nil {
		fields["provider_name"] = *u.ProviderName
	}
	if u.ChiefComplaint != nil {
		fields["chief_complaint"] = *u.ChiefComplaint
	}
	if u.RoomLocation != nil {
		fields["room_location"] = *u.RoomLocation
	}
	if u.IsAdhoc != nil {
		fields["is_adhoc"] = *u.IsAdhoc
	}
	return fields
}
