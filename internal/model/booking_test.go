package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func booking(date, tm string) *Booking {
	return &Booking{AppointmentDate: date, AppointmentTime: tm}
}

func TestScheduledAt(t *testing.T) {
	at, ok := booking("2024-01-15", "09:30").ScheduledAt()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC), at)

	at, ok = booking("2024-01-15", "09:30:15").ScheduledAt()
	require.True(t, ok)
	assert.Equal(t, 15, at.Second())

	_, ok = booking("15/01/2024", "09:30").ScheduledAt()
	assert.False(t, ok)
	_, ok = booking("2024-01-15", "").ScheduledAt()
	assert.False(t, ok)
}

func TestSortBySchedule(t *testing.T) {
	bad := booking("", "")
	nine := booking("2024-01-15", "09:00")
	eight := booking("2024-01-15", "08:00")
	tomorrow := booking("2024-01-16", "07:00")
	tie := booking("2024-01-15", "08:00:00")

	list := []*Booking{bad, nine, tomorrow, eight, tie}
	SortBySchedule(list)

	assert.Equal(t, []*Booking{eight, tie, nine, tomorrow, bad}, list)
}

func TestAppointmentLabel(t *testing.T) {
	assert.Equal(t, "Adhoc", (&Booking{IsAdhoc: true, AppointmentTime: "09:00"}).AppointmentLabel())
	assert.Equal(t, "Booked 9:00 AM", booking("2024-01-15", "09:00:00").AppointmentLabel())
	assert.Equal(t, "Booked 2:30 PM", booking("2024-01-15", "14:30").AppointmentLabel())
	assert.Equal(t, "Booked soon", booking("2024-01-15", "soon").AppointmentLabel())
}

func TestBookingUpdate_ApplyDoesNotMutate(t *testing.T) {
	notes := "bring records"
	orig := Booking{Status: StatusConfirmed, AppointmentTime: "09:00"}
	status := StatusIntake
	upd := BookingUpdate{Status: &status, Notes: &notes}

	patched := upd.Apply(orig)

	assert.Equal(t, StatusConfirmed, orig.Status)
	assert.Nil(t, orig.Notes)
	assert.Equal(t, StatusIntake, patched.Status)
	assert.Equal(t, "bring records", *patched.Notes)
	assert.Equal(t, "09:00", patched.AppointmentTime)
	assert.Equal(t, map[string]interface{}{"status": "intake", "notes": "bring records"}, upd.Fields())
	assert.True(t, BookingUpdate{}.Empty())
}

func TestPatientAge(t *testing.T) {
	dob := "1990-06-15"
	p := &Patient{DateOfBirth: &dob}

	age, ok := p.Age(time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, 33, age)

	age, _ = p.Age(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 34, age)

	_, ok = (&Patient{}).Age(time.Now())
	assert.False(t, ok)
}

func TestQueueStatsAdd(t *testing.T) {
	var qs QueueStats
	for _, s := range AllStatuses() {
		qs.Add(s)
	}
	assert.Equal(t, 8, qs.Total)
	assert.Equal(t, 1, qs.ReadyForDischarge)
	assert.Equal(t, 1, qs.Cancelled)
}
